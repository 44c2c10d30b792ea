package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndata_dir: /d\nmodels_dir: /m\ntokenizer_kind: hash\nurl_rewrites:\n  - name: r1\n    from: /a/\n    to: /b/\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DataDir != "/d" || cfg.ModelsDir != "/m" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.URLRewrites) != 1 || cfg.URLRewrites[0].From != "/a/" {
		t.Fatalf("rewrites not parsed: %+v", cfg.URLRewrites)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","cors_enabled":true,"cors_origins":["*"],"default_style":{"role":"casual_writer"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.DefaultStyle == nil || cfg.DefaultStyle.Role != "casual_writer" {
		t.Fatalf("default style not parsed: %+v", cfg.DefaultStyle)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ndata_dir=\"/x\"\nllama_threads=3\nmax_body_bytes=2048\nenhance_timeout_seconds=10\nenhance_concurrency=2\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.DataDir != "/x" || cfg.LlamaThreads != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxBodyBytes != 2048 || cfg.EnhanceTimeoutSeconds != 10 || cfg.EnhanceConcurrency != 2 {
		t.Fatalf("http limits not parsed: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	bad := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "models_dir": }`)
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Addr != ":8080" || cfg.TokenizerKind != "hash" || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	custom := Config{Addr: ":1", TokenizerKind: "subword"}
	custom.ApplyDefaults()
	if custom.Addr != ":1" || custom.TokenizerKind != "subword" {
		t.Fatalf("defaults must not clobber set values: %+v", custom)
	}
}
