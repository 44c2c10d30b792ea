package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"enhancerd/pkg/types"
)

// RewriteRule is a config-supplied URL substitution tried when the original
// artifact source fails.
type RewriteRule struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	From string `json:"from" yaml:"from" toml:"from"`
	To   string `json:"to" yaml:"to" toml:"to"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir   string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// TokenizerKind selects the tokenization capability: "hash" or "subword".
	TokenizerKind string `json:"tokenizer_kind" yaml:"tokenizer_kind" toml:"tokenizer_kind"`
	LogLevel      string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// URLRewrites adds source-candidate rules tried ahead of the built-in
	// ones.
	URLRewrites []RewriteRule `json:"url_rewrites" yaml:"url_rewrites" toml:"url_rewrites"`

	// MaxBodyBytes caps JSON request bodies; 0 keeps the 1 MiB default.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// EnhanceTimeoutSeconds bounds a single enhance request; 0 disables.
	EnhanceTimeoutSeconds int64 `json:"enhance_timeout_seconds" yaml:"enhance_timeout_seconds" toml:"enhance_timeout_seconds"`
	// EnhanceConcurrency caps concurrent enhance requests; 0 disables.
	EnhanceConcurrency int `json:"enhance_concurrency" yaml:"enhance_concurrency" toml:"enhance_concurrency"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	// DefaultStyle seeds the persisted style configuration when the store
	// holds none yet.
	DefaultStyle *types.StyleConfig `json:"default_style" yaml:"default_style" toml:"default_style"`

	// Llama runtime tuning, used only in builds with the llama tag.
	LlamaCtx     int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "~/.enhancerd/data"
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "~/.enhancerd/blobs"
	}
	if c.TokenizerKind == "" {
		c.TokenizerKind = "hash"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
