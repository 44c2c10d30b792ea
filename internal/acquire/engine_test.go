package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"enhancerd/internal/blob"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

const testModel = "tinyllama-1_1b-chat-q4"

func newTestEngine(t *testing.T) (*Engine, store.ContentStore, blob.Store) {
	t.Helper()
	content := store.NewMemoryStore()
	blobs, err := blob.NewDiskStore(t.TempDir(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	e := New(Config{Content: content, Blobs: blobs, Logger: zerolog.Nop()})
	e.placeholderDelay = 0
	return e, content, blobs
}

// artifactServer serves a plausible payload and counts hits.
func artifactServer(t *testing.T, payload []byte) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAcquire_DownloadsAndRecords(t *testing.T) {
	e, content, blobs := newTestEngine(t)
	payload := bytes.Repeat([]byte("w"), 2048)
	srv, _ := artifactServer(t, payload)

	if !e.Acquire(context.Background(), srv.URL+"/model.gguf", testModel, nil) {
		t.Fatalf("acquire failed")
	}
	path, ok := e.ResolvePath(testModel)
	if !ok {
		t.Fatalf("ResolvePath after acquire")
	}
	fi, err := blobs.Stat(path)
	if err != nil || fi.Size != int64(len(payload)) {
		t.Fatalf("artifact size: %+v err=%v", fi, err)
	}
	got := e.ListInstalled()
	if len(got) != 1 || got[0] != testModel {
		t.Fatalf("ListInstalled = %v", got)
	}
	if _, ok := e.Sidecar(testModel); !ok {
		t.Fatalf("sidecar missing after acquire")
	}
	if _, ok, _ := content.Get(store.KeyInstalledRecord(testModel)); !ok {
		t.Fatalf("install record missing")
	}
}

func TestAcquire_IdempotentSkipsNetwork(t *testing.T) {
	e, _, _ := newTestEngine(t)
	srv, hits := artifactServer(t, bytes.Repeat([]byte("w"), 2048))

	url := srv.URL + "/model.gguf"
	if !e.Acquire(context.Background(), url, testModel, nil) {
		t.Fatalf("first acquire failed")
	}
	before := hits.Load()
	if before == 0 {
		t.Fatalf("first acquire made no network calls")
	}
	if !e.Acquire(context.Background(), url, testModel, nil) {
		t.Fatalf("second acquire failed")
	}
	if hits.Load() != before {
		t.Fatalf("second acquire touched the network: %d -> %d", before, hits.Load())
	}
}

func TestAcquire_MismatchedSidecarNotTreatedAsComplete(t *testing.T) {
	e, _, blobs := newTestEngine(t)
	srv, hits := artifactServer(t, bytes.Repeat([]byte("w"), 2048))

	url := srv.URL + "/model.gguf"
	if !e.Acquire(context.Background(), url, testModel, nil) {
		t.Fatalf("first acquire failed")
	}
	// corrupt the declared tokenizer source; presence alone must not satisfy
	// the completeness check
	sc := types.TokenizerSidecar{TokenizerSource: "wrong-tokenizer", Ready: true}
	b, _ := json.Marshal(sc)
	if err := blobs.WriteFile(e.SidecarPath(testModel), b); err != nil {
		t.Fatalf("corrupt sidecar: %v", err)
	}
	before := hits.Load()
	if !e.Acquire(context.Background(), url, testModel, nil) {
		t.Fatalf("second acquire failed")
	}
	if hits.Load() == before {
		t.Fatalf("mismatched sidecar must re-run the download path")
	}
	fixed, ok := e.Sidecar(testModel)
	if !ok || fixed.TokenizerSource == "wrong-tokenizer" {
		t.Fatalf("sidecar not regenerated: %+v ok=%v", fixed, ok)
	}
}

func TestAcquire_PlaceholderWhenAllSourcesFail(t *testing.T) {
	e, _, blobs := newTestEngine(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var seen []types.Progress
	ok := e.Acquire(context.Background(), srv.URL+"/model.gguf", testModel, func(p types.Progress) {
		seen = append(seen, p)
	})
	if !ok {
		t.Fatalf("acquire must succeed via placeholder")
	}
	path, resolved := e.ResolvePath(testModel)
	if !resolved {
		t.Fatalf("placeholder path not resolvable")
	}
	b, err := blobs.ReadFile(path)
	if err != nil {
		t.Fatalf("read placeholder: %v", err)
	}
	if !strings.Contains(string(b), testModel) {
		t.Fatalf("placeholder must embed the model id: %q", b)
	}
	if !strings.HasPrefix(string(b), PlaceholderMarker) {
		t.Fatalf("placeholder must lead with the marker")
	}
	// simulated progression is monotonic and terminates at 100%
	if len(seen) == 0 {
		t.Fatalf("no simulated progress reported")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].DownloadedBytes < seen[i-1].DownloadedBytes {
			t.Fatalf("progress went backwards: %+v", seen)
		}
	}
	if last := seen[len(seen)-1]; last.PercentComplete != 100 {
		t.Fatalf("final progress = %+v", last)
	}
}

func TestAcquire_AlternativeCandidateWins(t *testing.T) {
	e, _, blobs := newTestEngine(t)
	payload := bytes.Repeat([]byte("w"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the nested asset sub-path fails, the rewritten flat path works
		if strings.Contains(r.URL.Path, "/onnx/") {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	if !e.Acquire(context.Background(), srv.URL+"/onnx/model.gguf", testModel, nil) {
		t.Fatalf("acquire failed")
	}
	path, _ := e.ResolvePath(testModel)
	fi, err := blobs.Stat(path)
	if err != nil || fi.Size != int64(len(payload)) {
		t.Fatalf("expected real payload from rewritten candidate, got %+v err=%v", fi, err)
	}
}

func TestAcquire_SmallPayloadTreatedAsErrorPage(t *testing.T) {
	e, _, blobs := newTestEngine(t)
	srv, _ := artifactServer(t, []byte("not found page"))

	if !e.Acquire(context.Background(), srv.URL+"/model.gguf", testModel, nil) {
		t.Fatalf("acquire must still succeed")
	}
	path, _ := e.ResolvePath(testModel)
	b, _ := blobs.ReadFile(path)
	if !strings.HasPrefix(string(b), PlaceholderMarker) {
		t.Fatalf("sub-1KB payload must be rejected in favor of placeholder, got %q", b)
	}
}

func TestAcquire_UnknownModelFailsFast(t *testing.T) {
	e, _, _ := newTestEngine(t)
	srv, hits := artifactServer(t, bytes.Repeat([]byte("w"), 2048))
	if e.Acquire(context.Background(), srv.URL+"/model.gguf", "no-such-model", nil) {
		t.Fatalf("unknown id must fail")
	}
	if hits.Load() != 0 {
		t.Fatalf("unknown id must not touch the network")
	}
}

func TestRemove_ClearsSelectionAndIndex(t *testing.T) {
	e, content, blobs := newTestEngine(t)
	srv, _ := artifactServer(t, bytes.Repeat([]byte("w"), 2048))
	if !e.Acquire(context.Background(), srv.URL+"/model.gguf", testModel, nil) {
		t.Fatalf("acquire failed")
	}
	_ = content.Set(store.KeySelectedModel, testModel)

	if err := e.Remove(testModel); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if sel, _, _ := content.Get(store.KeySelectedModel); sel != "" {
		t.Fatalf("selected pointer not reset: %q", sel)
	}
	if got := e.ListInstalled(); len(got) != 0 {
		t.Fatalf("index not emptied: %v", got)
	}
	if _, ok := e.Record(testModel); ok {
		t.Fatalf("record survived removal")
	}
	if blobs.Exists(e.ModelDir(testModel)) {
		t.Fatalf("model dir survived removal")
	}
}

func TestResolvePath_SelfHealsAfterOutOfBandDelete(t *testing.T) {
	e, _, _ := newTestEngine(t)
	srv, _ := artifactServer(t, bytes.Repeat([]byte("w"), 2048))
	if !e.Acquire(context.Background(), srv.URL+"/model.gguf", testModel, nil) {
		t.Fatalf("acquire failed")
	}
	path, ok := e.ResolvePath(testModel)
	if !ok {
		t.Fatalf("resolve after acquire")
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}
	if _, ok := e.ResolvePath(testModel); ok {
		t.Fatalf("resolve must fail once the artifact is gone")
	}
}
