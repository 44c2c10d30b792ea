package store

import (
	"testing"

	"github.com/rs/zerolog"
)

// exercise both implementations through the same contract checks
func openStores(t *testing.T) map[string]ContentStore {
	t.Helper()
	bs, err := OpenBadger(BadgerConfig{InMemory: true, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]ContentStore{
		"badger": bs,
		"memory": NewMemoryStore(),
	}
}

func TestContentStore_GetAbsentKey(t *testing.T) {
	for name, s := range openStores(t) {
		if _, ok, err := s.Get("missing"); err != nil || ok {
			t.Fatalf("%s: absent key must be (absent, nil), got ok=%v err=%v", name, ok, err)
		}
	}
}

func TestContentStore_SetGetRemove(t *testing.T) {
	for name, s := range openStores(t) {
		if err := s.Set(KeySelectedModel, "tinyllama-1_1b-chat-q4"); err != nil {
			t.Fatalf("%s: Set: %v", name, err)
		}
		v, ok, err := s.Get(KeySelectedModel)
		if err != nil || !ok || v != "tinyllama-1_1b-chat-q4" {
			t.Fatalf("%s: Get after Set: v=%q ok=%v err=%v", name, v, ok, err)
		}
		// overwrite is last-writer-wins
		if err := s.Set(KeySelectedModel, ""); err != nil {
			t.Fatalf("%s: overwrite: %v", name, err)
		}
		v, ok, _ = s.Get(KeySelectedModel)
		if !ok || v != "" {
			t.Fatalf("%s: overwrite not visible: v=%q ok=%v", name, v, ok)
		}
		if err := s.Remove(KeySelectedModel, "never-existed"); err != nil {
			t.Fatalf("%s: Remove: %v", name, err)
		}
		if _, ok, _ := s.Get(KeySelectedModel); ok {
			t.Fatalf("%s: key still present after Remove", name)
		}
	}
}

func TestContentStore_ListKeys(t *testing.T) {
	for name, s := range openStores(t) {
		_ = s.Set(KeyInstalledRecord("m1"), "{}")
		_ = s.Set(KeyInstalledRecord("m2"), "{}")
		keys, err := s.ListKeys()
		if err != nil {
			t.Fatalf("%s: ListKeys: %v", name, err)
		}
		if len(keys) != 2 {
			t.Fatalf("%s: want 2 keys, got %v", name, keys)
		}
	}
}
