package acquire

import (
	"encoding/json"
	"fmt"
	"time"

	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

// persistInstall writes the install record and adds the model to the index.
func (e *Engine) persistInstall(desc types.ModelDescriptor, primary string) error {
	rec := types.InstalledModelRecord{
		ID:              desc.ID,
		Path:            primary,
		Architecture:    desc.Architecture,
		TokenizerSource: desc.TokenizerSource,
		Descriptor:      desc,
		InstalledAtUnix: time.Now().Unix(),
		Status:          "ready",
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := e.content.Set(store.KeyInstalledRecord(desc.ID), string(b)); err != nil {
		return err
	}
	return e.indexAdd(desc.ID)
}

// Record returns the install record for a model, if present.
func (e *Engine) Record(modelID string) (types.InstalledModelRecord, bool) {
	raw, ok, err := e.content.Get(store.KeyInstalledRecord(modelID))
	if err != nil || !ok {
		return types.InstalledModelRecord{}, false
	}
	var rec types.InstalledModelRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return types.InstalledModelRecord{}, false
	}
	return rec, true
}

// ResolvePath returns the primary artifact path iff the artifact still exists
// on blob storage, self-healing against out-of-band deletion.
func (e *Engine) ResolvePath(modelID string) (string, bool) {
	rec, ok := e.Record(modelID)
	if !ok {
		return "", false
	}
	if !e.blobs.Exists(rec.Path) {
		return "", false
	}
	return rec.Path, true
}

// ListInstalled answers "what is installed" from the index without scanning
// blob storage.
func (e *Engine) ListInstalled() []string {
	return e.readIndex()
}

// Remove deletes the model directory, its install record, and its index
// entry. Removing the currently selected model resets the selection pointer.
func (e *Engine) Remove(modelID string) error {
	if err := e.blobs.RemoveAll(e.ModelDir(modelID)); err != nil {
		return fmt.Errorf("remove model dir: %w", err)
	}
	if err := e.content.Remove(store.KeyInstalledRecord(modelID)); err != nil {
		return err
	}
	if err := e.indexRemove(modelID); err != nil {
		return err
	}
	if sel, ok, _ := e.content.Get(store.KeySelectedModel); ok && sel == modelID {
		if err := e.content.Set(store.KeySelectedModel, ""); err != nil {
			return err
		}
	}
	e.log.Info().Str("model", modelID).Msg("removed")
	return nil
}

// Sidecar reads the tokenizer sidecar for a model.
func (e *Engine) Sidecar(modelID string) (types.TokenizerSidecar, bool) {
	b, err := e.blobs.ReadFile(e.SidecarPath(modelID))
	if err != nil {
		return types.TokenizerSidecar{}, false
	}
	var sc types.TokenizerSidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return types.TokenizerSidecar{}, false
	}
	return sc, true
}

func (e *Engine) writeSidecarFile(modelID string, sc types.TokenizerSidecar) error {
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return e.blobs.WriteFile(e.SidecarPath(modelID), b)
}

func (e *Engine) readIndex() []string {
	raw, ok, err := e.content.Get(store.KeyInstalledIndex)
	if err != nil || !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func (e *Engine) writeIndex(ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return e.content.Set(store.KeyInstalledIndex, string(b))
}

func (e *Engine) indexAdd(modelID string) error {
	ids := e.readIndex()
	for _, id := range ids {
		if id == modelID {
			return nil
		}
	}
	return e.writeIndex(append(ids, modelID))
}

func (e *Engine) indexRemove(modelID string) error {
	ids := e.readIndex()
	out := ids[:0]
	for _, id := range ids {
		if id != modelID {
			out = append(out, id)
		}
	}
	return e.writeIndex(out)
}
