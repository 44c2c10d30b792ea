// Package acquire downloads model artifacts into blob storage, verifies
// completeness, retries alternative source candidates, and degrades to a
// clearly-labeled synthetic placeholder when every network path fails.
// Network errors are never fatal to an acquisition; only an unknown model id
// or a filesystem error is.
package acquire

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"enhancerd/internal/blob"
	"enhancerd/internal/catalog"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

// PlaceholderMarker leads every synthetic artifact so it is distinguishable
// by content, never by path.
const PlaceholderMarker = "ENHANCERD PLACEHOLDER ARTIFACT"

// minPlausibleBytes rejects transfers that are error pages rather than real
// artifacts.
const minPlausibleBytes = 1024

// SidecarFile is the tokenizer sidecar filename inside a model directory.
const SidecarFile = "tokenizer.sidecar.json"

const defaultPlaceholderDelay = 20 * time.Millisecond

var requestHeaders = map[string]string{
	"User-Agent": "enhancerd/1.0",
	"Accept":     "application/octet-stream",
}

// Config wires an Engine.
type Config struct {
	Content store.ContentStore
	Blobs   blob.Store
	// Rewrites are tried ahead of the built-in DefaultRewriteRules.
	Rewrites []RewriteRule
	Logger   zerolog.Logger
}

// Engine owns the install records and the per-model blob directories.
type Engine struct {
	content  store.ContentStore
	blobs    blob.Store
	rewrites []RewriteRule
	log      zerolog.Logger

	// placeholderDelay paces the simulated progress loop. Tests set it to 0.
	placeholderDelay time.Duration
}

func New(cfg Config) *Engine {
	// Configured rules run first; the known candidate strategies stay
	// available when new hosts are added.
	rw := append(append([]RewriteRule(nil), cfg.Rewrites...), DefaultRewriteRules()...)
	return &Engine{
		content:          cfg.Content,
		blobs:            cfg.Blobs,
		rewrites:         rw,
		log:              cfg.Logger.With().Str("component", "acquire").Logger(),
		placeholderDelay: defaultPlaceholderDelay,
	}
}

// ModelDir returns the per-model directory under the blob base.
func (e *Engine) ModelDir(modelID string) string {
	return filepath.Join(e.blobs.BaseDir(), "models", modelID)
}

// SidecarPath returns the tokenizer sidecar path for a model.
func (e *Engine) SidecarPath(modelID string) string {
	return filepath.Join(e.ModelDir(modelID), SidecarFile)
}

// Acquire provisions modelID from sourceURL. It is safe to call repeatedly:
// a complete install performs no network work. The boolean is the only
// failure signal; nothing escapes as an error.
func (e *Engine) Acquire(ctx context.Context, sourceURL, modelID string, onProgress func(types.Progress)) bool {
	start := time.Now()
	desc, ok := catalog.Describe(modelID)
	if !ok {
		e.log.Error().Str("model", modelID).Msg("acquire: unknown model id")
		acquisitionsTotal.WithLabelValues("unknown-model").Inc()
		return false
	}
	dir := e.ModelDir(modelID)
	if err := e.blobs.MkdirAll(dir); err != nil {
		e.log.Error().Err(err).Str("model", modelID).Msg("acquire: mkdir failed")
		acquisitionsTotal.WithLabelValues("fs-error").Inc()
		return false
	}
	primary := filepath.Join(dir, desc.PrimaryFile)

	if e.isComplete(desc, primary) {
		if err := e.persistInstall(desc, primary); err != nil {
			e.log.Error().Err(err).Str("model", modelID).Msg("acquire: persist failed")
			acquisitionsTotal.WithLabelValues("fs-error").Inc()
			return false
		}
		e.log.Info().Str("model", modelID).Msg("acquire: already complete, skipping network")
		acquisitionsTotal.WithLabelValues("already-complete").Inc()
		return true
	}

	outcome := "downloaded"
	if err := e.fetchPrimary(ctx, sourceURL, primary, onProgress); err != nil {
		e.log.Warn().Err(err).Str("model", modelID).Msg("acquire: all sources failed, synthesizing placeholder")
		if perr := e.synthesizePlaceholder(desc, primary, err, onProgress); perr != nil {
			e.log.Error().Err(perr).Str("model", modelID).Msg("acquire: placeholder write failed")
			acquisitionsTotal.WithLabelValues("fs-error").Inc()
			return false
		}
		outcome = "placeholder"
		placeholdersTotal.Inc()
	}

	// Sidecar failure is non-fatal: the compatibility check flags it later.
	if err := e.RewriteSidecar(modelID, false); err != nil {
		e.log.Warn().Err(err).Str("model", modelID).Msg("acquire: sidecar write failed")
	}

	if err := e.persistInstall(desc, primary); err != nil {
		e.log.Error().Err(err).Str("model", modelID).Msg("acquire: persist failed")
		acquisitionsTotal.WithLabelValues("fs-error").Inc()
		return false
	}
	acquisitionsTotal.WithLabelValues(outcome).Inc()
	e.log.Info().
		Str("model", modelID).
		Str("outcome", outcome).
		Dur("dur", time.Since(start)).
		Msg("acquire: done")
	return true
}

// isComplete reports whether the primary artifact exists and the sidecar
// declares the descriptor's tokenizer source. Presence alone is not enough: a
// mismatched sidecar falls through to the download/rewrite path.
func (e *Engine) isComplete(desc types.ModelDescriptor, primary string) bool {
	if !e.blobs.Exists(primary) {
		return false
	}
	sc, ok := e.Sidecar(desc.ID)
	return ok && sc.Ready && sc.TokenizerSource == desc.TokenizerSource
}

// fetchPrimary tries the original URL and every applicable rewrite candidate,
// probing with HEAD before transferring. A payload below the plausibility
// floor is discarded and the next candidate tried.
func (e *Engine) fetchPrimary(ctx context.Context, sourceURL, primary string, onProgress func(types.Progress)) error {
	var lastErr error
	for _, url := range candidates(sourceURL, e.rewrites) {
		if _, status, err := e.blobs.Probe(ctx, url, requestHeaders); err != nil || status != http.StatusOK {
			if err == nil {
				err = fmt.Errorf("probe %s: status %d", url, status)
			}
			e.log.Debug().Err(err).Str("url", url).Msg("acquire: probe rejected candidate")
			lastErr = err
			continue
		}
		if _, err := e.blobs.Download(ctx, url, primary, blob.DownloadOptions{
			Headers:    requestHeaders,
			OnProgress: onProgress,
		}); err != nil {
			e.log.Debug().Err(err).Str("url", url).Msg("acquire: transfer failed")
			lastErr = err
			continue
		}
		if fi, err := e.blobs.Stat(primary); err != nil || fi.Size < minPlausibleBytes {
			_ = e.blobs.RemoveAll(primary)
			lastErr = fmt.Errorf("payload from %s below plausible size", url)
			e.log.Debug().Str("url", url).Msg("acquire: payload too small, treating as error page")
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable source candidates for %s", sourceURL)
	}
	return lastErr
}

// synthesizePlaceholder writes a labeled stand-in artifact to the path a real
// one would occupy, reporting a simulated progression so caller-side UI
// behaves uniformly.
func (e *Engine) synthesizePlaceholder(desc types.ModelDescriptor, primary string, cause error, onProgress func(types.Progress)) error {
	payload := fmt.Sprintf("%s\nmodel: %s\narchitecture: %s\ncapability: %s\nerror: %v\n",
		PlaceholderMarker, desc.ID, desc.Architecture, catalog.Capability(desc.ID), cause)
	total := int64(len(payload))
	for _, pct := range []float64{0, 25, 50, 75, 100} {
		if onProgress != nil {
			onProgress(types.Progress{
				DownloadedBytes: int64(float64(total) * pct / 100),
				TotalBytes:      total,
				PercentComplete: pct,
			})
		}
		if pct < 100 && e.placeholderDelay > 0 {
			time.Sleep(e.placeholderDelay)
		}
	}
	return e.blobs.WriteFile(primary, []byte(payload))
}

// RewriteSidecar writes the tokenizer sidecar from the catalog descriptor
// with a fresh timestamp. The compatibility validator uses it for repair.
func (e *Engine) RewriteSidecar(modelID string, repaired bool) error {
	desc, ok := catalog.Describe(modelID)
	if !ok {
		return fmt.Errorf("unknown model id: %s", modelID)
	}
	sc := types.TokenizerSidecar{
		TokenizerSource:  desc.TokenizerSource,
		Architecture:     desc.Architecture,
		ConfiguredAtUnix: time.Now().Unix(),
		Ready:            true,
		Repaired:         repaired,
	}
	return e.writeSidecarFile(modelID, sc)
}
