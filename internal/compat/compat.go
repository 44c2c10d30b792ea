// Package compat checks that an installed model's declared tokenizer matches
// its configured sidecar metadata, and can repair a mismatch by regenerating
// the sidecar. Repair never touches the primary artifact.
package compat

import (
	"github.com/rs/zerolog"

	"enhancerd/internal/acquire"
	"enhancerd/internal/catalog"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

// Issue codes, ordered by check sequence.
const (
	IssueNoModelSelected    = "no-model-selected"
	IssueRecordMissing      = "record-missing"
	IssueSidecarMissing     = "sidecar-missing"
	IssueTokenizerMismatch  = "tokenizer-mismatch"
	IssueTokenizerNotLoaded = "tokenizer-not-loaded"
)

var recommendations = map[string]string{
	IssueNoModelSelected:    "select a model before enhancing",
	IssueRecordMissing:      "re-download the model",
	IssueSidecarMissing:     "repair or re-download the model",
	IssueTokenizerMismatch:  "run repair to regenerate the tokenizer metadata",
	IssueTokenizerNotLoaded: "re-select the model or restart the app",
}

// SessionState is the slice of the enhancement session the validator needs.
type SessionState interface {
	TokenizerLoaded() bool
}

// Validator runs the ordered metadata checks.
type Validator struct {
	content store.ContentStore
	engine  *acquire.Engine
	session SessionState
	log     zerolog.Logger
}

func NewValidator(content store.ContentStore, engine *acquire.Engine, session SessionState, log zerolog.Logger) *Validator {
	return &Validator{
		content: content,
		engine:  engine,
		session: session,
		log:     log.With().Str("component", "compat").Logger(),
	}
}

// Validate short-circuits on the first failing check. An empty modelID means
// "the currently selected model".
func (v *Validator) Validate(modelID string) types.CompatReport {
	if modelID == "" {
		sel, ok, err := v.content.Get(store.KeySelectedModel)
		if err != nil || !ok || sel == "" {
			return invalid(IssueNoModelSelected)
		}
		modelID = sel
	}
	rec, ok := v.engine.Record(modelID)
	if !ok {
		return invalid(IssueRecordMissing)
	}
	sc, ok := v.engine.Sidecar(modelID)
	if !ok {
		return invalid(IssueSidecarMissing)
	}
	declared := rec.TokenizerSource
	if desc, ok := catalog.Describe(modelID); ok {
		declared = desc.TokenizerSource
	}
	if sc.TokenizerSource != declared || !sc.Ready {
		return invalid(IssueTokenizerMismatch)
	}
	if v.session == nil || !v.session.TokenizerLoaded() {
		return invalid(IssueTokenizerNotLoaded)
	}
	return types.CompatReport{IsValid: true}
}

// Repair rewrites the sidecar from the catalog descriptor and re-validates.
// It converges when the sidecar-class issues are gone; the live-tokenizer
// check is outside what a metadata repair can fix.
func (v *Validator) Repair(modelID string) bool {
	if err := v.engine.RewriteSidecar(modelID, true); err != nil {
		v.log.Error().Err(err).Str("model", modelID).Msg("repair: sidecar rewrite failed")
		return false
	}
	rep := v.Validate(modelID)
	converged := rep.IsValid ||
		(rep.Issue != IssueSidecarMissing && rep.Issue != IssueTokenizerMismatch)
	v.log.Info().Str("model", modelID).Bool("converged", converged).Msg("repair done")
	return converged
}

func invalid(issue string) types.CompatReport {
	return types.CompatReport{IsValid: false, Issue: issue, Recommendation: recommendations[issue]}
}
