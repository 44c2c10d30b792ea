// Package enhance owns the runtime session lifecycle and exposes a single
// enhancement operation that always returns a usable result, regardless of
// which code path produced it. The ladder is: model runtime, deterministic
// rule engine, identity.
package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"enhancerd/internal/acquire"
	"enhancerd/internal/catalog"
	"enhancerd/internal/rules"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

// Readiness is the session lifecycle state.
type Readiness string

const (
	ReadinessUninitialized     Readiness = "uninitialized"
	ReadinessInitializing      Readiness = "initializing"
	ReadinessReadyWithModel    Readiness = "ready_with_model"
	ReadinessReadyFallbackOnly Readiness = "ready_fallback_only"
)

// Machine-readable fallback reasons.
const (
	ReasonNoModelSelected   = "no-model-selected"
	ReasonModelFileMissing  = "model-file-missing"
	ReasonRuntimeLoadFailed = "runtime-load-failed"
	ReasonInferenceFailed   = "inference-failed"
	ReasonEnhancerFailed    = "enhancer-failed"
)

// Confidence values are nominal provenance markers, not measured telemetry.
const (
	confidenceModel     = 0.92
	confidenceFallback  = 0.60
	confidenceEmergency = 0.10
)

// ModelUsed values for the non-model paths.
const (
	providerRuleEngine = "rule-engine"
	providerIdentity   = "identity"
)

// SessionConfig wires a Session.
type SessionConfig struct {
	Content store.ContentStore
	Engine  *acquire.Engine
	// Rewriter is the deterministic enhancer; required.
	Rewriter rules.Rewriter
	// Backend defaults to SimulatedBackend over Rewriter.
	Backend Backend
	// TokenizerKind defaults to TokenizerHash.
	TokenizerKind string
	Logger        zerolog.Logger
}

// Session is the singleton enhancement session. It is created lazily on the
// first Enhance call and rebuilt whenever the selected model changes.
type Session struct {
	content  store.ContentStore
	engine   *acquire.Engine
	rewriter rules.Rewriter
	backend  Backend
	tokKind  string
	log      zerolog.Logger

	mu             sync.Mutex
	readiness      Readiness
	initializing   bool
	initDone       chan struct{}
	runtime        Runtime
	modelID        string
	tokenizer      Tokenizer
	fallbackReason string
	lastErr        string
	style          types.StyleConfig
	startTime      time.Time
}

func NewSession(cfg SessionConfig) *Session {
	backend := cfg.Backend
	if backend == nil {
		backend = NewSimulatedBackend(cfg.Rewriter)
	}
	s := &Session{
		content:   cfg.Content,
		engine:    cfg.Engine,
		rewriter:  cfg.Rewriter,
		backend:   backend,
		tokKind:   cfg.TokenizerKind,
		log:       cfg.Logger.With().Str("component", "enhance").Logger(),
		readiness: ReadinessUninitialized,
		startTime: time.Now(),
	}
	s.style = s.loadPersistedStyle()
	return s
}

// initResult carries the outcome of one build attempt into the commit.
type initResult struct {
	readiness Readiness
	runtime   Runtime
	modelID   string
	tokenizer Tokenizer
	reason    string
	errMsg    string
}

// Initialize builds the runtime session. At most one build runs at a time; a
// concurrent caller waits for the in-flight build and observes its result
// rather than racing a duplicate load.
func (s *Session) Initialize(ctx context.Context) Readiness {
	s.mu.Lock()
	if s.initializing {
		done := s.initDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		r := s.readiness
		s.mu.Unlock()
		return r
	}
	s.initializing = true
	s.initDone = make(chan struct{})
	if s.runtime != nil {
		_ = s.runtime.Close()
		s.runtime = nil
	}
	s.readiness = ReadinessInitializing
	done := s.initDone
	s.mu.Unlock()

	res := s.build(ctx)

	s.mu.Lock()
	s.readiness = res.readiness
	s.runtime = res.runtime
	s.modelID = res.modelID
	s.tokenizer = res.tokenizer
	s.fallbackReason = res.reason
	s.lastErr = res.errMsg
	s.initializing = false
	close(done)
	r := s.readiness
	s.mu.Unlock()
	s.log.Info().Str("readiness", string(r)).Str("model", res.modelID).Str("reason", res.reason).Msg("initialized")
	return r
}

// build never returns an error: every failure demotes to fallback-only with a
// retained reason.
func (s *Session) build(ctx context.Context) initResult {
	sel, ok, err := s.content.Get(store.KeySelectedModel)
	if err != nil || !ok || sel == "" {
		return initResult{readiness: ReadinessReadyFallbackOnly, reason: ReasonNoModelSelected}
	}
	path, ok := s.engine.ResolvePath(sel)
	if !ok {
		return initResult{readiness: ReadinessReadyFallbackOnly, modelID: sel, reason: ReasonModelFileMissing}
	}
	rt, err := s.safeLoad(path)
	if err != nil {
		s.log.Warn().Err(err).Str("model", sel).Msg("runtime load failed, demoting to fallback")
		return initResult{
			readiness: ReadinessReadyFallbackOnly,
			modelID:   sel,
			reason:    ReasonRuntimeLoadFailed,
			errMsg:    err.Error(),
		}
	}
	tokSource := ""
	if rec, ok := s.engine.Record(sel); ok {
		tokSource = rec.TokenizerSource
	}
	tok, _ := newTokenizer(s.tokKind, tokSource)
	return initResult{
		readiness: ReadinessReadyWithModel,
		runtime:   rt,
		modelID:   sel,
		tokenizer: tok,
	}
}

func (s *Session) safeLoad(path string) (rt Runtime, err error) {
	defer func() {
		if r := recover(); r != nil {
			rt, err = nil, fmt.Errorf("backend panic: %v", r)
		}
	}()
	return s.backend.Load(path)
}

// SelectModel persists the selection pointer and tears the session down so
// the next call rebuilds against the new model. An empty id means
// fallback-only.
func (s *Session) SelectModel(modelID string) error {
	if modelID != "" {
		if _, ok := catalog.Describe(modelID); !ok {
			return ErrModelNotFound(modelID)
		}
	}
	if err := s.content.Set(store.KeySelectedModel, modelID); err != nil {
		return err
	}
	s.teardown()
	return nil
}

// Close releases the loaded runtime, if any. Used on daemon shutdown.
func (s *Session) Close() {
	s.teardown()
}

// Teardown resets the session to uninitialized, closing any runtime.
func (s *Session) teardown() {
	s.mu.Lock()
	if s.runtime != nil {
		_ = s.runtime.Close()
		s.runtime = nil
	}
	s.readiness = ReadinessUninitialized
	s.modelID = ""
	s.tokenizer = nil
	s.fallbackReason = ""
	s.lastErr = ""
	s.mu.Unlock()
}

// SetStyle updates and persists the active style configuration. Persistence
// failure is logged, not surfaced.
func (s *Session) SetStyle(cfg types.StyleConfig) {
	s.mu.Lock()
	s.style = cfg
	s.mu.Unlock()
	b, err := json.Marshal(cfg)
	if err == nil {
		err = s.content.Set(store.KeyStyleConfig, string(b))
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("style persist failed")
	}
}

// Style returns the active style configuration.
func (s *Session) Style() types.StyleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

func (s *Session) loadPersistedStyle() types.StyleConfig {
	raw, ok, err := s.content.Get(store.KeyStyleConfig)
	if err != nil || !ok {
		return types.StyleConfig{}
	}
	var cfg types.StyleConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return types.StyleConfig{}
	}
	return cfg
}

// TokenizerLoaded reports whether a tokenizer handle is loaded in the current
// session. Consumed by the compatibility validator.
func (s *Session) TokenizerLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenizer != nil
}

// Readiness returns the current lifecycle state.
func (s *Session) Readiness() Readiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness
}

// Status is a side-effect-free diagnostics projection. Every sub-query
// degrades independently to partial information.
func (s *Session) Status() types.StatusResponse {
	s.mu.Lock()
	readiness := s.readiness
	modelID := s.modelID
	tokLoaded := s.tokenizer != nil
	reason := s.fallbackReason
	lastErr := s.lastErr
	start := s.startTime
	s.mu.Unlock()

	resp := types.StatusResponse{
		HasRealModel:       readiness == ReadinessReadyWithModel,
		Status:             string(readiness),
		ModelID:            modelID,
		LastFallbackReason: reason,
		Error:              lastErr,
		TokenizerStatus:    "not-loaded",
		UptimeSeconds:      int64(time.Since(start).Seconds()),
		ServerTimeUnix:     time.Now().Unix(),
	}
	if tokLoaded {
		resp.TokenizerStatus = "loaded"
	}
	if modelID == "" {
		if sel, ok, _ := s.content.Get(store.KeySelectedModel); ok {
			resp.ModelID = sel
			modelID = sel
		}
	}
	if modelID != "" {
		if rec, ok := s.engine.Record(modelID); ok {
			resp.ModelType = string(rec.Architecture)
		}
		if path, ok := s.engine.ResolvePath(modelID); ok {
			resp.ArtifactPath = path
		}
	}
	resp.InstalledModels = s.engine.ListInstalled()
	return resp
}
