package enhance

import (
	"context"
	"fmt"
	"time"

	"enhancerd/pkg/types"
)

// Enhance rewrites text according to the style configuration. It never fails:
// the model path falls through to the rule engine, and the rule engine falls
// through to returning the input unchanged. A zero-value style uses the
// persisted configuration.
func (s *Session) Enhance(ctx context.Context, text string, style types.StyleConfig) types.EnhanceResult {
	start := time.Now()
	defer func() {
		enhanceDuration.Observe(time.Since(start).Seconds())
	}()

	readiness := s.Readiness()
	if readiness == ReadinessUninitialized {
		readiness = s.Initialize(ctx)
	}

	if style == (types.StyleConfig{}) {
		style = s.Style()
	}
	prompt, tag := DeriveSystemPrompt(style)

	reason := s.currentFallbackReason()
	if readiness == ReadinessReadyWithModel {
		out, err := s.tryModel(ctx, prompt, tag, text, style)
		if err == nil {
			enhanceRequestsTotal.WithLabelValues("model").Inc()
			return types.EnhanceResult{
				EnhancedText:     clampOutput(out, style.MaxOutputChars),
				ProcessingTimeMs: time.Since(start).Milliseconds(),
				ModelUsed:        s.currentModelID(),
				Confidence:       confidenceModel,
			}
		}
		s.log.Warn().Err(err).Msg("model path failed, falling through to rule engine")
		reason = s.currentFallbackReason()
		if reason == "" {
			reason = ReasonInferenceFailed
		}
	}
	if reason == "" {
		reason = ReasonInferenceFailed
	}

	if out, err := s.safeRewrite(text, tag); err == nil {
		enhanceRequestsTotal.WithLabelValues(providerRuleEngine).Inc()
		return types.EnhanceResult{
			EnhancedText:     clampOutput(out, style.MaxOutputChars),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			ModelUsed:        providerRuleEngine,
			Confidence:       confidenceFallback,
			IsFallback:       true,
			FallbackReason:   reason,
		}
	} else {
		s.log.Error().Err(err).Msg("rule engine failed, returning input unchanged")
	}

	enhanceRequestsTotal.WithLabelValues(providerIdentity).Inc()
	return types.EnhanceResult{
		EnhancedText:     text,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		ModelUsed:        providerIdentity,
		Confidence:       confidenceEmergency,
		IsFallback:       true,
		FallbackReason:   ReasonEnhancerFailed,
	}
}

// tryModel runs one model-backed generation. Before touching the runtime it
// re-checks that the artifact still exists; a violated invariant demotes the
// session to fallback-only instead of surfacing an error later.
func (s *Session) tryModel(ctx context.Context, prompt, tag, text string, style types.StyleConfig) (string, error) {
	s.mu.Lock()
	rt := s.runtime
	modelID := s.modelID
	tok := s.tokenizer
	s.mu.Unlock()
	if rt == nil {
		return "", fmt.Errorf("no runtime session")
	}
	if _, ok := s.engine.ResolvePath(modelID); !ok {
		s.demote(ReasonModelFileMissing)
		return "", fmt.Errorf("artifact for %s disappeared", modelID)
	}
	if tok != nil {
		s.log.Debug().Int("prompt_tokens", len(tok.Encode(text))).Str("model", modelID).Msg("generate")
	}
	return s.safeGenerate(ctx, rt, GenerateRequest{
		SystemPrompt: prompt,
		Text:         text,
		StyleTag:     tag,
		MaxTokens:    style.MaxOutputChars / 4,
		Temperature:  float32(style.Randomness),
	})
}

func (s *Session) safeGenerate(ctx context.Context, rt Runtime, req GenerateRequest) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("runtime panic: %v", r)
		}
	}()
	return rt.Generate(ctx, req)
}

func (s *Session) safeRewrite(text, tag string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("rewriter panic: %v", r)
		}
	}()
	if s.rewriter == nil {
		return "", fmt.Errorf("no rewriter configured")
	}
	return s.rewriter.Rewrite(text, tag), nil
}

// demote moves the session to fallback-only after an invariant violation.
func (s *Session) demote(reason string) {
	s.mu.Lock()
	if s.runtime != nil {
		_ = s.runtime.Close()
		s.runtime = nil
	}
	s.readiness = ReadinessReadyFallbackOnly
	s.fallbackReason = reason
	s.mu.Unlock()
}

func (s *Session) currentFallbackReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallbackReason
}

func (s *Session) currentModelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelID
}
