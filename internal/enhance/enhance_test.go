package enhance

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"enhancerd/internal/rules"
	"enhancerd/internal/store"
	"enhancerd/pkg/types"
)

func typesStyle() types.StyleConfig {
	return types.StyleConfig{Role: "casual_writer"}
}

type panicRewriter struct{}

func (panicRewriter) Rewrite(text, styleTag string) string { panic("rule bank corrupted") }

type failingRuntime struct{}

func (failingRuntime) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	panic("runtime exploded")
}
func (failingRuntime) Close() error { return nil }

type failingBackend struct{}

func (failingBackend) Load(path string) (Runtime, error) { return failingRuntime{}, nil }

func TestEnhance_FreshSessionNoModel(t *testing.T) {
	e := newEnv(t)
	s := e.newSession(t, nil)
	res := s.Enhance(context.Background(), "", typesStyle())
	if !res.IsFallback {
		t.Fatalf("result = %+v", res)
	}
	if res.FallbackReason != ReasonNoModelSelected {
		t.Fatalf("reason = %s", res.FallbackReason)
	}
	if res.ModelUsed != providerRuleEngine {
		t.Fatalf("modelUsed = %s", res.ModelUsed)
	}
}

func TestEnhance_ModelPathSucceeds(t *testing.T) {
	e := newEnv(t)
	e.installArtifact(t)
	_ = e.content.Set(store.KeySelectedModel, testModel)
	s := e.newSession(t, nil)
	res := s.Enhance(context.Background(), "the meeting moved to noon", typesStyle())
	if res.IsFallback {
		t.Fatalf("model path must win: %+v", res)
	}
	if res.ModelUsed != testModel {
		t.Fatalf("modelUsed = %s", res.ModelUsed)
	}
	if res.Confidence != confidenceModel {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	if res.EnhancedText == "" {
		t.Fatalf("empty enhancement")
	}
}

func TestEnhance_BrokenRuntimeFallsThrough(t *testing.T) {
	e := newEnv(t)
	e.installArtifact(t)
	_ = e.content.Set(store.KeySelectedModel, testModel)
	s := e.newSession(t, failingBackend{})
	res := s.Enhance(context.Background(), "hello world", typesStyle())
	if !res.IsFallback || res.ModelUsed != providerRuleEngine {
		t.Fatalf("result = %+v", res)
	}
	if res.FallbackReason != ReasonInferenceFailed {
		t.Fatalf("reason = %s", res.FallbackReason)
	}
	if res.EnhancedText == "" {
		t.Fatalf("rule engine must still produce text")
	}
}

func TestEnhance_IdentityWhenRewriterPanics(t *testing.T) {
	e := newEnv(t)
	s := NewSession(SessionConfig{
		Content:  e.content,
		Engine:   e.engine,
		Rewriter: panicRewriter{},
		Logger:   zerolog.Nop(),
	})
	const input = "precious user text"
	res := s.Enhance(context.Background(), input, typesStyle())
	if res.EnhancedText != input {
		t.Fatalf("identity path must return the input unchanged: %+v", res)
	}
	if !res.IsFallback || res.ModelUsed != providerIdentity {
		t.Fatalf("result = %+v", res)
	}
	if res.Confidence != confidenceEmergency {
		t.Fatalf("confidence = %v", res.Confidence)
	}
}

// the never-throws contract across states and inputs
func TestEnhance_NeverPanics(t *testing.T) {
	inputs := []string{"", "hello", strings.Repeat("x", 10000)}
	styles := []types.StyleConfig{
		{},
		{Role: "casual_writer"},
		{Style: "concise", Focus: "clarity", MaxOutputChars: 10},
		{PromptOverride: "do whatever"},
	}
	builds := []func(t *testing.T) *Session{
		func(t *testing.T) *Session { // no model
			return newEnv(t).newSession(t, nil)
		},
		func(t *testing.T) *Session { // broken runtime
			e := newEnv(t)
			e.installArtifact(t)
			_ = e.content.Set(store.KeySelectedModel, testModel)
			return e.newSession(t, failingBackend{})
		},
		func(t *testing.T) *Session { // rewriter that panics
			e := newEnv(t)
			return NewSession(SessionConfig{
				Content: e.content, Engine: e.engine,
				Rewriter: panicRewriter{}, Logger: zerolog.Nop(),
			})
		},
	}
	for _, build := range builds {
		s := build(t)
		for _, in := range inputs {
			for _, st := range styles {
				res := s.Enhance(context.Background(), in, st)
				if res.ModelUsed == "" {
					t.Fatalf("result missing provenance: %+v", res)
				}
			}
		}
	}
}

func TestEnhance_RespectsMaxOutputChars(t *testing.T) {
	e := newEnv(t)
	s := e.newSession(t, nil)
	res := s.Enhance(context.Background(), strings.Repeat("word ", 100), types.StyleConfig{
		Role:           "professional_editor",
		MaxOutputChars: 20,
	})
	if len([]rune(res.EnhancedText)) > 20 {
		t.Fatalf("output exceeds limit: %d chars", len(res.EnhancedText))
	}
}

func TestDeriveSystemPrompt(t *testing.T) {
	cases := []struct {
		name    string
		cfg     types.StyleConfig
		wantTag string
		wantSub string
	}{
		{"default", types.StyleConfig{}, rules.TagProfessional, "professional tone"},
		{"role", types.StyleConfig{Role: "casual_writer"}, rules.TagCasual, "casual tone"},
		{"style wins over role", types.StyleConfig{Role: "casual_writer", Style: "concise"}, rules.TagConcise, "concise tone"},
		{"focus", types.StyleConfig{Focus: "brevity"}, rules.TagProfessional, "Focus on brevity."},
		{"override", types.StyleConfig{PromptOverride: "be a pirate"}, rules.TagProfessional, "be a pirate"},
	}
	for _, tc := range cases {
		prompt, tag := DeriveSystemPrompt(tc.cfg)
		if tag != tc.wantTag {
			t.Fatalf("%s: tag = %s, want %s", tc.name, tag, tc.wantTag)
		}
		if !strings.Contains(prompt, tc.wantSub) {
			t.Fatalf("%s: prompt %q missing %q", tc.name, prompt, tc.wantSub)
		}
	}
	// determinism
	p1, _ := DeriveSystemPrompt(types.StyleConfig{Role: "casual_writer", Focus: "x"})
	p2, _ := DeriveSystemPrompt(types.StyleConfig{Role: "casual_writer", Focus: "x"})
	if p1 != p2 {
		t.Fatalf("prompt derivation not deterministic")
	}
}
