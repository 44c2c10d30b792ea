package enhance

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"enhancerd/internal/rules"
)

// GenerateRequest carries one enhancement through a runtime.
type GenerateRequest struct {
	SystemPrompt string
	Text         string
	StyleTag     string
	MaxTokens    int
	Temperature  float32
}

// Backend constructs runtime sessions from a primary artifact. Two variants
// exist: SimulatedBackend (default) and the llama.cpp backend compiled behind
// the 'llama' build tag.
type Backend interface {
	Load(modelPath string) (Runtime, error)
}

// Runtime is a loaded inference session.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Close() error
}

// ggufMagic is the artifact sniff used by the simulated backend. Synthetic
// placeholders are text and fail this check, which is what demotes them to
// the fallback path.
var ggufMagic = []byte("GGUF")

// SimulatedBackend validates that the artifact is runtime-loadable, then
// answers generations with the deterministic rewriter. It is the explicit,
// named stand-in for real numeric inference.
type SimulatedBackend struct {
	rw rules.Rewriter
}

func NewSimulatedBackend(rw rules.Rewriter) *SimulatedBackend {
	return &SimulatedBackend{rw: rw}
}

func (b *SimulatedBackend) Load(modelPath string) (Runtime, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	magic := make([]byte, len(ggufMagic))
	if _, err := f.Read(magic); err != nil {
		return nil, fmt.Errorf("read artifact header: %w", err)
	}
	if !bytes.Equal(magic, ggufMagic) {
		return nil, fmt.Errorf("%s: not a loadable model artifact", modelPath)
	}
	return &simulatedRuntime{rw: b.rw}, nil
}

type simulatedRuntime struct {
	rw rules.Rewriter
}

func (r *simulatedRuntime) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.rw == nil {
		return "", fmt.Errorf("simulated runtime has no rewriter")
	}
	return r.rw.Rewrite(req.Text, req.StyleTag), nil
}

func (r *simulatedRuntime) Close() error { return nil }
