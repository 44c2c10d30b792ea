//go:build llama

package enhance

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaBackend loads GGUF artifacts in-process via llama.cpp. Tokenization
// happens inside the library, so no separate subword tokenizer is wired.
type llamaBackend struct {
	ctxSize int
	threads int
}

// NewRealBackend returns the llama.cpp-backed Backend.
func NewRealBackend(ctxSize, threads int) Backend {
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	return &llamaBackend{ctxSize: ctxSize, threads: threads}
}

func (b *llamaBackend) Load(modelPath string) (Runtime, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(b.ctxSize))
	if err != nil {
		return nil, err
	}
	return &llamaRuntime{model: m, threads: b.threads}, nil
}

type llamaRuntime struct {
	model   *llama.LLama
	threads int
}

func (r *llamaRuntime) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if r.model == nil {
		return "", errors.New("llama model not initialized")
	}
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	temp := req.Temperature
	if temp <= 0 {
		temp = llama.DefaultOptions.Temperature
	}
	prompt := req.Text
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Text
	}
	out, err := r.model.Predict(prompt,
		llama.SetTokens(maxTokens),
		llama.SetThreads(r.threads),
		llama.SetTemperature(temp),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return out, nil
}

func (r *llamaRuntime) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
