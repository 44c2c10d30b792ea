//go:build !llama

package enhance

// This file provides a no-CGO stub compiled when the 'llama' build tag is not
// set, keeping default builds CGO-free. The orchestrator absorbs the load
// failure into the fallback-only state.

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type llamaBackendStub struct{}

// NewRealBackend returns a Backend whose Load fails fast: llama support is
// not built into this binary.
func NewRealBackend(ctxSize, threads int) Backend {
	return llamaBackendStub{}
}

func (llamaBackendStub) Load(modelPath string) (Runtime, error) {
	return nil, ErrRuntimeUnavailable("llama support not built (missing 'llama' build tag)")
}
