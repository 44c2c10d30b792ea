// Package catalog is the static table of models the app knows how to
// provision. Lookup never touches the network or disk; an unknown id is a
// fatal, non-retryable condition for the caller.
package catalog

import (
	"sort"

	"enhancerd/pkg/types"
)

var descriptors = map[string]types.ModelDescriptor{
	"qwen2-0_5b-instruct-q4": {
		ID:              "qwen2-0_5b-instruct-q4",
		Name:            "Qwen2 0.5B Instruct (Q4_K_M)",
		PrimaryFile:     "qwen2-0_5b-instruct-q4_k_m.gguf",
		ExtraFiles:      []string{"generation_config.json"},
		Architecture:    types.ArchTextGeneration,
		TokenizerSource: "qwen2-bpe",
	},
	"tinyllama-1_1b-chat-q4": {
		ID:              "tinyllama-1_1b-chat-q4",
		Name:            "TinyLlama 1.1B Chat (Q4_K_M)",
		PrimaryFile:     "tinyllama-1.1b-chat-v1.0.Q4_K_M.gguf",
		Architecture:    types.ArchTextGeneration,
		TokenizerSource: "llama-bpe",
	},
	"all-minilm-l6-v2": {
		ID:              "all-minilm-l6-v2",
		Name:            "all-MiniLM-L6-v2 (F16)",
		PrimaryFile:     "all-MiniLM-L6-v2.F16.gguf",
		ExtraFiles:      []string{"vocab.txt"},
		Architecture:    types.ArchSentenceEmbedding,
		TokenizerSource: "bert-wordpiece",
	},
	"distilbert-base-uncased": {
		ID:              "distilbert-base-uncased",
		Name:            "DistilBERT Base Uncased",
		PrimaryFile:     "distilbert-base-uncased.gguf",
		ExtraFiles:      []string{"vocab.txt"},
		Architecture:    types.ArchMaskedLM,
		TokenizerSource: "bert-wordpiece",
	},
}

// capabilities feeds placeholder synthesis with a human-readable description
// of what each model would do if it were real.
var capabilities = map[string]string{
	"qwen2-0_5b-instruct-q4":  "instruction-tuned text generation for rewriting short notes",
	"tinyllama-1_1b-chat-q4":  "chat-style text generation tuned for conversational rewriting",
	"all-minilm-l6-v2":        "sentence embeddings for similarity-based phrase selection",
	"distilbert-base-uncased": "masked-token prediction for in-place word substitution",
}

const genericCapability = "general-purpose text enhancement"

// Describe returns the descriptor for a model id.
func Describe(modelID string) (types.ModelDescriptor, bool) {
	d, ok := descriptors[modelID]
	return d, ok
}

// Capability returns the capability description for placeholder synthesis,
// falling back to a generic description for unknown ids.
func Capability(modelID string) string {
	if c, ok := capabilities[modelID]; ok {
		return c
	}
	return genericCapability
}

// IDs returns all known model ids in stable order.
func IDs() []string {
	out := make([]string, 0, len(descriptors))
	for id := range descriptors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// All returns all descriptors in stable id order.
func All() []types.ModelDescriptor {
	ids := IDs()
	out := make([]types.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, descriptors[id])
	}
	return out
}
