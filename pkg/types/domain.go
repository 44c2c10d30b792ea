package types

// ArchitectureFamily enumerates the model architectures the catalog declares.
type ArchitectureFamily string

const (
	ArchTextGeneration    ArchitectureFamily = "text-generation"
	ArchMaskedLM          ArchitectureFamily = "masked-lm"
	ArchSentenceEmbedding ArchitectureFamily = "sentence-embedding"
)

// ModelDescriptor is the static catalog entry for a downloadable model.
// Descriptors are defined at build time and never mutated.
type ModelDescriptor struct {
	// Stable identifier for the model.
	ID string `json:"id"`
	// Human-friendly name.
	Name string `json:"name"`
	// Filename of the primary weights artifact inside the model directory.
	PrimaryFile string `json:"primary_file"`
	// Optional config/vocab/merge files expected next to the primary artifact.
	ExtraFiles []string `json:"extra_files,omitempty"`
	// Declared architecture family.
	Architecture ArchitectureFamily `json:"architecture"`
	// Declared tokenizer source identifier (e.g. "llama-bpe").
	TokenizerSource string `json:"tokenizer_source"`
}

// RequiredFiles returns the full artifact set for the model.
func (d ModelDescriptor) RequiredFiles() []string {
	out := make([]string, 0, 1+len(d.ExtraFiles))
	out = append(out, d.PrimaryFile)
	out = append(out, d.ExtraFiles...)
	return out
}

// InstalledModelRecord is persisted once per downloaded model.
type InstalledModelRecord struct {
	ID              string             `json:"id"`
	Path            string             `json:"path"`
	Architecture    ArchitectureFamily `json:"architecture"`
	TokenizerSource string             `json:"tokenizer_source"`
	Descriptor      ModelDescriptor    `json:"descriptor"`
	InstalledAtUnix int64              `json:"installed_at_unix"`
	Status          string             `json:"status"`
}

// TokenizerSidecar is the small metadata file stored next to a primary
// artifact. Content equality of TokenizerSource with the descriptor is the
// completeness signal for idempotent acquisition.
type TokenizerSidecar struct {
	TokenizerSource  string             `json:"tokenizer_source"`
	Architecture     ArchitectureFamily `json:"architecture"`
	ConfiguredAtUnix int64              `json:"configured_at_unix"`
	Ready            bool               `json:"ready"`
	Repaired         bool               `json:"repaired,omitempty"`
}

// Progress reports download progress. Callbacks receive non-decreasing
// DownloadedBytes values at a bounded rate.
type Progress struct {
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	PercentComplete float64 `json:"percent_complete"`
}

// StyleConfig selects how text is enhanced. Role/Style/Focus are free-text
// enumerations; PromptOverride, when set, wins over the derived prompt.
type StyleConfig struct {
	Role           string  `json:"role,omitempty"`
	Style          string  `json:"style,omitempty"`
	Focus          string  `json:"focus,omitempty"`
	PromptOverride string  `json:"prompt_override,omitempty"`
	MaxOutputChars int     `json:"max_output_chars,omitempty"`
	Randomness     float64 `json:"randomness,omitempty"`
}
