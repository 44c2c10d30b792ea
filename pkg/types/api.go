package types

// EnhanceRequest is the payload for POST /enhance.
type EnhanceRequest struct {
	// Text to enhance. May be empty; the call still succeeds.
	Text string `json:"text"`
	// Style configuration for this request. Zero value uses the persisted
	// (or default) style.
	Style StyleConfig `json:"style"`
}

// EnhanceResult is always returned, regardless of which path produced it.
type EnhanceResult struct {
	EnhancedText     string  `json:"enhanced_text"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	// Which system produced the text: a model id, "rule-engine", or "identity".
	ModelUsed  string  `json:"model_used"`
	Confidence float64 `json:"confidence"`
	IsFallback bool    `json:"is_fallback"`
	// Machine-readable reason when IsFallback is true, e.g. "no-model-selected".
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// AcquireRequest is the payload for POST /models/{id}/acquire.
type AcquireRequest struct {
	// Source URL of the primary artifact.
	SourceURL string `json:"source_url"`
}

// AcquireResponse reports the boolean outcome of an acquisition.
type AcquireResponse struct {
	Success bool `json:"success"`
}

// CompatReport is returned by the compatibility validator.
type CompatReport struct {
	IsValid        bool   `json:"is_valid"`
	Issue          string `json:"issue,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// ModelsResponse wraps the catalog listing for GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// InstalledResponse wraps the installed index for GET /models/installed.
type InstalledResponse struct {
	Installed []string `json:"installed"`
	// Currently selected model id; empty means fallback-only.
	Selected string `json:"selected,omitempty"`
}

// StatusResponse is the diagnostics projection returned by GET /status.
// Every field degrades independently; a missing store entry or file yields
// partial information, never an error.
type StatusResponse struct {
	HasRealModel       bool     `json:"has_real_model"`
	Status             string   `json:"status"`
	ModelID            string   `json:"model_id,omitempty"`
	ModelType          string   `json:"model_type,omitempty"`
	TokenizerStatus    string   `json:"tokenizer_status"`
	InstalledModels    []string `json:"installed_models"`
	ArtifactPath       string   `json:"artifact_path,omitempty"`
	LastFallbackReason string   `json:"last_fallback_reason,omitempty"`
	Error              string   `json:"error,omitempty"`
	UptimeSeconds      int64    `json:"uptime_seconds"`
	ServerTimeUnix     int64    `json:"server_time_unix"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}
