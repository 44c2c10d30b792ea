package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default remains 1 MiB for backward compatibility.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// enhanceTimeout controls the maximum duration an /enhance request may run before timing out.
// Zero means no additional timeout beyond server/connection timeouts.
var enhanceTimeout = int64(0) // seconds

// SetEnhanceTimeoutSeconds sets the enhance timeout in seconds (0 disables).
func SetEnhanceTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	enhanceTimeout = sec
}

// enhanceConcurrency caps concurrent /enhance requests. Zero disables
// admission control; requests over the cap are rejected with 429.
var enhanceConcurrency int

// SetEnhanceConcurrency caps concurrent /enhance requests (0 disables).
func SetEnhanceConcurrency(n int) {
	if n < 0 {
		n = 0
	}
	enhanceConcurrency = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
