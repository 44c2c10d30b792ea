package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"enhancerd/internal/enhance"
	"enhancerd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Enhance(ctx context.Context, req types.EnhanceRequest) types.EnhanceResult
	Status() types.StatusResponse
	Models() []types.ModelDescriptor
	Installed() types.InstalledResponse
	Acquire(ctx context.Context, modelID, sourceURL string, onProgress func(types.Progress)) (bool, error)
	Select(modelID string) error
	Remove(modelID string) error
	Validate(modelID string) types.CompatReport
	Repair(modelID string) bool
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(logRequests)
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	var enhanceSem chan struct{}
	if enhanceConcurrency > 0 {
		enhanceSem = make(chan struct{}, enhanceConcurrency)
	}
	r.Post("/enhance", func(w http.ResponseWriter, r *http.Request) {
		if enhanceSem != nil {
			select {
			case enhanceSem <- struct{}{}:
				defer func() { <-enhanceSem }()
			default:
				IncrementBackpressure("enhance-concurrency")
				writeJSONError(w, http.StatusTooManyRequests, "too many concurrent enhance requests")
				return
			}
		}
		var req types.EnhanceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ctx := r.Context()
		if sec := enhanceTimeout; sec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
			defer cancel()
		}
		// Enhance never fails; the result carries its own provenance.
		writeJSON(w, http.StatusOK, svc.Enhance(ctx, req))
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.Models()})
	})

	r.Get("/models/installed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Installed())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/models/{id}/acquire", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req types.AcquireRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.SourceURL) == "" {
			writeJSONError(w, http.StatusBadRequest, "source_url is required")
			return
		}
		onProgress := func(p types.Progress) {
			if zlog != nil {
				zlog.Debug().Str("model", id).Float64("percent", p.PercentComplete).Msg("acquire progress")
			}
		}
		ok, err := svc.Acquire(r.Context(), id, req.SourceURL, onProgress)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.AcquireResponse{Success: ok})
	})

	r.Post("/models/{id}/select", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Select(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"selected": id})
	})

	r.Post("/models/{id}/repair", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		repaired := svc.Repair(id)
		writeJSON(w, http.StatusOK, map[string]any{
			"repaired": repaired,
			"report":   svc.Validate(id),
		})
	})

	r.Delete("/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Remove(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodeJSON enforces the JSON content type and body size limit, then decodes
// into dst. It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// MaxBytesReader failures land here too; 400 avoids leaking size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

// writeServiceError maps well-known service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case enhance.IsModelNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case enhance.IsRuntimeUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
