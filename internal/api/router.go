package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/orunio/climate/backend/internal/api/handlers"
	"github.com/orunio/climate/backend/pkg/database"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Handlers groups the route handlers
type Handlers struct {
	Regions   *handlers.RegionHandler
	Providers *handlers.ProviderHandler
	Index     *handlers.IndexHandler
	Stream    *handlers.StreamHandler
	DB        *database.DB // optional, reported by /health
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.DB)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Regions
	api.HandleFunc("/regions", h.Regions.List).Methods("GET")
	api.HandleFunc("/regions/{name}", h.Regions.Get).Methods("GET")
	api.HandleFunc("/regions/{name}/profile", h.Regions.Profile).Methods("GET")
	api.HandleFunc("/regions/{name}/latest", h.Regions.Latest).Methods("GET")

	// Providers
	api.HandleFunc("/providers", h.Providers.Providers).Methods("GET")
	api.HandleFunc("/quota", h.Providers.Quota).Methods("GET")

	// Index analytics
	api.HandleFunc("/index/summary", h.Index.Summary).Methods("POST")
	api.HandleFunc("/impact", h.Index.Impact).Methods("POST")

	// Live aggregation
	r.HandleFunc("/ws/aggregate/{name}", h.Stream.Aggregate).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health; a failing database degrades, not fails
func healthCheckHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "orun-climate-api",
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			status, err := db.HealthCheck(ctx)
			if err != nil {
				body["status"] = "degraded"
			}
			body["database"] = status
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
