package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/silverpulse/heat/internal/api/handlers"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/pkg/logger"
)

// Routes groups the handlers mounted by NewRouter. Nil fields are not mounted.
type Routes struct {
	Heat    *handlers.HeatHandler
	Jobs    *handlers.JobsHandler
	Stream  http.Handler // websocket hub
	Metrics *metrics.Recorder
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	if routes.Heat != nil {
		api.HandleFunc("/heat", routes.Heat.GetLatest).Methods("GET")
		api.HandleFunc("/heat/history", routes.Heat.GetHistory).Methods("GET")
		api.HandleFunc("/heat/evaluate", routes.Heat.Evaluate).Methods("POST")
		api.HandleFunc("/cot/latest", routes.Heat.GetLatestCOT).Methods("GET")
	}
	if routes.Jobs != nil {
		api.HandleFunc("/jobs", routes.Jobs.GetStats).Methods("GET")
	}
	if routes.Stream != nil {
		r.Handle("/ws/heat", routes.Stream).Methods("GET")
	}
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics.Handler()).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, routes.Metrics))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "silver-heat-api",
	})
}

// statusRecorder captures the response status. It keeps Hijack so
// websocket upgrades pass through the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs HTTP requests and records request metrics
func loggingMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sr, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordHTTP(route, r.Method, sr.status, time.Since(start).Seconds())

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sr.status,
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
