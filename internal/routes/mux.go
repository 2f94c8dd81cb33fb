// Package routes serves the read-only dashboard API.
package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	dashboardPath = "/api/v1/dashboard"
	streamPath    = dashboardPath + "/stream"
)

func NewMux(app *App, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(observeLatency)

	// health check
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", app.readyHandler).Methods(http.MethodGet)

	// metrics
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// dashboard
	r.HandleFunc(dashboardPath, app.dashboardHandler).Methods(http.MethodGet)
	r.HandleFunc(dashboardPath+"/current", app.currentHandler).Methods(http.MethodGet)
	r.HandleFunc(dashboardPath+"/history", app.historyHandler).Methods(http.MethodGet)
	r.HandleFunc(dashboardPath+"/status", app.statusHandler).Methods(http.MethodGet)
	r.HandleFunc(streamPath, app.streamHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Last-Event-ID"}),
	)(r)
}

// observeLatency records request latency per route template. Streams are
// excluded since they last as long as the client stays.
func observeLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if route == streamPath {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.HttpRequestLatencySeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
