package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/FACorreiaa/student-expense-tracker/pkg/middleware"
)

// newRouter builds the HTTP handler tree. Middleware runs outermost first:
// CORS, recovery, access log, then per-route observation and rate limiting.
func newRouter(d *Dependencies) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if d.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(middleware.Observe(d.Metrics))
	api.Use(middleware.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst))
	d.ChatHandler.Register(api)
	d.LedgerHandler.Register(api)

	c := cors.New(cors.Options{
		AllowedOrigins: d.Config.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	var h http.Handler = r
	h = middleware.Logging(d.Logger)(h)
	h = middleware.Recovery(d.Logger)(h)
	return c.Handler(h)
}
