package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"header-rules/internal/handlers"
	"header-rules/internal/middleware"
	"header-rules/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes for the application. The limiter
// guards the endpoints that do work; nil leaves them unthrottled.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, limiter *ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	throttle := ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", h.Metrics()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/platform-rules", h.GetPlatformRules).Methods("GET")

	api.Handle("/sync", throttle(http.HandlerFunc(h.TriggerSync))).Methods("POST")
	api.HandleFunc("/sync/last", h.GetLastSync).Methods("GET")

	api.Handle("/analyze", throttle(http.HandlerFunc(h.AnalyzeRequest))).Methods("POST")
	api.Handle("/resolve", throttle(http.HandlerFunc(h.ResolveTemplate))).Methods("POST")

	api.HandleFunc("/stats", h.GetStats).Methods("GET")
}
