package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"header-rules/internal/handlers"
	"header-rules/internal/ratelimit"
	"header-rules/internal/server"
)

// RunServer builds the diagnostics API and the server serving it
func (app *App) RunServer() (*server.Server, http.Handler, error) {
	h := handlers.New(app, app.Stats, app.Metrics.Handler())

	rps, burst := app.Config.RateLimit()
	limiter, err := ratelimit.New(ratelimit.Config{RequestsPerSecond: rps, BurstSize: burst})
	if err != nil {
		return nil, nil, err
	}

	router := mux.NewRouter()
	SetupRoutes(router, h, limiter)

	srv := server.New(router, app.Config.Port)
	return srv, router, nil
}
