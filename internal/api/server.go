package api

import (
	"net/http"
	"time"

	agentapi "github.com/futig/workspace-agent/internal/api/agent"
	"github.com/futig/workspace-agent/internal/api/docs"
	"github.com/futig/workspace-agent/internal/api/middleware"
	offerapi "github.com/futig/workspace-agent/internal/api/offer"
	uploadapi "github.com/futig/workspace-agent/internal/api/upload"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Agent  *agentapi.Handler
	Upload *uploadapi.Handler
	Offer  *offerapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h Handlers, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)   // Recover from panics
	r.Use(chimiddleware.RequestID)   // Add request ID
	r.Use(middleware.Logger(logger)) // Log requests
	r.Use(middleware.CORS)           // Handle CORS

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Event streams stay open for as long as the client listens
	agentapi.RegisterStreamRoutes(r, h.Agent)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		// Swagger documentation endpoints
		docs.RegisterRoutes(r)

		agentapi.RegisterRoutes(r, h.Agent)
		uploadapi.RegisterRoutes(r, h.Upload)
		offerapi.RegisterRoutes(r, h.Offer)
	})

	return r
}
