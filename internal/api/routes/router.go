package routes

import (
	"net/http"

	"github.com/pakkapols/techfinder/internal/api/handlers"
	"github.com/pakkapols/techfinder/internal/api/middleware"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	chatHandler    *handlers.ChatHandler
	catalogHandler *handlers.CatalogHandler
}

// NewRouter creates a new router
func NewRouter(
	chatHandler *handlers.ChatHandler,
	catalogHandler *handlers.CatalogHandler,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		chatHandler:    chatHandler,
		catalogHandler: catalogHandler,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Chat endpoint
	r.mux.HandleFunc("POST /api/chat", r.chatHandler.HandleChat)

	// Catalog endpoints
	r.mux.HandleFunc("GET /api/products/insights", r.catalogHandler.GetInsights)
	r.mux.HandleFunc("GET /api/products/trending", r.catalogHandler.GetTrending)
	r.mux.HandleFunc("GET /api/products/{id}/recommendations", r.catalogHandler.GetRecommendations)

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
