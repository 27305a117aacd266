package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *reportservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Runs.
	r.Get("/runs", h.ListRuns)
	r.Post("/runs", h.Refresh)
	r.Get("/runs/{id}", h.GetRun)

	// Network.
	r.Get("/edges", h.ListEdges)
	r.Get("/interactions", h.ListInteractions)
	r.Get("/nodes", h.ListNodes)
	r.Get("/network", h.GetNetwork)
	r.Get("/graph", h.Graph)
	r.Get("/graph.dot", h.GraphDOT)

	// Characters.
	r.Get("/characters", h.ListCharacters)
	r.Get("/characters/{name}", h.GetCharacter)
	r.Get("/focal", h.GetFocal)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
