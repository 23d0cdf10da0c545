package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/marchglen/lorekeep/internal/assist"
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/sse"
	"github.com/marchglen/lorekeep/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is used for entity broadcasts and mounted at GET /events.
func NewRouter(svc *entityservice.Service, sessions *assist.Manager, attachments storage.Provider, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(svc, events)
	ph := NewProposalHandler(sessions, svc)
	ah := NewAttachmentHandler(attachments)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entities CRUD.
	r.Get("/entities", h.ListEntities)
	r.Post("/entities", h.CreateEntity)
	r.Get("/entities/{id}", h.GetEntity)
	r.Put("/entities/{id}", h.UpdateEntity)
	r.Delete("/entities/{id}", h.DeleteEntity)
	r.Get("/entities/{id}/markdown", h.EntityMarkdown)
	r.Get("/entities/{id}/relationships", h.ListRelationships)

	// Search and graph.
	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	// Relationships.
	r.Post("/relationships", h.CreateRelationship)
	r.Delete("/relationships/{id}", h.DeleteRelationship)

	// AI sessions and proposal review.
	r.Post("/sessions", ph.StartSession)
	r.Delete("/sessions/{sessionID}", ph.EndSession)
	r.Get("/sessions/{sessionID}/proposals", ph.ListProposals)
	r.Post("/sessions/{sessionID}/proposals/clear", ph.ClearProposals)
	r.Post("/sessions/{sessionID}/proposals/{proposalID}/accept", ph.AcceptProposal)
	r.Post("/sessions/{sessionID}/proposals/{proposalID}/reject", ph.RejectProposal)
	r.Get("/sessions/{sessionID}/proposals/{proposalID}/preview", ph.PreviewProposal)

	// Attachments.
	r.Get("/entities/{id}/attachments", ah.List)
	r.Post("/entities/{id}/attachments", ah.Upload)
	r.Get("/attachments/*", ah.ServeFile)
	r.Delete("/attachments/*", ah.Delete)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
