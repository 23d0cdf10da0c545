package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *entityservice.Service
	events *sse.Broker
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *entityservice.Service, events *sse.Broker) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publishEntity(kind, id string) {
	if h.events != nil {
		h.events.PublishEntityEvent(kind, id)
	}
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional type filter and pagination
//	@Tags			entities
//	@Produce		json
//	@Param			type	query		string	false	"Filter by entity type"	Enums(character, location, quest, item, faction, lore)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	entityType := models.EntityType(q.Get("type"))

	items, total, err := h.svc.ListEntities(r.Context(), entityType, limit, offset)
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	if items == nil {
		items = []models.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": items,
		"total":    total,
	})
}

// GetEntity handles GET /api/entities/{id}.
//
//	@Summary		Get a single entity with checksum and relationships
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{object}	EntityDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.svc.GetEntity(r.Context(), id)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateEntity handles POST /api/entities.
//
//	@Summary		Create a new entity
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntityRequest	true	"Entity to create"
//	@Success		201		{object}	EntityDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities [post]
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Type == "" || len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("type and fields are required"))
		return
	}
	detail, err := h.svc.CreateEntity(r.Context(), models.EntityType(req.Type), req.Fields)
	if err != nil {
		writeError(w, "create entity", err)
		return
	}
	h.publishEntity("created", detail.ID)
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateEntity handles PUT /api/entities/{id}.
//
//	@Summary		Update entity fields with optimistic concurrency
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Entity ID"
//	@Param			If-Match	header		string				false	"Content checksum for optimistic concurrency"
//	@Param			body		body		UpdateEntityRequest	true	"Changed fields"
//	@Success		200			{object}	EntityDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [put]
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")

	var req UpdateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("fields are required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	detail, err := h.svc.UpdateEntity(r.Context(), id, req.Fields, ifMatch)
	if err != nil {
		writeError(w, "update entity", err)
		return
	}
	h.publishEntity("updated", detail.ID)
	writeJSON(w, http.StatusOK, detail)
}

// DeleteEntity handles DELETE /api/entities/{id}.
//
//	@Summary		Delete an entity and its relationships
//	@Tags			entities
//	@Param			id	path	string	true	"Entity ID"
//	@Success		204	"Entity deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [delete]
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteEntity(r.Context(), id); err != nil {
		writeError(w, "delete entity", err)
		return
	}
	h.publishEntity("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// EntityMarkdown handles GET /api/entities/{id}/markdown.
//
//	@Summary		Render an entity as Markdown
//	@Tags			entities
//	@Produce		plain
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id}/markdown [get]
func (h *Handler) EntityMarkdown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	md, err := h.svc.MarkdownView(r.Context(), id)
	if err != nil {
		writeError(w, "render entity", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(md))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entities
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the relationship graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	if nodes == nil {
		nodes = []entityservice.GraphNode{}
	}
	if links == nil {
		links = []entityservice.GraphLink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// ListRelationships handles GET /api/entities/{id}/relationships.
//
//	@Summary		List relationships touching an entity
//	@Tags			relationships
//	@Produce		json
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{array}		models.Relationship
//	@Security		BearerAuth
//	@Router			/entities/{id}/relationships [get]
func (h *Handler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rels, err := h.svc.Relationships(r.Context(), id)
	if err != nil {
		writeError(w, "list relationships", err)
		return
	}
	if rels == nil {
		rels = []models.Relationship{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationships": rels})
}

// CreateRelationship handles POST /api/relationships.
//
//	@Summary		Relate two entities
//	@Tags			relationships
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRelationshipRequest	true	"Relationship to create"
//	@Success		201		{object}	models.Relationship
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/relationships [post]
func (h *Handler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.SourceID == "" || req.TargetID == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("sourceId, targetId, and type are required"))
		return
	}
	bidi := true
	if req.Bidirectional != nil {
		bidi = *req.Bidirectional
	}
	rel, err := h.svc.CreateRelationship(r.Context(), req.SourceID, req.TargetID, req.Type, req.Description, bidi)
	if err != nil {
		writeError(w, "create relationship", err)
		return
	}
	h.publishEntity("updated", rel.SourceID)
	writeJSON(w, http.StatusCreated, rel)
}

// DeleteRelationship handles DELETE /api/relationships/{id}.
//
//	@Summary		Delete a relationship
//	@Tags			relationships
//	@Param			id	path	string	true	"Relationship ID"
//	@Success		204	"Relationship deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/relationships/{id} [delete]
func (h *Handler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteRelationship(r.Context(), id); err != nil {
		writeError(w, "delete relationship", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
