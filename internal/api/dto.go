package api

import (
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
	"github.com/marchglen/lorekeep/internal/proposal"
)

// CreateEntityRequest is the request body for creating an entity.
type CreateEntityRequest struct {
	Type   string         `json:"type" example:"character" validate:"required"`
	Fields map[string]any `json:"fields" validate:"required"`
}

// UpdateEntityRequest is the request body for updating an entity. Only the
// fields present are changed.
type UpdateEntityRequest struct {
	Fields map[string]any `json:"fields" validate:"required"`
}

// CreateRelationshipRequest is the request body for relating two entities.
type CreateRelationshipRequest struct {
	SourceID      string `json:"sourceId" validate:"required"`
	TargetID      string `json:"targetId" validate:"required"`
	Type          string `json:"type" example:"ally_of" validate:"required"`
	Description   string `json:"description,omitempty"`
	Bidirectional *bool  `json:"isBidirectional,omitempty"`
}

// EntityDetail is the full entity response type (aliased from the domain layer).
type EntityDetail = entityservice.EntityDetail

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []models.Entity `json:"entities" validate:"required"`
	Total    int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" example:"character" validate:"required"`
	Name    string `json:"name" example:"Mira Voss" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// GraphResponse wraps the relationship graph.
type GraphResponse struct {
	Nodes []entityservice.GraphNode `json:"nodes" validate:"required"`
	Links []entityservice.GraphLink `json:"links" validate:"required"`
}

// SessionResponse describes one AI assistance session.
type SessionResponse struct {
	ID        string `json:"id" validate:"required"`
	CreatedAt string `json:"createdAt" validate:"required"`
}

// ProposalListResponse wraps a session's proposals.
type ProposalListResponse struct {
	Proposals []*proposal.Proposal `json:"proposals" validate:"required"`
}

// ProposalDecisionResponse is returned after accepting or rejecting a proposal.
type ProposalDecisionResponse struct {
	Proposal *proposal.Proposal          `json:"proposal" validate:"required"`
	Outcome  *entityservice.ApplyOutcome `json:"outcome,omitempty"`
}

// PatchPreviewResponse maps field names to unified diffs for review.
type PatchPreviewResponse struct {
	Previews map[string]string `json:"previews" validate:"required"`
}

// FieldPatch re-exports the patch payload type for request bodies.
type FieldPatch = patch.FieldPatch
