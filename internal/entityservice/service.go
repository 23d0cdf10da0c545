// Package entityservice coordinates the store, rich-text conversion, and
// patching for campaign entities. It is the single write path: both the REST
// API and accepted AI proposals go through it.
package entityservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marchglen/lorekeep/internal/apperr"
	"github.com/marchglen/lorekeep/internal/checksum"
	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/richtext"
	"github.com/marchglen/lorekeep/internal/store"
)

// EntityDetail is the full representation of an entity, enriched with its
// content checksum (for optimistic concurrency) and relationships.
type EntityDetail struct {
	models.Entity
	Checksum      string                `json:"checksum"`
	Relationships []models.Relationship `json:"relationships"`
}

// Service coordinates store and conversion operations.
type Service struct {
	db *store.DB
}

// NewService creates a new entity service.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// GetEntity returns one entity with checksum and relationships.
func (s *Service) GetEntity(_ context.Context, id string) (*EntityDetail, error) {
	e, err := s.db.GetEntity(id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(e)
}

// CreateEntity validates the type, requires a name, normalizes rich-text
// fields into their Document JSON storage form, and persists a new entity.
func (s *Service) CreateEntity(_ context.Context, t models.EntityType, fields map[string]any) (*EntityDetail, error) {
	desc, ok := models.Describe(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrInvalidEntityType, t)
	}
	name, _ := fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	e := &models.Entity{
		ID:     uuid.NewString(),
		Type:   t,
		Name:   name,
		Fields: normalizeFields(desc, fields),
	}
	store.Touch(e)

	if err := s.db.CreateEntity(e, searchBody(desc, e)); err != nil {
		return nil, err
	}
	return s.buildDetail(e)
}

// UpdateEntity merges changes into an entity with optimistic concurrency:
// a non-empty ifMatch must equal the current content checksum.
func (s *Service) UpdateEntity(_ context.Context, id string, changes map[string]any, ifMatch string) (*EntityDetail, error) {
	e, err := s.db.GetEntity(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != entityChecksum(e) {
		return nil, apperr.ErrConflict
	}

	desc, _ := models.Describe(e.Type)
	for k, v := range normalizeFields(desc, changes) {
		e.Fields[k] = v
	}
	if name, ok := e.Fields["name"].(string); ok && strings.TrimSpace(name) != "" {
		e.Name = name
	}
	e.UpdatedAt = time.Now().UTC()

	if err := s.db.UpdateEntity(e, searchBody(desc, e)); err != nil {
		return nil, err
	}
	return s.buildDetail(e)
}

// DeleteEntity removes an entity and its relationships.
func (s *Service) DeleteEntity(_ context.Context, id string) error {
	return s.db.DeleteEntity(id)
}

// ListEntities returns a page of entities, optionally filtered by type.
func (s *Service) ListEntities(_ context.Context, t models.EntityType, limit, offset int) ([]models.Entity, int, error) {
	if t != "" && !models.ValidType(t) {
		return nil, 0, fmt.Errorf("%w: %q", apperr.ErrInvalidEntityType, t)
	}
	return s.db.ListEntities(t, limit, offset)
}

// Search delegates full-text search to the store.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Relationships returns the relationships touching an entity.
func (s *Service) Relationships(_ context.Context, id string) ([]models.Relationship, error) {
	return s.db.RelationshipsFor(id)
}

// CreateRelationship persists a relationship between two existing entities.
func (s *Service) CreateRelationship(_ context.Context, sourceID, targetID, relType, description string, bidirectional bool) (*models.Relationship, error) {
	if _, err := s.db.GetEntity(sourceID); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if _, err := s.db.GetEntity(targetID); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	r := &models.Relationship{
		ID:            uuid.NewString(),
		SourceID:      sourceID,
		TargetID:      targetID,
		Type:          relType,
		Description:   description,
		Bidirectional: bidirectional,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.db.CreateRelationship(r); err != nil {
		return nil, err
	}
	return s.db.GetRelationship(r.ID)
}

// DeleteRelationship removes one relationship.
func (s *Service) DeleteRelationship(_ context.Context, id string) error {
	return s.db.DeleteRelationship(id)
}

// MarkdownView renders an entity as Markdown for AI consumption: name,
// metadata, then each rich-text field converted from its Document form.
func (s *Service) MarkdownView(_ context.Context, id string) (string, error) {
	e, err := s.db.GetEntity(id)
	if err != nil {
		return "", err
	}
	desc, _ := models.Describe(e.Type)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", e.Name)
	fmt.Fprintf(&sb, "- ID: %s\n- Type: %s\n", e.ID, e.Type)

	for _, f := range desc.Fields {
		if f.Name == "name" {
			continue
		}
		v, ok := e.Fields[f.Name]
		if !ok {
			continue
		}
		if f.Kind == models.FieldRichText {
			stored, _ := v.(string)
			doc, err := richtext.ParseDocument(stored)
			md := stored
			if err == nil {
				md = richtext.DocumentToMarkdown(doc)
			}
			if strings.TrimSpace(md) == "" {
				continue
			}
			fmt.Fprintf(&sb, "\n## %s\n\n%s\n", fieldTitle(f.Name), md)
			continue
		}
		fmt.Fprintf(&sb, "- %s: %v\n", fieldTitle(f.Name), v)
	}
	return sb.String(), nil
}

func (s *Service) buildDetail(e *models.Entity) (*EntityDetail, error) {
	rels, err := s.db.RelationshipsFor(e.ID)
	if err != nil {
		return nil, err
	}
	if rels == nil {
		rels = []models.Relationship{}
	}
	return &EntityDetail{
		Entity:        *e,
		Checksum:      entityChecksum(e),
		Relationships: rels,
	}, nil
}

// entityChecksum hashes the canonical serialization of the entity's name and
// fields. encoding/json sorts map keys, so the form is deterministic.
func entityChecksum(e *models.Entity) string {
	payload, _ := json.Marshal(struct {
		Name   string         `json:"name"`
		Fields map[string]any `json:"fields"`
	}{e.Name, e.Fields})
	return checksum.Sum(payload)
}

// normalizeFields converts rich-text field values into their Document JSON
// storage form. Values already in storage form pass through; Markdown text is
// parsed; anything else becomes plain paragraphs. Fields the descriptor does
// not know are kept untouched as plain values.
func normalizeFields(desc models.Descriptor, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		kind, known := desc.FieldKindOf(k)
		if !known || kind != models.FieldRichText {
			out[k] = v
			continue
		}
		out[k] = normalizeRichValue(v)
	}
	return out
}

func normalizeRichValue(v any) string {
	s, ok := v.(string)
	if !ok {
		// A structured value (e.g. a decoded document): store its JSON.
		raw, err := json.Marshal(v)
		if err != nil {
			return mustMarshalDoc(richtext.Doc())
		}
		s = string(raw)
	}
	if _, err := richtext.ParseDocument(s); err == nil {
		return s // already in storage form
	}
	if richtext.LooksLikeMarkdown(s) {
		return mustMarshalDoc(richtext.MarkdownToDocument(s))
	}
	return mustMarshalDoc(richtext.PlainTextToDocument(s))
}

func mustMarshalDoc(doc richtext.Node) string {
	out, err := richtext.MarshalDocument(doc)
	if err != nil {
		// A Node tree always marshals; this is unreachable in practice.
		return `{"type":"doc"}`
	}
	return out
}

// searchBody flattens an entity's searchable content into plain text for
// full-text indexing.
func searchBody(desc models.Descriptor, e *models.Entity) string {
	var parts []string
	for _, f := range desc.Fields {
		v, ok := e.Fields[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case models.FieldRichText:
			if stored, ok := v.(string); ok {
				parts = append(parts, richtext.ExtractPlainText(stored))
			}
		case models.FieldText:
			if sv, ok := v.(string); ok {
				parts = append(parts, sv)
			}
		}
	}
	// Unknown extra fields still contribute their string values.
	extras := make([]string, 0)
	for k, v := range e.Fields {
		if _, known := desc.FieldKindOf(k); known {
			continue
		}
		if sv, ok := v.(string); ok {
			extras = append(extras, sv)
		}
	}
	sort.Strings(extras)
	parts = append(parts, extras...)
	return strings.Join(parts, "\n")
}

func fieldTitle(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
