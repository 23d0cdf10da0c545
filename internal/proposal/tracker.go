// Package proposal tracks the entity mutations an AI assistant has proposed
// during one chat session. A Tracker is owned by exactly one session; it
// holds proposals in memory until the session ends, and every mutation flows
// through human review before anything is persisted.
package proposal

import (
	"fmt"
	"sync"
	"time"

	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
)

// Status is the review state of a proposal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Operation discriminates the proposal union.
type Operation string

const (
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpPatch        Operation = "patch"
	OpRelationship Operation = "relationship"
)

// SuggestedRelationship is a relationship the assistant recommends alongside
// a create proposal. Targets are resolved by name at apply time.
type SuggestedRelationship struct {
	TargetType  models.EntityType `json:"targetType"`
	TargetName  string            `json:"targetName"`
	Type        string            `json:"relationshipType"`
	Description string            `json:"description,omitempty"`
}

// Proposal is one proposed mutation. Which fields are populated depends on
// Operation. After creation only Status ever changes; identity and payload
// are immutable.
type Proposal struct {
	ID        string    `json:"id"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Reasoning string    `json:"reasoning,omitempty"`

	EntityType models.EntityType `json:"entityType,omitempty"`
	EntityID   string            `json:"entityId,omitempty"`

	// create
	Data                   map[string]any          `json:"data,omitempty"`
	ParentID               string                  `json:"parentId,omitempty"`
	SuggestedRelationships []SuggestedRelationship `json:"suggestedRelationships,omitempty"`

	// update
	Changes map[string]any `json:"changes,omitempty"`

	// patch
	Patches []patch.FieldPatch `json:"patches,omitempty"`

	// snapshots for review UI (update/patch)
	CurrentData map[string]any `json:"currentData,omitempty"`
	PreviewData map[string]any `json:"previewData,omitempty"`

	// relationship
	SourceType       models.EntityType `json:"sourceType,omitempty"`
	SourceID         string            `json:"sourceId,omitempty"`
	SourceName       string            `json:"sourceName,omitempty"`
	TargetType       models.EntityType `json:"targetType,omitempty"`
	TargetID         string            `json:"targetId,omitempty"`
	TargetName       string            `json:"targetName,omitempty"`
	RelationshipType string            `json:"relationshipType,omitempty"`
	Description      string            `json:"description,omitempty"`
	Bidirectional    bool              `json:"isBidirectional,omitempty"`
}

// CreateInput carries the payload for a create proposal.
type CreateInput struct {
	EntityType             models.EntityType
	Data                   map[string]any
	Reasoning              string
	ParentID               string
	SuggestedRelationships []SuggestedRelationship
}

// UpdateInput carries the payload for an update proposal.
type UpdateInput struct {
	EntityType  models.EntityType
	EntityID    string
	Changes     map[string]any
	Reasoning   string
	CurrentData map[string]any
}

// PatchInput carries the payload for a field-patch proposal.
type PatchInput struct {
	EntityType  models.EntityType
	EntityID    string
	Patches     []patch.FieldPatch
	Reasoning   string
	CurrentData map[string]any
	PreviewData map[string]any
}

// RelationshipInput carries the payload for a relationship proposal.
// Bidirectional defaults to true when unset.
type RelationshipInput struct {
	SourceType       models.EntityType
	SourceID         string
	SourceName       string
	TargetType       models.EntityType
	TargetID         string
	TargetName       string
	RelationshipType string
	Description      string
	Bidirectional    *bool
	Reasoning        string
}

// Tracker is the session-scoped proposal registry. IDs are unique for the
// tracker's lifetime; Clear resets both the registry and ID generation.
//
// The tracker is locked internally because one session's proposals are
// reached from both HTTP review handlers and the MCP tool loop, but the
// semantics stay single-writer: one session drives one tracker.
type Tracker struct {
	mu       sync.Mutex
	counter  int64
	order    []*Proposal
	byID     map[string]*Proposal
	onCreate func(*Proposal)
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byID: make(map[string]*Proposal)}
}

// OnCreate registers a hook invoked synchronously with every new proposal.
func (t *Tracker) OnCreate(fn func(*Proposal)) {
	t.mu.Lock()
	t.onCreate = fn
	t.mu.Unlock()
}

// nextID must be called with the lock held. The counter guarantees
// uniqueness within the tracker; the timestamp keeps IDs distinguishable
// across trackers in logs.
func (t *Tracker) nextID() string {
	t.counter++
	return fmt.Sprintf("proposal-%d-%d", t.counter, time.Now().UnixMilli())
}

func (t *Tracker) insert(p *Proposal) *Proposal {
	t.mu.Lock()
	p.ID = t.nextID()
	p.Status = StatusPending
	p.CreatedAt = time.Now()
	t.order = append(t.order, p)
	t.byID[p.ID] = p
	hook := t.onCreate
	t.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return p
}

// AddCreate registers a proposal to create a new entity.
func (t *Tracker) AddCreate(in CreateInput) *Proposal {
	return t.insert(&Proposal{
		Operation:              OpCreate,
		EntityType:             in.EntityType,
		Data:                   in.Data,
		Reasoning:              in.Reasoning,
		ParentID:               in.ParentID,
		SuggestedRelationships: in.SuggestedRelationships,
	})
}

// AddUpdate registers a proposal to change named fields of an entity.
func (t *Tracker) AddUpdate(in UpdateInput) *Proposal {
	return t.insert(&Proposal{
		Operation:   OpUpdate,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Changes:     in.Changes,
		Reasoning:   in.Reasoning,
		CurrentData: in.CurrentData,
	})
}

// AddPatch registers a proposal to apply field patches to an entity.
func (t *Tracker) AddPatch(in PatchInput) *Proposal {
	return t.insert(&Proposal{
		Operation:   OpPatch,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Patches:     in.Patches,
		Reasoning:   in.Reasoning,
		CurrentData: in.CurrentData,
		PreviewData: in.PreviewData,
	})
}

// AddRelationship registers a proposal to relate two entities.
func (t *Tracker) AddRelationship(in RelationshipInput) *Proposal {
	bidi := true
	if in.Bidirectional != nil {
		bidi = *in.Bidirectional
	}
	return t.insert(&Proposal{
		Operation:        OpRelationship,
		SourceType:       in.SourceType,
		SourceID:         in.SourceID,
		SourceName:       in.SourceName,
		TargetType:       in.TargetType,
		TargetID:         in.TargetID,
		TargetName:       in.TargetName,
		RelationshipType: in.RelationshipType,
		Description:      in.Description,
		Bidirectional:    bidi,
		Reasoning:        in.Reasoning,
	})
}

// Get returns the proposal with the given id.
func (t *Tracker) Get(id string) (*Proposal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[id]
	return p, ok
}

// UpdateStatus sets the status of a proposal and returns it, or false when
// the id is unknown. The primitive is deliberately permissive: it does not
// reject transitions out of accepted/rejected, callers are expected to
// review each proposal once.
func (t *Tracker) UpdateStatus(id string, status Status) (*Proposal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	p.Status = status
	return p, true
}

// List returns all proposals in insertion order.
func (t *Tracker) List() []*Proposal {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Proposal, len(t.order))
	copy(out, t.order)
	return out
}

// Pending returns pending proposals in insertion order.
func (t *Tracker) Pending() []*Proposal {
	return t.filter(StatusPending)
}

// Accepted returns accepted proposals in insertion order.
func (t *Tracker) Accepted() []*Proposal {
	return t.filter(StatusAccepted)
}

func (t *Tracker) filter(status Status) []*Proposal {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Proposal
	for _, p := range t.order {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// HasPending reports whether any proposal awaits review.
func (t *Tracker) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.order {
		if p.Status == StatusPending {
			return true
		}
	}
	return false
}

// Clear empties the registry and resets id generation. Used at session
// boundaries.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter = 0
	t.order = nil
	t.byID = make(map[string]*Proposal)
}
