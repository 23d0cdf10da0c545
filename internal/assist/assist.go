// Package assist manages AI assistance sessions. A session is the lifetime of
// one chat with the assistant: it owns a proposal tracker and is discarded,
// proposals and all, when the chat ends.
package assist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marchglen/lorekeep/internal/apperr"
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/proposal"
)

// Session is one AI assistance session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	tracker *proposal.Tracker
}

// Tracker returns the session's proposal tracker.
func (s *Session) Tracker() *proposal.Tracker {
	return s.tracker
}

// Notifier receives proposal lifecycle notifications. The SSE broker
// satisfies it.
type Notifier interface {
	PublishProposalEvent(kind string, data interface{})
}

// Manager owns the live sessions of one campaign instance.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	entities *entityservice.Service
	notify   Notifier
}

// NewManager creates a session manager. notify may be nil.
func NewManager(entities *entityservice.Service, notify Notifier) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		entities: entities,
		notify:   notify,
	}
}

// StartSession creates a new session with a fresh tracker.
func (m *Manager) StartSession() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		tracker:   proposal.NewTracker(),
	}
	s.tracker.OnCreate(func(p *proposal.Proposal) {
		m.publish("created", s.ID, p)
	})

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Session returns a live session by id.
func (m *Manager) Session(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// EndSession discards a session and everything its tracker holds.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

// Sessions returns the live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Accept applies a pending proposal and marks it accepted. The proposal stays
// pending when the apply fails.
func (m *Manager) Accept(ctx context.Context, sessionID, proposalID string) (*entityservice.ApplyOutcome, *proposal.Proposal, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	p, ok := s.tracker.Get(proposalID)
	if !ok {
		return nil, nil, fmt.Errorf("proposal %s: %w", proposalID, apperr.ErrNotFound)
	}
	if p.Status != proposal.StatusPending {
		return nil, nil, fmt.Errorf("proposal %s is already %s", proposalID, p.Status)
	}

	outcome, err := m.entities.ApplyProposal(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	p, _ = s.tracker.UpdateStatus(proposalID, proposal.StatusAccepted)
	m.publish("accepted", sessionID, p)
	return outcome, p, nil
}

// Reject marks a pending proposal rejected.
func (m *Manager) Reject(_ context.Context, sessionID, proposalID string) (*proposal.Proposal, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return nil, err
	}
	p, ok := s.tracker.Get(proposalID)
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, apperr.ErrNotFound)
	}
	if p.Status != proposal.StatusPending {
		return nil, fmt.Errorf("proposal %s is already %s", proposalID, p.Status)
	}
	p, _ = s.tracker.UpdateStatus(proposalID, proposal.StatusRejected)
	m.publish("rejected", sessionID, p)
	return p, nil
}

func (m *Manager) publish(kind, sessionID string, p *proposal.Proposal) {
	if m.notify == nil {
		return
	}
	m.notify.PublishProposalEvent(kind, map[string]any{
		"sessionId": sessionID,
		"proposal":  p,
	})
}
