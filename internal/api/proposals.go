package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marchglen/lorekeep/internal/assist"
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/proposal"
)

// ProposalHandler serves AI session and proposal review routes.
type ProposalHandler struct {
	sessions *assist.Manager
	svc      *entityservice.Service
}

// NewProposalHandler creates a ProposalHandler.
func NewProposalHandler(sessions *assist.Manager, svc *entityservice.Service) *ProposalHandler {
	return &ProposalHandler{sessions: sessions, svc: svc}
}

// StartSession handles POST /api/sessions.
//
//	@Summary		Start an AI assistance session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *ProposalHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.StartSession()
	writeJSON(w, http.StatusCreated, SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	})
}

// EndSession handles DELETE /api/sessions/{sessionID}.
//
//	@Summary		End a session, discarding its proposals
//	@Tags			sessions
//	@Param			sessionID	path	string	true	"Session ID"
//	@Success		204	"Session ended"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID} [delete]
func (h *ProposalHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EndSession(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, "end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProposals handles GET /api/sessions/{sessionID}/proposals.
//
//	@Summary		List a session's proposals
//	@Tags			proposals
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Param			status		query		string	false	"Filter by status"	Enums(pending, accepted, rejected)
//	@Success		200			{object}	ProposalListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/proposals [get]
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "list proposals", err)
		return
	}
	var list []*proposal.Proposal
	switch proposal.Status(r.URL.Query().Get("status")) {
	case proposal.StatusPending:
		list = s.Tracker().Pending()
	case proposal.StatusAccepted:
		list = s.Tracker().Accepted()
	default:
		list = s.Tracker().List()
	}
	if list == nil {
		list = []*proposal.Proposal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": list})
}

// AcceptProposal handles POST /api/sessions/{sessionID}/proposals/{proposalID}/accept.
//
//	@Summary		Accept a proposal, applying it to the campaign
//	@Tags			proposals
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Param			proposalID	path		string	true	"Proposal ID"
//	@Success		200			{object}	ProposalDecisionResponse
//	@Failure		404			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/proposals/{proposalID}/accept [post]
func (h *ProposalHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	proposalID := chi.URLParam(r, "proposalID")

	outcome, p, err := h.sessions.Accept(r.Context(), sessionID, proposalID)
	if err != nil {
		writeError(w, "accept proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, ProposalDecisionResponse{Proposal: p, Outcome: outcome})
}

// RejectProposal handles POST /api/sessions/{sessionID}/proposals/{proposalID}/reject.
//
//	@Summary		Reject a proposal
//	@Tags			proposals
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Param			proposalID	path		string	true	"Proposal ID"
//	@Success		200			{object}	ProposalDecisionResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/proposals/{proposalID}/reject [post]
func (h *ProposalHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	proposalID := chi.URLParam(r, "proposalID")

	p, err := h.sessions.Reject(r.Context(), sessionID, proposalID)
	if err != nil {
		writeError(w, "reject proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, ProposalDecisionResponse{Proposal: p})
}

// PreviewProposal handles GET /api/sessions/{sessionID}/proposals/{proposalID}/preview.
//
//	@Summary		Preview a patch proposal as unified diffs per field
//	@Tags			proposals
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Param			proposalID	path		string	true	"Proposal ID"
//	@Success		200			{object}	PatchPreviewResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/proposals/{proposalID}/preview [get]
func (h *ProposalHandler) PreviewProposal(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "preview proposal", err)
		return
	}
	p, ok := s.Tracker().Get(chi.URLParam(r, "proposalID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	previews, err := h.svc.PreviewPatch(r.Context(), p)
	if err != nil {
		writeError(w, "preview proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"previews": previews})
}

// ClearProposals handles POST /api/sessions/{sessionID}/proposals/clear.
//
//	@Summary		Discard all of a session's proposals
//	@Tags			proposals
//	@Param			sessionID	path	string	true	"Session ID"
//	@Success		204	"Proposals cleared"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/proposals/clear [post]
func (h *ProposalHandler) ClearProposals(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, "clear proposals", err)
		return
	}
	s.Tracker().Clear()
	w.WriteHeader(http.StatusNoContent)
}
