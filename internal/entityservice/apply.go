package entityservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
	"github.com/marchglen/lorekeep/internal/proposal"
	"github.com/marchglen/lorekeep/internal/richtext"
)

// ApplyOutcome reports what accepting a proposal produced.
type ApplyOutcome struct {
	Entity       *EntityDetail        `json:"entity,omitempty"`
	Relationship *models.Relationship `json:"relationship,omitempty"`
}

// ApplyProposal executes an accepted proposal against the store. It does not
// touch proposal status; the caller marks the proposal accepted after a
// successful apply.
func (s *Service) ApplyProposal(ctx context.Context, p *proposal.Proposal) (*ApplyOutcome, error) {
	switch p.Operation {
	case proposal.OpCreate:
		return s.applyCreate(ctx, p)
	case proposal.OpUpdate:
		detail, err := s.UpdateEntity(ctx, p.EntityID, p.Changes, "")
		if err != nil {
			return nil, err
		}
		return &ApplyOutcome{Entity: detail}, nil
	case proposal.OpPatch:
		return s.applyPatch(ctx, p)
	case proposal.OpRelationship:
		return s.applyRelationship(ctx, p)
	default:
		return nil, fmt.Errorf("unknown proposal operation %q", p.Operation)
	}
}

func (s *Service) applyCreate(ctx context.Context, p *proposal.Proposal) (*ApplyOutcome, error) {
	detail, err := s.CreateEntity(ctx, p.EntityType, p.Data)
	if err != nil {
		return nil, err
	}

	// Optional extras resolve by lookup. A miss is logged and skipped so the
	// created entity survives even when the assistant guessed a name wrong.
	if p.ParentID != "" {
		if _, err := s.db.GetEntity(p.ParentID); err != nil {
			slog.Warn("proposal parent not found, skipping", "proposal", p.ID, "parent", p.ParentID)
		} else if _, err := s.CreateRelationship(ctx, detail.ID, p.ParentID, "child_of", "", false); err != nil {
			slog.Warn("parent relationship failed, skipping", "proposal", p.ID, "error", err)
		}
	}
	for _, sr := range p.SuggestedRelationships {
		target, err := s.db.FindByName(sr.TargetType, sr.TargetName)
		if err != nil {
			slog.Warn("suggested relationship target not found, skipping",
				"proposal", p.ID, "targetType", sr.TargetType, "targetName", sr.TargetName)
			continue
		}
		if _, err := s.CreateRelationship(ctx, detail.ID, target.ID, sr.Type, sr.Description, true); err != nil {
			slog.Warn("suggested relationship failed, skipping", "proposal", p.ID, "error", err)
		}
	}

	// Re-read so the reported relationships include the ones just created.
	return s.outcomeFor(ctx, detail.ID)
}

func (s *Service) applyPatch(ctx context.Context, p *proposal.Proposal) (*ApplyOutcome, error) {
	e, err := s.db.GetEntity(p.EntityID)
	if err != nil {
		return nil, err
	}
	desc, _ := models.Describe(e.Type)

	working := patchWorkingCopy(desc, e, p.Patches)
	res := patch.Apply(working, p.Patches)
	if !res.Success {
		return nil, patchFailure(res.Errors)
	}

	changes := make(map[string]any, len(p.Patches))
	for _, fp := range p.Patches {
		changes[fp.Field] = res.Record[fp.Field]
	}
	detail, err := s.UpdateEntity(ctx, p.EntityID, changes, "")
	if err != nil {
		return nil, err
	}
	return &ApplyOutcome{Entity: detail}, nil
}

func (s *Service) applyRelationship(ctx context.Context, p *proposal.Proposal) (*ApplyOutcome, error) {
	sourceID, err := s.resolveEndpoint(p.SourceID, p.SourceType, p.SourceName)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	targetID, err := s.resolveEndpoint(p.TargetID, p.TargetType, p.TargetName)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	r, err := s.CreateRelationship(ctx, sourceID, targetID, p.RelationshipType, p.Description, p.Bidirectional)
	if err != nil {
		return nil, err
	}
	return &ApplyOutcome{Relationship: r}, nil
}

// resolveEndpoint prefers an explicit id, falling back to a name lookup.
func (s *Service) resolveEndpoint(id string, t models.EntityType, name string) (string, error) {
	if id != "" {
		if _, err := s.db.GetEntity(id); err != nil {
			return "", err
		}
		return id, nil
	}
	e, err := s.db.FindByName(t, name)
	if err != nil {
		return "", fmt.Errorf("no %s named %q: %w", t, name, err)
	}
	return e.ID, nil
}

func (s *Service) outcomeFor(ctx context.Context, id string) (*ApplyOutcome, error) {
	detail, err := s.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ApplyOutcome{Entity: detail}, nil
}

// PreviewPatch renders each field patch of a proposal as a unified diff
// between the field's current text and the patched result, without writing
// anything. Used by the review UI.
func (s *Service) PreviewPatch(_ context.Context, p *proposal.Proposal) (map[string]string, error) {
	if p.Operation != proposal.OpPatch {
		return nil, fmt.Errorf("proposal %s is not a patch proposal", p.ID)
	}
	e, err := s.db.GetEntity(p.EntityID)
	if err != nil {
		return nil, err
	}
	desc, _ := models.Describe(e.Type)

	working := patchWorkingCopy(desc, e, p.Patches)
	res := patch.Apply(working, p.Patches)
	if !res.Success {
		return nil, patchFailure(res.Errors)
	}

	previews := make(map[string]string, len(p.Patches))
	for _, fp := range p.Patches {
		before, _ := working[fp.Field].(string)
		after, _ := res.Record[fp.Field].(string)
		diff, err := patch.GenerateUnifiedDiff(before, after)
		if err != nil {
			return nil, err
		}
		previews[fp.Field] = diff
	}
	return previews, nil
}

// patchWorkingCopy builds the text form each patch operates on: rich-text
// fields become Markdown for unified diffs and stay as stored JSON for JSON
// patches; everything else is used as-is.
func patchWorkingCopy(desc models.Descriptor, e *models.Entity, patches []patch.FieldPatch) map[string]any {
	working := make(map[string]any, len(patches))
	for _, fp := range patches {
		v := e.Fields[fp.Field]
		kind, known := desc.FieldKindOf(fp.Field)
		if known && kind == models.FieldRichText && fp.Type == patch.TypeUnifiedDiff {
			stored, _ := v.(string)
			if doc, err := richtext.ParseDocument(stored); err == nil {
				working[fp.Field] = richtext.DocumentToMarkdown(doc)
				continue
			}
		}
		working[fp.Field] = v
	}
	return working
}

func patchFailure(errs []*patch.Error) error {
	msgs := make([]string, len(errs))
	for i, pe := range errs {
		msgs[i] = pe.Error()
	}
	return fmt.Errorf("patch failed: %s", strings.Join(msgs, "; "))
}
