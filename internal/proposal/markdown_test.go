package proposal

import (
	"strings"
	"testing"

	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
)

func TestProposalMarkdown_Create(t *testing.T) {
	tr := NewTracker()
	p := tr.AddCreate(CreateInput{
		EntityType: models.TypeCharacter,
		Data:       map[string]any{"name": "Mira", "role": "captain"},
		Reasoning:  "introduced this session",
		SuggestedRelationships: []SuggestedRelationship{
			{TargetType: models.TypeLocation, TargetName: "The Keep", Type: "lives_in"},
		},
	})
	line := p.Markdown()
	for _, want := range []string{"[Pending]", p.ID, `Create character "Mira"`, "1 suggested relationship", "introduced this session"} {
		if !strings.Contains(line, want) {
			t.Errorf("markdown %q missing %q", line, want)
		}
	}
}

func TestProposalMarkdown_UpdateSortsKeys(t *testing.T) {
	tr := NewTracker()
	p := tr.AddUpdate(UpdateInput{
		EntityType: models.TypeQuest,
		EntityID:   "q1",
		Changes:    map[string]any{"status": "done", "description": "x"},
	})
	if !strings.Contains(p.Markdown(), "description, status") {
		t.Errorf("markdown = %q, keys should be sorted", p.Markdown())
	}
}

func TestProposalMarkdown_Patch(t *testing.T) {
	tr := NewTracker()
	p := tr.AddPatch(PatchInput{
		EntityType: models.TypeLocation,
		EntityID:   "l1",
		Patches: []patch.FieldPatch{
			{Field: "description", Type: patch.TypeUnifiedDiff, Patch: "@@ -1,1 +1,1 @@\n-a\n+b"},
		},
	})
	if !strings.Contains(p.Markdown(), "description (unified_diff)") {
		t.Errorf("markdown = %q", p.Markdown())
	}
}

func TestProposalMarkdown_RelationshipArrow(t *testing.T) {
	tr := NewTracker()
	bidi := tr.AddRelationship(RelationshipInput{
		SourceName: "Mira", SourceType: models.TypeCharacter,
		TargetName: "The Keep", TargetType: models.TypeLocation,
		RelationshipType: "guards",
	})
	if !strings.Contains(bidi.Markdown(), "<-[guards]->") {
		t.Errorf("bidirectional arrow missing: %q", bidi.Markdown())
	}
	f := false
	directed := tr.AddRelationship(RelationshipInput{
		SourceName: "Mira", TargetName: "The Keep",
		RelationshipType: "guards", Bidirectional: &f,
	})
	if !strings.Contains(directed.Markdown(), "-[guards]->") || strings.Contains(directed.Markdown(), "<-[guards]->") {
		t.Errorf("directed arrow wrong: %q", directed.Markdown())
	}
}

func TestTrackerMarkdown(t *testing.T) {
	tr := NewTracker()
	if got := tr.Markdown(); got != "No proposals." {
		t.Errorf("empty tracker markdown = %q", got)
	}
	a := tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "Lantern"}})
	tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "Rope"}})
	tr.UpdateStatus(a.ID, StatusAccepted)

	out := tr.Markdown()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "- [Accepted]") || !strings.Contains(lines[0], "Lantern") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "- [Pending]") || !strings.Contains(lines[1], "Rope") {
		t.Errorf("line 1 = %q", lines[1])
	}
}
