package proposal

import (
	"strings"
	"testing"

	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
)

func TestAddCreate(t *testing.T) {
	tr := NewTracker()
	p := tr.AddCreate(CreateInput{
		EntityType: models.TypeCharacter,
		Data:       map[string]any{"name": "Mira"},
		Reasoning:  "mentioned in chat",
	})
	if p.ID == "" || !strings.HasPrefix(p.ID, "proposal-1-") {
		t.Errorf("id = %q", p.ID)
	}
	if p.Status != StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
	got, ok := tr.Get(p.ID)
	if !ok || got != p {
		t.Error("Get should return the registered proposal")
	}
}

func TestIDsAreSequential(t *testing.T) {
	tr := NewTracker()
	a := tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "a"}})
	b := tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "b"}})
	if a.ID == b.ID {
		t.Fatalf("duplicate ids: %q", a.ID)
	}
	if !strings.HasPrefix(b.ID, "proposal-2-") {
		t.Errorf("second id = %q", b.ID)
	}
}

func TestUpdateStatus(t *testing.T) {
	tr := NewTracker()
	p := tr.AddUpdate(UpdateInput{
		EntityType: models.TypeQuest,
		EntityID:   "q1",
		Changes:    map[string]any{"status": "done"},
	})
	got, ok := tr.UpdateStatus(p.ID, StatusAccepted)
	if !ok || got.Status != StatusAccepted {
		t.Fatalf("UpdateStatus = %+v, %v", got, ok)
	}
	// The primitive allows re-review; callers enforce review-once.
	if _, ok := tr.UpdateStatus(p.ID, StatusRejected); !ok {
		t.Error("second transition should still be permitted")
	}
	if _, ok := tr.UpdateStatus("proposal-99-0", StatusAccepted); ok {
		t.Error("unknown id should report false")
	}
}

func TestListAndFilters(t *testing.T) {
	tr := NewTracker()
	a := tr.AddCreate(CreateInput{EntityType: models.TypeLocation, Data: map[string]any{"name": "Keep"}})
	b := tr.AddRelationship(RelationshipInput{SourceName: "Mira", TargetName: "Keep", RelationshipType: "visited"})
	c := tr.AddPatch(PatchInput{EntityType: models.TypeQuest, EntityID: "q1", Patches: []patch.FieldPatch{
		{Field: "description", Type: patch.TypeUnifiedDiff, Patch: "@@ -1,1 +1,1 @@\n-x\n+y"},
	}})

	all := tr.List()
	if len(all) != 3 || all[0] != a || all[1] != b || all[2] != c {
		t.Fatalf("List = %v", all)
	}

	tr.UpdateStatus(b.ID, StatusAccepted)
	tr.UpdateStatus(c.ID, StatusRejected)

	if pending := tr.Pending(); len(pending) != 1 || pending[0] != a {
		t.Errorf("Pending = %v", pending)
	}
	if accepted := tr.Accepted(); len(accepted) != 1 || accepted[0] != b {
		t.Errorf("Accepted = %v", accepted)
	}
	if !tr.HasPending() {
		t.Error("HasPending = false with one pending proposal")
	}
	tr.UpdateStatus(a.ID, StatusAccepted)
	if tr.HasPending() {
		t.Error("HasPending = true with none pending")
	}
}

func TestClearResetsIDs(t *testing.T) {
	tr := NewTracker()
	tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "x"}})
	tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "y"}})
	tr.Clear()
	if len(tr.List()) != 0 {
		t.Fatal("Clear left proposals behind")
	}
	p := tr.AddCreate(CreateInput{EntityType: models.TypeItem, Data: map[string]any{"name": "z"}})
	if !strings.HasPrefix(p.ID, "proposal-1-") {
		t.Errorf("id after Clear = %q, want counter reset", p.ID)
	}
}

func TestOnCreateHook(t *testing.T) {
	tr := NewTracker()
	var seen []*Proposal
	tr.OnCreate(func(p *Proposal) { seen = append(seen, p) })
	p := tr.AddCreate(CreateInput{EntityType: models.TypeFaction, Data: map[string]any{"name": "Veil"}})
	if len(seen) != 1 || seen[0] != p {
		t.Errorf("hook saw %v", seen)
	}
}

func TestRelationshipBidirectionalDefault(t *testing.T) {
	tr := NewTracker()
	p := tr.AddRelationship(RelationshipInput{SourceName: "a", TargetName: "b", RelationshipType: "knows"})
	if !p.Bidirectional {
		t.Error("unset Bidirectional should default to true")
	}
	f := false
	p = tr.AddRelationship(RelationshipInput{SourceName: "a", TargetName: "b", RelationshipType: "hunts", Bidirectional: &f})
	if p.Bidirectional {
		t.Error("explicit false should be honored")
	}
}
