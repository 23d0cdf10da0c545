package citation

import "testing"

const miraID = "0d9f1a2b-3c4d-4e5f-8a6b-7c8d9e0f1a2b"

func TestParse(t *testing.T) {
	text := "The party met [[character:" + miraID + ":Mira]] at the gate."
	cs := Parse(text)
	if len(cs) != 1 {
		t.Fatalf("citations = %d, want 1", len(cs))
	}
	c := cs[0]
	if c.EntityType != "character" || c.EntityID != miraID || c.DisplayName != "Mira" {
		t.Errorf("parsed = %+v", c)
	}
	if text[c.Start:c.End] != c.Raw {
		t.Errorf("offsets do not cover raw match: %q vs %q", text[c.Start:c.End], c.Raw)
	}
}

func TestParse_MultipleOrdered(t *testing.T) {
	text := Format("location", miraID, "Keep") + " then " + Format("quest", miraID, "Siege")
	cs := Parse(text)
	if len(cs) != 2 {
		t.Fatalf("citations = %d, want 2", len(cs))
	}
	if cs[0].EntityType != "location" || cs[1].EntityType != "quest" {
		t.Errorf("order wrong: %+v", cs)
	}
	if cs[0].Start >= cs[1].Start {
		t.Error("citations not ordered by start index")
	}
}

func TestParse_RejectsUppercaseUUID(t *testing.T) {
	upper := "0D9F1A2B-3C4D-4E5F-8A6B-7C8D9E0F1A2B"
	if cs := Parse("[[character:" + upper + ":Mira]]"); len(cs) != 0 {
		t.Errorf("uppercase UUID accepted: %+v", cs)
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	cases := []string{
		"[[character:short-id:Mira]]",
		"[[character:" + miraID + "]]",
		"[character:" + miraID + ":Mira]",
		"[[:" + miraID + ":Mira]]",
		"no citation here",
	}
	for _, text := range cases {
		if cs := Parse(text); len(cs) != 0 {
			t.Errorf("%q parsed as %+v", text, cs)
		}
	}
}

func TestSegmentsReconstructInput(t *testing.T) {
	text := "before " + Format("item", miraID, "Lantern") + " middle " + Format("lore", miraID, "The Fall") + " after"
	segs := Segments(text)
	if len(segs) != 5 {
		t.Fatalf("segments = %d, want 5", len(segs))
	}
	var rebuilt string
	for _, s := range segs {
		rebuilt += s.Content
	}
	if rebuilt != text {
		t.Errorf("concatenated segments = %q, want original", rebuilt)
	}
	if segs[1].Type != SegmentCitation || segs[1].Citation == nil || segs[1].Citation.DisplayName != "Lantern" {
		t.Errorf("segment 1 = %+v", segs[1])
	}
	if segs[0].Type != SegmentText || segs[0].Content != "before " {
		t.Errorf("segment 0 = %+v", segs[0])
	}
}

func TestSegments_NoCitations(t *testing.T) {
	segs := Segments("plain prose")
	if len(segs) != 1 || segs[0].Type != SegmentText || segs[0].Content != "plain prose" {
		t.Errorf("segments = %+v", segs)
	}
}

func TestStrip(t *testing.T) {
	text := "Ask " + Format("character", miraID, "Mira") + " about the siege."
	if got := Strip(text); got != "Ask Mira about the siege." {
		t.Errorf("Strip = %q", got)
	}
	if got := Strip("untouched"); got != "untouched" {
		t.Errorf("Strip without citations = %q", got)
	}
}

func TestHasAndCount(t *testing.T) {
	text := Format("faction", miraID, "The Veil") + " and " + Format("faction", miraID, "The Dawn")
	if !Has(text) {
		t.Error("Has = false")
	}
	if Has("nothing") {
		t.Error("Has = true for plain text")
	}
	if got := Count(text); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	raw := Format("quest", miraID, "Relight the Beacons")
	cs := Parse(raw)
	if len(cs) != 1 {
		t.Fatalf("citations = %d", len(cs))
	}
	if cs[0].Raw != raw {
		t.Errorf("raw = %q, want %q", cs[0].Raw, raw)
	}
}
