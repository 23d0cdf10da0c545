package richtext

import (
	"strings"
	"testing"
)

func TestMarkdownToDocument_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\t\n"} {
		doc := MarkdownToDocument(input)
		if doc.Type != NodeDoc {
			t.Fatalf("root type = %q, want doc", doc.Type)
		}
		if len(doc.Content) != 0 {
			t.Errorf("input %q: content = %+v, want empty", input, doc.Content)
		}
	}
}

func TestMarkdownToDocument_HeadingClamp(t *testing.T) {
	doc := MarkdownToDocument("##### Deep Heading")
	if len(doc.Content) != 1 {
		t.Fatalf("blocks = %d, want 1", len(doc.Content))
	}
	h := doc.Content[0]
	if h.Type != NodeHeading {
		t.Fatalf("block type = %q, want heading", h.Type)
	}
	if got := attrInt(h.Attrs, "level", 0); got != 3 {
		t.Errorf("level = %d, want 3 (clamped)", got)
	}
	if got := inlineText(h.Content); got != "Deep Heading" {
		t.Errorf("heading text = %q", got)
	}
}

func TestMarkdownToDocument_InlineMarks(t *testing.T) {
	doc := MarkdownToDocument("plain **bold** *italic* ~~gone~~ `code` [site](https://example.com)")
	if len(doc.Content) != 1 || doc.Content[0].Type != NodeParagraph {
		t.Fatalf("blocks = %+v, want one paragraph", doc.Content)
	}
	runs := doc.Content[0].Content

	wantMark := func(text string, mark MarkType) {
		t.Helper()
		for _, r := range runs {
			if r.Type != NodeText || r.Text != text {
				continue
			}
			if _, ok := findMark(r.Marks, mark); !ok {
				t.Errorf("run %q missing mark %q, got %+v", text, mark, r.Marks)
			}
			return
		}
		t.Errorf("no text run %q in %+v", text, runs)
	}
	wantMark("bold", MarkBold)
	wantMark("italic", MarkItalic)
	wantMark("gone", MarkStrike)
	wantMark("code", MarkCode)
	wantMark("site", MarkLink)

	for _, r := range runs {
		if r.Text == "site" {
			if m, ok := findMark(r.Marks, MarkLink); !ok || m.Attrs["href"] != "https://example.com" {
				t.Errorf("link href = %+v", r.Marks)
			}
		}
	}
}

func TestMarkdownToDocument_NestedMarks(t *testing.T) {
	doc := MarkdownToDocument("***both***")
	runs := doc.Content[0].Content
	if len(runs) != 1 {
		t.Fatalf("runs = %+v, want 1", runs)
	}
	if _, ok := findMark(runs[0].Marks, MarkBold); !ok {
		t.Errorf("missing bold mark: %+v", runs[0].Marks)
	}
	if _, ok := findMark(runs[0].Marks, MarkItalic); !ok {
		t.Errorf("missing italic mark: %+v", runs[0].Marks)
	}
}

func TestMarkdownToDocument_Lists(t *testing.T) {
	doc := MarkdownToDocument("- one\n- two\n\n3. three\n4. four")
	if len(doc.Content) != 2 {
		t.Fatalf("blocks = %d, want 2", len(doc.Content))
	}

	bullet := doc.Content[0]
	if bullet.Type != NodeBulletList || len(bullet.Content) != 2 {
		t.Fatalf("bullet list = %+v", bullet)
	}
	item := bullet.Content[0]
	if item.Type != NodeListItem || len(item.Content) == 0 || item.Content[0].Type != NodeParagraph {
		t.Errorf("list item should hold a paragraph, got %+v", item)
	}

	ordered := doc.Content[1]
	if ordered.Type != NodeOrderedList {
		t.Fatalf("second block type = %q", ordered.Type)
	}
	if got := attrInt(ordered.Attrs, "start", 0); got != 3 {
		t.Errorf("ordered start = %d, want 3", got)
	}
}

func TestMarkdownToDocument_BlockquoteAndCode(t *testing.T) {
	doc := MarkdownToDocument("> quoted line\n\n```go\nfmt.Println(\"hi\")\n```\n\n---")
	if len(doc.Content) != 3 {
		t.Fatalf("blocks = %d, want 3", len(doc.Content))
	}
	if doc.Content[0].Type != NodeBlockquote {
		t.Errorf("block 0 = %q, want blockquote", doc.Content[0].Type)
	}
	code := doc.Content[1]
	if code.Type != NodeCodeBlock {
		t.Fatalf("block 1 = %q, want codeBlock", code.Type)
	}
	if got := attrString(code.Attrs, "language"); got != "go" {
		t.Errorf("language = %q, want go", got)
	}
	if got := inlineText(code.Content); got != "fmt.Println(\"hi\")" {
		t.Errorf("code text = %q", got)
	}
	if doc.Content[2].Type != NodeHorizontalRule {
		t.Errorf("block 2 = %q, want horizontalRule", doc.Content[2].Type)
	}
}

func TestMarkdownToDocument_TableFlattens(t *testing.T) {
	doc := MarkdownToDocument("| Name | Role |\n| --- | --- |\n| Mira | Captain |")
	if len(doc.Content) != 1 || doc.Content[0].Type != NodeParagraph {
		t.Fatalf("table should flatten to one paragraph, got %+v", doc.Content)
	}
	text := inlineText(doc.Content[0].Content)
	if !strings.Contains(text, "Name | Role") || !strings.Contains(text, "Mira | Captain") {
		t.Errorf("flattened table = %q", text)
	}
}

func TestMarkdownToDocument_HTMLBecomesText(t *testing.T) {
	doc := MarkdownToDocument("<div>raw content</div>")
	if len(doc.Content) != 1 || doc.Content[0].Type != NodeParagraph {
		t.Fatalf("blocks = %+v", doc.Content)
	}
	if got := inlineText(doc.Content[0].Content); !strings.Contains(got, "raw content") {
		t.Errorf("html fallback text = %q", got)
	}
}

func TestMarkdownToDocument_InlineHTMLBecomesText(t *testing.T) {
	doc := MarkdownToDocument("a <sup>raised</sup> rune")
	if len(doc.Content) != 1 || doc.Content[0].Type != NodeParagraph {
		t.Fatalf("blocks = %+v", doc.Content)
	}
	got := inlineText(doc.Content[0].Content)
	for _, want := range []string{"<sup>", "raised", "</sup>", "rune"} {
		if !strings.Contains(got, want) {
			t.Errorf("inline html text = %q, missing %q", got, want)
		}
	}
}

func TestMarkdownToDocument_HardBreak(t *testing.T) {
	doc := MarkdownToDocument("first line  \nsecond line")
	runs := doc.Content[0].Content
	var sawBreak bool
	for _, r := range runs {
		if r.Type == NodeHardBreak {
			sawBreak = true
		}
	}
	if !sawBreak {
		t.Errorf("no hardBreak in %+v", runs)
	}
}

func TestParseDocument_RejectsNonDoc(t *testing.T) {
	if _, err := ParseDocument(`{"type":"paragraph"}`); err == nil {
		t.Error("paragraph root should be rejected")
	}
	if _, err := ParseDocument("not json"); err == nil {
		t.Error("invalid JSON should be rejected")
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	doc := MarkdownToDocument("# Title\n\nSome **bold** prose.")
	stored, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseDocument(stored)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if DocumentToMarkdown(back) != DocumentToMarkdown(doc) {
		t.Error("storage round trip changed rendering")
	}
}
