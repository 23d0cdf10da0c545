package richtext

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// maxHeadingLevel is the editor ceiling; deeper headings are clamped.
const maxHeadingLevel = 3

var md = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table),
)

// MarkdownToDocument parses Markdown text into a document tree. Unsupported
// constructs degrade: tables flatten to a pipe-joined paragraph, raw HTML
// becomes plain text, unknown inlines keep their text content and any marks
// already accumulated on the enclosing span. Empty or whitespace-only input
// yields a document with no content; non-empty input that produces no usable
// blocks yields a single empty paragraph so editors always have a cursor
// position.
func MarkdownToDocument(markdown string) Node {
	if strings.TrimSpace(markdown) == "" {
		return Doc()
	}

	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	var blocks []Node
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if b, ok := convertBlock(c, source); ok {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		blocks = []Node{{Type: NodeParagraph}}
	}
	return Doc(blocks...)
}

func convertBlock(n ast.Node, src []byte) (Node, bool) {
	switch v := n.(type) {
	case *ast.Heading:
		level := v.Level
		if level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		if level < 1 {
			level = 1
		}
		return Node{
			Type:    NodeHeading,
			Attrs:   map[string]any{"level": level},
			Content: convertInlines(v, src, nil),
		}, true

	case *ast.Paragraph:
		return paragraphNode(convertInlines(v, src, nil))

	case *ast.TextBlock:
		// Tight list items hold text blocks; treat them as paragraphs so
		// lists always contain block-level children.
		return paragraphNode(convertInlines(v, src, nil))

	case *ast.List:
		return listNode(v, src)

	case *ast.ListItem:
		return listItemNode(v, src), true

	case *ast.Blockquote:
		var children []Node
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			if b, ok := convertBlock(c, src); ok {
				children = append(children, b)
			}
		}
		if len(children) == 0 {
			return Node{}, false
		}
		return Node{Type: NodeBlockquote, Content: children}, true

	case *ast.FencedCodeBlock:
		return codeBlockNode(v, string(v.Language(src)), src), true

	case *ast.CodeBlock:
		return codeBlockNode(v, "", src), true

	case *ast.ThematicBreak:
		return Node{Type: NodeHorizontalRule}, true

	case *east.Table:
		return tableFallback(v, src)

	case *ast.HTMLBlock:
		return htmlFallback(blockLines(v, src))

	default:
		// Unknown block kind: keep its text content as a paragraph.
		return htmlFallback(nodePlainText(n, src))
	}
}

// paragraphNode drops paragraphs whose content is empty.
func paragraphNode(inlines []Node) (Node, bool) {
	if len(inlines) == 0 {
		return Node{}, false
	}
	return Node{Type: NodeParagraph, Content: inlines}, true
}

func listNode(l *ast.List, src []byte) (Node, bool) {
	var items []Node
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		items = append(items, listItemNode(item, src))
	}
	if len(items) == 0 {
		return Node{}, false
	}
	if l.IsOrdered() {
		start := l.Start
		if start < 1 {
			start = 1
		}
		return Node{
			Type:    NodeOrderedList,
			Attrs:   map[string]any{"start": start},
			Content: items,
		}, true
	}
	return Node{Type: NodeBulletList, Content: items}, true
}

func listItemNode(item *ast.ListItem, src []byte) Node {
	var children []Node
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if b, ok := convertBlock(c, src); ok {
			children = append(children, b)
		}
	}
	if len(children) == 0 {
		children = []Node{{Type: NodeParagraph}}
	}
	return Node{Type: NodeListItem, Content: children}
}

func codeBlockNode(n ast.Node, language string, src []byte) Node {
	code := blockLines(n, src)
	code = strings.TrimSuffix(code, "\n")
	var attrs map[string]any
	if language != "" {
		attrs = map[string]any{"language": language}
	}
	var content []Node
	if code != "" {
		content = []Node{{Type: NodeText, Text: code}}
	}
	return Node{Type: NodeCodeBlock, Attrs: attrs, Content: content}
}

// tableFallback flattens a table into a single paragraph with pipe-joined
// cells, one line per row.
func tableFallback(t *east.Table, src []byte) (Node, bool) {
	var rows []string
	appendRow := func(row ast.Node) {
		var cells []string
		for c := row.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, strings.TrimSpace(nodePlainText(c, src)))
		}
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	}
	for c := t.FirstChild(); c != nil; c = c.NextSibling() {
		switch r := c.(type) {
		case *east.TableHeader:
			appendRow(r)
		case *east.TableRow:
			appendRow(r)
		}
	}
	text := strings.TrimSpace(strings.Join(rows, "\n"))
	if text == "" {
		return Node{}, false
	}
	return Node{Type: NodeParagraph, Content: []Node{{Type: NodeText, Text: text}}}, true
}

// htmlFallback turns raw HTML (or any other unsupported block text) into a
// plain paragraph, dropping whitespace-only content.
func htmlFallback(raw string) (Node, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Node{}, false
	}
	return Node{Type: NodeParagraph, Content: []Node{{Type: NodeText, Text: trimmed}}}, true
}

// convertInlines walks the inline children of parent, accumulating marks on
// nested emphasis/link spans. Consecutive text runs with identical marks are
// merged.
func convertInlines(parent ast.Node, src []byte, marks []Mark) []Node {
	var out []Node

	appendText := func(s string, m []Mark) {
		if s == "" {
			return
		}
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Type == NodeText && marksEqual(last.Marks, m) {
				last.Text += s
				return
			}
		}
		out = append(out, Node{Type: NodeText, Text: s, Marks: copyMarks(m)})
	}

	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			appendText(string(v.Segment.Value(src)), marks)
			if v.HardLineBreak() {
				out = append(out, Node{Type: NodeHardBreak})
			} else if v.SoftLineBreak() {
				appendText(" ", marks)
			}

		case *ast.String:
			appendText(string(v.Value), marks)

		case *ast.Emphasis:
			mark := Mark{Type: MarkItalic}
			if v.Level >= 2 {
				mark = Mark{Type: MarkBold}
			}
			out = append(out, convertInlines(v, src, append(copyMarks(marks), mark))...)

		case *east.Strikethrough:
			out = append(out, convertInlines(v, src, append(copyMarks(marks), Mark{Type: MarkStrike}))...)

		case *ast.CodeSpan:
			appendText(nodePlainText(v, src), append(copyMarks(marks), Mark{Type: MarkCode}))

		case *ast.Link:
			mark := Mark{Type: MarkLink, Attrs: map[string]string{"href": string(v.Destination)}}
			out = append(out, convertInlines(v, src, append(copyMarks(marks), mark))...)

		case *ast.AutoLink:
			url := string(v.URL(src))
			appendText(url, append(copyMarks(marks), Mark{Type: MarkLink, Attrs: map[string]string{"href": url}}))

		case *ast.Image:
			// Degrade to the alt text.
			appendText(nodePlainText(v, src), marks)

		case *ast.RawHTML:
			appendText(segmentsText(v.Segments, src), marks)

		default:
			// Unknown inline: keep plain text, preserving accumulated marks.
			appendText(nodePlainText(c, src), marks)
		}
	}
	return out
}

func copyMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	copy(out, marks)
	return out
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
		if a[i].Attrs["href"] != b[i].Attrs["href"] {
			return false
		}
	}
	return true
}

// blockLines joins the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

func segmentsText(segs *text.Segments, src []byte) string {
	if segs == nil {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

// nodePlainText extracts the raw text content of any node, recursively.
func nodePlainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.String:
			sb.Write(v.Value)
		default:
			if node.Type() == ast.TypeBlock && node.Lines().Len() > 0 && !node.HasChildren() {
				sb.WriteString(blockLines(node, src))
				return
			}
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
