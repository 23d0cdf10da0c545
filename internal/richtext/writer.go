package richtext

import (
	"fmt"
	"strings"
)

// markOrder is the fixed nesting order for serializing marks: each mark in
// this order wraps the result of the previous one, so the first entry ends up
// innermost (bold+link renders as [**x**](href)).
var markOrder = []MarkType{MarkBold, MarkItalic, MarkStrike, MarkCode, MarkLink}

// DocumentToMarkdown renders a document tree as Markdown. Top-level blocks
// join with a blank line. Unrecognized block kinds fall back to rendering
// their inline content as plain text.
func DocumentToMarkdown(doc Node) string {
	var parts []string
	for _, b := range doc.Content {
		if s := renderBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(n Node) string {
	switch n.Type {
	case NodeHeading:
		level := attrInt(n.Attrs, "level", 1)
		if level < 1 {
			level = 1
		}
		if level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		return strings.Repeat("#", level) + " " + renderInlines(n.Content)

	case NodeParagraph:
		return renderInlines(n.Content)

	case NodeBulletList:
		var items []string
		for _, item := range n.Content {
			items = append(items, renderListItem(item, "- ", "  "))
		}
		return strings.Join(items, "\n")

	case NodeOrderedList:
		start := attrInt(n.Attrs, "start", 1)
		var items []string
		for i, item := range n.Content {
			prefix := fmt.Sprintf("%d. ", start+i)
			items = append(items, renderListItem(item, prefix, strings.Repeat(" ", len(prefix))))
		}
		return strings.Join(items, "\n")

	case NodeBlockquote:
		var blocks []string
		for _, child := range n.Content {
			if s := renderBlock(child); s != "" {
				blocks = append(blocks, s)
			}
		}
		return quoteLines(strings.Join(blocks, "\n\n"))

	case NodeCodeBlock:
		lang := attrString(n.Attrs, "language")
		code := inlineText(n.Content)
		return "```" + lang + "\n" + code + "\n```"

	case NodeHorizontalRule:
		return "---"

	default:
		// Foreign or unexpected kind: plain text of its inline content.
		if n.Text != "" {
			return n.Text
		}
		return renderInlines(n.Content)
	}
}

// renderListItem renders a list item's child blocks, prefixing the first line
// with the bullet and indenting continuation lines to align under it.
func renderListItem(item Node, prefix, indent string) string {
	var blocks []string
	for _, child := range item.Content {
		if s := renderBlock(child); s != "" {
			blocks = append(blocks, s)
		}
	}
	body := strings.Join(blocks, "\n")
	lines := strings.Split(body, "\n")
	var sb strings.Builder
	for i, line := range lines {
		if i == 0 {
			sb.WriteString(prefix + line)
			continue
		}
		sb.WriteString("\n")
		if line != "" {
			sb.WriteString(indent + line)
		}
	}
	return sb.String()
}

func quoteLines(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

func renderInlines(inlines []Node) string {
	var sb strings.Builder
	for _, n := range inlines {
		switch n.Type {
		case NodeText:
			sb.WriteString(applyMarks(n.Text, n.Marks))
		case NodeHardBreak:
			sb.WriteString("\n")
		default:
			// Nested unexpected inline: flatten to its text.
			sb.WriteString(inlineText(n.Content))
		}
	}
	return sb.String()
}

// applyMarks wraps text in Markdown delimiters following markOrder, so the
// serialized nesting is canonical regardless of how marks were accumulated.
func applyMarks(text string, marks []Mark) string {
	if len(marks) == 0 || text == "" {
		return text
	}
	out := text
	for _, mt := range markOrder {
		mark, ok := findMark(marks, mt)
		if !ok {
			continue
		}
		switch mt {
		case MarkBold:
			out = "**" + out + "**"
		case MarkItalic:
			out = "*" + out + "*"
		case MarkStrike:
			out = "~~" + out + "~~"
		case MarkCode:
			out = "`" + out + "`"
		case MarkLink:
			out = "[" + out + "](" + mark.Attrs["href"] + ")"
		}
	}
	return out
}

func findMark(marks []Mark, t MarkType) (Mark, bool) {
	for _, m := range marks {
		if m.Type == t {
			return m, true
		}
	}
	return Mark{}, false
}

// inlineText concatenates the raw text of inline nodes without any Markdown
// delimiters.
func inlineText(inlines []Node) string {
	var sb strings.Builder
	for _, n := range inlines {
		switch n.Type {
		case NodeText:
			sb.WriteString(n.Text)
		case NodeHardBreak:
			sb.WriteString("\n")
		default:
			sb.WriteString(inlineText(n.Content))
		}
	}
	return sb.String()
}
