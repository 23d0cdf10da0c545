package richtext

import (
	"regexp"
	"strings"
)

var (
	blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

	// Heuristics for LooksLikeMarkdown. Not authoritative: callers use this
	// to pick a default converter, never for correctness.
	markdownHints = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#{1,6}\s`),              // heading
		regexp.MustCompile(`(\*\*|__).+?(\*\*|__)`),      // bold
		regexp.MustCompile(`(^|\s)\*[^*\s][^*]*\*`),      // italic
		regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s`),    // list
		regexp.MustCompile(`(?m)^>\s?`),                  // blockquote
		regexp.MustCompile("`[^`]+`|```"),                // code
		regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`),        // link
		regexp.MustCompile(`~~[^~]+~~`),                  // strikethrough
	}
)

// PlainTextToDocument splits text on blank-line boundaries into paragraphs
// without any Markdown parsing. Use it when content is known not to be
// Markdown.
func PlainTextToDocument(text string) Node {
	if strings.TrimSpace(text) == "" {
		return Doc()
	}
	var blocks []Node
	for _, para := range blankLineRe.Split(text, -1) {
		para = strings.TrimRight(strings.TrimLeft(para, "\n"), "\n ")
		if strings.TrimSpace(para) == "" {
			continue
		}
		blocks = append(blocks, Node{
			Type:    NodeParagraph,
			Content: []Node{{Type: NodeText, Text: para}},
		})
	}
	if len(blocks) == 0 {
		blocks = []Node{{Type: NodeParagraph}}
	}
	return Doc(blocks...)
}

// LooksLikeMarkdown reports whether text appears to contain Markdown
// formatting. It is a UX heuristic only.
func LooksLikeMarkdown(text string) bool {
	for _, re := range markdownHints {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractPlainText flattens the JSON storage form of a document into plain
// text: blocks newline-joined, inline runs concatenated. Input that is not a
// valid document is returned unchanged, because this path feeds display and
// search indexing, never mutation.
func ExtractPlainText(stored string) string {
	doc, err := ParseDocument(stored)
	if err != nil {
		return stored
	}
	var lines []string
	for _, b := range doc.Content {
		collectBlockText(b, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectBlockText(n Node, lines *[]string) {
	switch n.Type {
	case NodeHorizontalRule:
		return
	case NodeCodeBlock, NodeHeading, NodeParagraph:
		if s := inlineText(n.Content); s != "" {
			*lines = append(*lines, s)
		}
	case NodeBulletList, NodeOrderedList, NodeListItem, NodeBlockquote:
		for _, c := range n.Content {
			collectBlockText(c, lines)
		}
	case NodeText:
		if n.Text != "" {
			*lines = append(*lines, n.Text)
		}
	default:
		if s := inlineText(n.Content); s != "" {
			*lines = append(*lines, s)
		}
	}
}
