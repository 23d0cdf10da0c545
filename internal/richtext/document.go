// Package richtext converts between the block-structured document model used
// for rich-text entity fields and Markdown text. Conversion is best-effort:
// unsupported Markdown constructs degrade to plain text instead of failing,
// because AI-generated and legacy content is untrusted and must never crash
// an editing surface.
package richtext

import (
	"encoding/json"
	"errors"
)

var errNotDocument = errors.New("richtext: root node is not a document")

// NodeType enumerates the document node kinds. The set is closed; unknown
// kinds only exist at the Markdown-parsing boundary, where they degrade to
// plain text before a Node is ever built.
type NodeType string

const (
	NodeDoc            NodeType = "doc"
	NodeHeading        NodeType = "heading"
	NodeParagraph      NodeType = "paragraph"
	NodeBulletList     NodeType = "bulletList"
	NodeOrderedList    NodeType = "orderedList"
	NodeListItem       NodeType = "listItem"
	NodeBlockquote     NodeType = "blockquote"
	NodeCodeBlock      NodeType = "codeBlock"
	NodeHorizontalRule NodeType = "horizontalRule"
	NodeHardBreak      NodeType = "hardBreak"
	NodeText           NodeType = "text"
)

// MarkType enumerates inline formatting marks.
type MarkType string

const (
	MarkBold   MarkType = "bold"
	MarkItalic MarkType = "italic"
	MarkStrike MarkType = "strike"
	MarkCode   MarkType = "code"
	MarkLink   MarkType = "link"
)

// Mark is an inline formatting annotation on a text run. Link marks carry an
// "href" attribute.
type Mark struct {
	Type  MarkType          `json:"type"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Node is one node of a document tree. Which fields are populated depends on
// Type: text nodes carry Text and Marks, container nodes carry Content,
// headings and code blocks carry Attrs.
type Node struct {
	Type    NodeType       `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Doc builds a document root from the given blocks. A document with no
// content is valid and means "no content".
func Doc(blocks ...Node) Node {
	return Node{Type: NodeDoc, Content: blocks}
}

// ParseDocument decodes the JSON storage form of a document. The root node
// must be of kind "doc".
func ParseDocument(stored string) (Node, error) {
	var n Node
	if err := json.Unmarshal([]byte(stored), &n); err != nil {
		return Node{}, err
	}
	if n.Type != NodeDoc {
		return Node{}, errNotDocument
	}
	return n, nil
}

// MarshalDocument encodes a document into its JSON storage form.
func MarshalDocument(doc Node) (string, error) {
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// attrInt reads an integer attribute, tolerating the float64 that JSON
// decoding produces.
func attrInt(attrs map[string]any, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// attrString reads a string attribute.
func attrString(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}
