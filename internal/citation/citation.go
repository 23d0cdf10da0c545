// Package citation parses inline entity references of the form
// [[type:uuid:name]] from AI-authored or user-authored text. Every helper in
// the package derives from the single compiled grammar below so they can
// never drift apart.
package citation

import (
	"fmt"
	"regexp"
)

// citationRe is the citation grammar: a bare-word entity type, a 36-character
// lowercase hex-and-dash UUID, and a display name running to the closing
// brackets. UUID matching is deliberately lowercase-only.
var citationRe = regexp.MustCompile(`\[\[([A-Za-z][A-Za-z0-9_]*):([a-f0-9-]{36}):([^\]]+)\]\]`)

// Citation is one parsed entity reference. Start and End are byte offsets of
// the raw match within the scanned text.
type Citation struct {
	Raw         string `json:"raw"`
	EntityType  string `json:"entityType"`
	EntityID    string `json:"entityId"`
	DisplayName string `json:"displayName"`
	Start       int    `json:"startIndex"`
	End         int    `json:"endIndex"`
}

// SegmentType tags a content segment as plain text or a citation.
type SegmentType string

const (
	SegmentText     SegmentType = "text"
	SegmentCitation SegmentType = "citation"
)

// Segment is one slice of a partitioned string. Concatenating Content over
// all segments reconstructs the original text exactly.
type Segment struct {
	Type     SegmentType `json:"type"`
	Content  string      `json:"content"`
	Citation *Citation   `json:"citation,omitempty"`
}

// Parse scans text left to right for non-overlapping citations, ordered by
// start index.
func Parse(text string) []Citation {
	matches := citationRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Citation, 0, len(matches))
	for _, m := range matches {
		out = append(out, Citation{
			Raw:         text[m[0]:m[1]],
			EntityType:  text[m[2]:m[3]],
			EntityID:    text[m[4]:m[5]],
			DisplayName: text[m[6]:m[7]],
			Start:       m[0],
			End:         m[1],
		})
	}
	return out
}

// Segments partitions text into alternating text and citation segments.
func Segments(text string) []Segment {
	citations := Parse(text)
	var out []Segment
	cursor := 0
	for i := range citations {
		c := citations[i]
		if c.Start > cursor {
			out = append(out, Segment{Type: SegmentText, Content: text[cursor:c.Start]})
		}
		out = append(out, Segment{Type: SegmentCitation, Content: c.Raw, Citation: &citations[i]})
		cursor = c.End
	}
	if cursor < len(text) {
		out = append(out, Segment{Type: SegmentText, Content: text[cursor:]})
	}
	return out
}

// Format renders a citation in the wire grammar.
func Format(entityType, entityID, displayName string) string {
	return fmt.Sprintf("[[%s:%s:%s]]", entityType, entityID, displayName)
}

// Strip replaces each citation with its display name.
func Strip(text string) string {
	segments := Segments(text)
	var out []byte
	for _, s := range segments {
		if s.Type == SegmentCitation {
			out = append(out, s.Citation.DisplayName...)
			continue
		}
		out = append(out, s.Content...)
	}
	return string(out)
}

// Has reports whether text contains at least one citation.
func Has(text string) bool {
	return citationRe.MatchString(text)
}

// Count returns the number of citations in text.
func Count(text string) int {
	return len(citationRe.FindAllStringIndex(text, -1))
}
