// Package patch applies untrusted, AI-authored patches to entity field
// values. Prose fields take line-oriented unified diffs, structured fields
// take RFC 6902 JSON Patch. Application is fail-closed: nothing is written
// unless the whole patch validates against the current content.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

type hunk struct {
	oldStart int
	lines    []string // with leading ' ', '-' or '+' markers
}

// ApplyUnifiedDiff applies a unified-diff hunk set to original and returns
// the patched text. File headers (---/+++), git headers, and "no newline"
// markers are tolerated and ignored. If any context or deletion line does not
// match the original content the whole application fails — there is no
// partial application.
func ApplyUnifiedDiff(original, patchText string) (string, error) {
	hunks, err := parseHunks(patchText)
	if err != nil {
		return "", err
	}
	if len(hunks) == 0 {
		return "", fmt.Errorf("unified diff contains no hunks")
	}

	// An empty original has zero lines, not one empty line. Otherwise a
	// creation-style hunk (@@ -0,0 +N @@) would re-append the residual ""
	// and grow a stray trailing newline.
	var src []string
	if original != "" {
		src = strings.Split(original, "\n")
	}
	var out []string
	cursor := 0

	for i, h := range hunks {
		idx := h.oldStart - 1
		if idx < 0 {
			idx = 0
		}
		if idx < cursor || idx > len(src) {
			return "", fmt.Errorf("hunk %d targets line %d outside the original content", i+1, h.oldStart)
		}
		out = append(out, src[cursor:idx]...)

		for _, line := range h.lines {
			op := line[0]
			body := line[1:]
			switch op {
			case ' ':
				if idx >= len(src) || src[idx] != body {
					return "", contextMismatch(i+1, idx, src, body)
				}
				out = append(out, body)
				idx++
			case '-':
				if idx >= len(src) || src[idx] != body {
					return "", contextMismatch(i+1, idx, src, body)
				}
				idx++
			case '+':
				out = append(out, body)
			}
		}
		cursor = idx
	}

	out = append(out, src[cursor:]...)
	return strings.Join(out, "\n"), nil
}

func contextMismatch(hunkNum, idx int, src []string, want string) error {
	got := "<end of content>"
	if idx < len(src) {
		got = fmt.Sprintf("%q", src[idx])
	}
	return fmt.Errorf("hunk %d does not match original content at line %d: expected %q, found %s",
		hunkNum, idx+1, want, got)
}

// parseHunks extracts hunks from unified-diff text. The header's line counts
// drive how many lines belong to each hunk, so trailing padding or headers
// between hunks are never misread as content. An empty line inside a hunk
// counts as an empty context line (some generators omit the leading space).
func parseHunks(patchText string) ([]hunk, error) {
	var hunks []hunk
	var cur *hunk
	oldLeft, newLeft := 0, 0

	for _, line := range strings.Split(patchText, "\n") {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			start, _ := strconv.Atoi(m[1])
			hunks = append(hunks, hunk{oldStart: start})
			cur = &hunks[len(hunks)-1]
			oldLeft = countOrDefault(m[2])
			newLeft = countOrDefault(m[4])
			continue
		}
		if cur == nil || (oldLeft <= 0 && newLeft <= 0) {
			continue // header noise or padding between hunks
		}
		if strings.HasPrefix(line, `\ No newline`) {
			continue
		}
		if line == "" {
			line = " "
		}
		switch line[0] {
		case ' ':
			oldLeft--
			newLeft--
		case '-':
			oldLeft--
		case '+':
			newLeft--
		default:
			return nil, fmt.Errorf("malformed hunk line %q", line)
		}
		cur.lines = append(cur.lines, line)
	}

	if oldLeft > 0 || newLeft > 0 {
		return nil, fmt.Errorf("unified diff is truncated: hunk is missing %d line(s)", oldLeft+newLeft)
	}
	return hunks, nil
}

func countOrDefault(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}

// GenerateUnifiedDiff produces a unified diff turning original into updated,
// used for human review of proposed prose changes.
func GenerateUnifiedDiff(original, updated string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(updated),
		FromFile: "current",
		ToFile:   "proposed",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("generate diff: %w", err)
	}
	return text, nil
}
