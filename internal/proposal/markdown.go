package proposal

import (
	"fmt"
	"sort"
	"strings"
)

var statusMarkers = map[Status]string{
	StatusPending:  "[Pending]",
	StatusAccepted: "[Accepted]",
	StatusRejected: "[Rejected]",
}

// Markdown renders the proposal as a single human-readable summary line,
// used to re-inject proposal state into the assistant's context.
func (p *Proposal) Markdown() string {
	marker, ok := statusMarkers[p.Status]
	if !ok {
		marker = "[" + string(p.Status) + "]"
	}

	var body string
	switch p.Operation {
	case OpCreate:
		name, _ := p.Data["name"].(string)
		body = fmt.Sprintf("Create %s %q (%d field(s))", p.EntityType, name, len(p.Data))
		if n := len(p.SuggestedRelationships); n > 0 {
			body += fmt.Sprintf(", %d suggested relationship(s)", n)
		}
	case OpUpdate:
		body = fmt.Sprintf("Update %s %s: %s", p.EntityType, p.EntityID, joinKeys(p.Changes))
	case OpPatch:
		var fields []string
		for _, fp := range p.Patches {
			fields = append(fields, fmt.Sprintf("%s (%s)", fp.Field, fp.Type))
		}
		body = fmt.Sprintf("Patch %s %s: %s", p.EntityType, p.EntityID, strings.Join(fields, ", "))
	case OpRelationship:
		arrow := fmt.Sprintf("-[%s]->", p.RelationshipType)
		if p.Bidirectional {
			arrow = fmt.Sprintf("<-[%s]->", p.RelationshipType)
		}
		body = fmt.Sprintf("Relationship: %s (%s) %s %s (%s)",
			p.SourceName, p.SourceType, arrow, p.TargetName, p.TargetType)
	default:
		body = fmt.Sprintf("%s %s %s", p.Operation, p.EntityType, p.EntityID)
	}

	line := fmt.Sprintf("%s %s %s", marker, p.ID, body)
	if p.Reasoning != "" {
		line += " | " + p.Reasoning
	}
	return line
}

func joinKeys(m map[string]any) string {
	if len(m) == 0 {
		return "(no fields)"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// Markdown renders every proposal, one line each, in insertion order.
func (t *Tracker) Markdown() string {
	all := t.List()
	if len(all) == 0 {
		return "No proposals."
	}
	lines := make([]string, 0, len(all))
	for _, p := range all {
		lines = append(lines, "- "+p.Markdown())
	}
	return strings.Join(lines, "\n")
}
