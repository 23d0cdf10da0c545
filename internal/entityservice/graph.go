package entityservice

import "context"

// GraphNode is an entity in the relationship graph.
type GraphNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// GraphLink is an edge in the relationship graph.
type GraphLink struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	Type          string `json:"type"`
	Bidirectional bool   `json:"isBidirectional"`
}

// Graph returns every entity and relationship as a node/link view for the
// campaign graph panel.
func (s *Service) Graph(_ context.Context) ([]GraphNode, []GraphLink, error) {
	refs, err := s.db.EntityRefs()
	if err != nil {
		return nil, nil, err
	}
	rels, err := s.db.AllRelationships()
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, len(refs))
	for i, ref := range refs {
		nodes[i] = GraphNode{ID: ref.ID, Type: string(ref.Type), Name: ref.Name}
	}
	links := make([]GraphLink, len(rels))
	for i, r := range rels {
		links[i] = GraphLink{
			Source:        r.SourceID,
			Target:        r.TargetID,
			Type:          r.Type,
			Bidirectional: r.Bidirectional,
		}
	}
	return nodes, links, nil
}
