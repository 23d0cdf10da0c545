// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lorekeep tools for LLM integration via stdio transport.
//
// Reads hit the campaign directly; every write is registered as a proposal
// and held for human review.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marchglen/lorekeep/internal/assist"
	"github.com/marchglen/lorekeep/internal/entityservice"
	"github.com/marchglen/lorekeep/internal/models"
	"github.com/marchglen/lorekeep/internal/patch"
	"github.com/marchglen/lorekeep/internal/proposal"
	"github.com/marchglen/lorekeep/internal/storage"
)

// Server wraps the MCP server with Lorekeep tools. It owns one assistance
// session; all proposals made over stdio land in that session's tracker.
type Server struct {
	mcp     *server.MCPServer
	svc     *entityservice.Service
	store   storage.Provider
	session *assist.Session
}

// New creates a new MCP server with all Lorekeep tools registered.
func New(svc *entityservice.Service, store storage.Provider, sessions *assist.Manager) *Server {
	s := &Server{
		svc:     svc,
		store:   store,
		session: sessions.StartSession(),
	}

	s.mcp = server.NewMCPServer(
		"Lorekeep",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entities",
		mcp.WithDescription("Full-text search through campaign entities (characters, locations, quests, items, factions, lore)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntities)

	s.mcp.AddTool(mcp.NewTool("read_entity",
		mcp.WithDescription("Read one entity rendered as Markdown, including its relationships."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity ID")),
	), s.readEntity)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List entities, optionally filtered by type."),
		mcp.WithString("type", mcp.Description("Optional entity type filter (character, location, quest, item, faction, lore)")),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("propose_create",
		mcp.WithDescription("Propose creating a new entity. Nothing is written until a human accepts the proposal. "+
			"Field values may be Markdown. Read the contract first via the get_authoring_contract tool or the "+
			"lorekeep://authoring-contract resource."),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Entity type (character, location, quest, item, faction, lore)")),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object of field values; must include \"name\"")),
		mcp.WithString("reasoning", mcp.Description("Why this entity should exist")),
		mcp.WithString("parent_id", mcp.Description("Optional ID of an entity the new one belongs under")),
		mcp.WithString("suggested_relationships", mcp.Description("Optional JSON array of {targetType, targetName, relationshipType, description}")),
	), s.proposeCreate)

	s.mcp.AddTool(mcp.NewTool("propose_update",
		mcp.WithDescription("Propose replacing named fields of an entity. Nothing is written until a human accepts."),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity ID")),
		mcp.WithString("changes", mcp.Required(), mcp.Description("JSON object of field values to replace")),
		mcp.WithString("reasoning", mcp.Description("Why the change is needed")),
	), s.proposeUpdate)

	s.mcp.AddTool(mcp.NewTool("propose_patch",
		mcp.WithDescription("Propose targeted edits to entity fields using unified diffs (for prose) or "+
			"JSON Patch (for structured data). Preferred over propose_update for small edits to long fields. "+
			"Patches are validated against the current content before the proposal is registered."),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity ID")),
		mcp.WithString("patches", mcp.Required(), mcp.Description(`JSON array of {"field", "patchType" ("unified_diff" or "json_patch"), "patch"}`)),
		mcp.WithString("reasoning", mcp.Description("Why the edit is needed")),
	), s.proposePatch)

	s.mcp.AddTool(mcp.NewTool("propose_relationship",
		mcp.WithDescription("Propose relating two entities. Endpoints may be given by ID or by type and name."),
		mcp.WithString("source_id", mcp.Description("Source entity ID")),
		mcp.WithString("source_type", mcp.Description("Source entity type (when no ID)")),
		mcp.WithString("source_name", mcp.Description("Source entity name (when no ID)")),
		mcp.WithString("target_id", mcp.Description("Target entity ID")),
		mcp.WithString("target_type", mcp.Description("Target entity type (when no ID)")),
		mcp.WithString("target_name", mcp.Description("Target entity name (when no ID)")),
		mcp.WithString("relationship_type", mcp.Required(), mcp.Description("Relationship type, e.g. ally_of, lives_in")),
		mcp.WithString("description", mcp.Description("Optional description of the relationship")),
		mcp.WithString("bidirectional", mcp.Description("\"false\" for a one-way relationship (default true)")),
		mcp.WithString("reasoning", mcp.Description("Why the relationship should exist")),
	), s.proposeRelationship)

	s.mcp.AddTool(mcp.NewTool("list_proposals",
		mcp.WithDescription("List this session's proposals and their review status as Markdown."),
	), s.listProposals)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or PDF from a URL (or decode a data: URI) and attach it to an entity. "+
			"Returns a markdownImage field ready to paste into a rich-text field."),
		mcp.WithString("entity_id", mcp.Required(), mcp.Description("Entity the asset belongs to")),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data: URI")),
		mcp.WithString("filename", mcp.Description("Optional file name override")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_authoring_contract",
		mcp.WithDescription("Returns the canonical Lorekeep authoring contract: entity types and fields, "+
			"citation syntax, and patch formats. Call this before proposing changes."),
	), s.getAuthoringContract)

	// Resource: authoring contract.
	s.mcp.AddResource(
		mcp.NewResource("lorekeep://authoring-contract", "Authoring Contract",
			mcp.WithResourceDescription("Entity schema, citation syntax, and patch formats all proposals must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Session returns the server's assistance session.
func (s *Server) Session() *assist.Session {
	return s.session
}

func (s *Server) searchEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.svc.MarkdownView(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	if rels, relErr := s.svc.Relationships(ctx, id); relErr == nil && len(rels) > 0 {
		var sb strings.Builder
		sb.WriteString(md)
		sb.WriteString("\n## Relationships\n\n")
		for _, r := range rels {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", r.Type, r.TargetName, r.TargetType)
		}
		md = sb.String()
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType := ""
	if v, err := req.RequireString("type"); err == nil {
		entityType = v
	}

	items, _, err := s.svc.ListEntities(ctx, models.EntityType(entityType), 200, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no entities"), nil
	}
	var lines []string
	for _, e := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", e.ID, e.Type, e.Name))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) proposeCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType, err := req.RequireString("entity_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !models.ValidType(models.EntityType(entityType)) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity type %q", entityType)), nil
	}
	rawData, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(rawData), &data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("data is not a JSON object: %v", err)), nil
	}
	if name, _ := data["name"].(string); strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError(`data must include a non-empty "name"`), nil
	}

	var suggested []proposal.SuggestedRelationship
	if raw := optionalString(req, "suggested_relationships"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &suggested); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("suggested_relationships is not a JSON array: %v", err)), nil
		}
	}

	p := s.session.Tracker().AddCreate(proposal.CreateInput{
		EntityType:             models.EntityType(entityType),
		Data:                   data,
		Reasoning:              optionalString(req, "reasoning"),
		ParentID:               optionalString(req, "parent_id"),
		SuggestedRelationships: suggested,
	})
	return proposalRegistered(p), nil
}

func (s *Server) proposeUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, err := req.RequireString("entity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawChanges, err := req.RequireString("changes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var changes map[string]any
	if err := json.Unmarshal([]byte(rawChanges), &changes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("changes is not a JSON object: %v", err)), nil
	}
	if len(changes) == 0 {
		return mcp.NewToolResultError("changes must not be empty"), nil
	}

	detail, err := s.svc.GetEntity(ctx, entityID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", entityID)), nil
	}

	p := s.session.Tracker().AddUpdate(proposal.UpdateInput{
		EntityType:  detail.Type,
		EntityID:    entityID,
		Changes:     changes,
		Reasoning:   optionalString(req, "reasoning"),
		CurrentData: detail.Fields,
	})
	return proposalRegistered(p), nil
}

func (s *Server) proposePatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityID, err := req.RequireString("entity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawPatches, err := req.RequireString("patches")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patches []patch.FieldPatch
	if err := json.Unmarshal([]byte(rawPatches), &patches); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("patches is not a JSON array: %v", err)), nil
	}
	if len(patches) == 0 {
		return mcp.NewToolResultError("patches must not be empty"), nil
	}

	detail, err := s.svc.GetEntity(ctx, entityID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", entityID)), nil
	}

	// Dry-run against current content so the assistant learns about a stale
	// or malformed patch immediately instead of at review time.
	trial := &proposal.Proposal{
		Operation: proposal.OpPatch,
		EntityID:  entityID,
		Patches:   patches,
	}
	if _, err := s.svc.PreviewPatch(ctx, trial); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := s.session.Tracker().AddPatch(proposal.PatchInput{
		EntityType:  detail.Type,
		EntityID:    entityID,
		Patches:     patches,
		Reasoning:   optionalString(req, "reasoning"),
		CurrentData: detail.Fields,
	})
	return proposalRegistered(p), nil
}

func (s *Server) proposeRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relType, err := req.RequireString("relationship_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := proposal.RelationshipInput{
		SourceID:         optionalString(req, "source_id"),
		SourceType:       models.EntityType(optionalString(req, "source_type")),
		SourceName:       optionalString(req, "source_name"),
		TargetID:         optionalString(req, "target_id"),
		TargetType:       models.EntityType(optionalString(req, "target_type")),
		TargetName:       optionalString(req, "target_name"),
		RelationshipType: relType,
		Description:      optionalString(req, "description"),
		Reasoning:        optionalString(req, "reasoning"),
	}
	if optionalString(req, "bidirectional") == "false" {
		f := false
		in.Bidirectional = &f
	}
	if in.SourceID == "" && in.SourceName == "" {
		return mcp.NewToolResultError("source_id or source_name is required"), nil
	}
	if in.TargetID == "" && in.TargetName == "" {
		return mcp.NewToolResultError("target_id or target_name is required"), nil
	}

	p := s.session.Tracker().AddRelationship(in)
	return proposalRegistered(p), nil
}

func (s *Server) listProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.session.Tracker().Markdown()), nil
}

func (s *Server) getAuthoringContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AuthoringContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "lorekeep://authoring-contract",
			MIMEType: "text/markdown",
			Text:     AuthoringContract,
		},
	}, nil
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func proposalRegistered(p *proposal.Proposal) *mcp.CallToolResult {
	out, _ := json.Marshal(map[string]string{
		"proposalId": p.ID,
		"status":     string(p.Status),
		"summary":    p.Markdown(),
	})
	return mcp.NewToolResultText(string(out))
}
