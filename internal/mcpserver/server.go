// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the interaction network for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
	"github.com/Kkro1s/HongLouMeng/internal/store"
)

// Server wraps the MCP server with the network tools.
type Server struct {
	mcp *server.MCPServer
	svc *reportservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *reportservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"HongLouMeng",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	runArg := mcp.WithString("run", mcp.Description("Run id; empty for the latest run"))

	s.mcp.AddTool(mcp.NewTool("get_focal_metrics",
		mcp.WithDescription("Return every centrality metric of the focal character. "+
			"Read the "+GlossaryURI+" resource for field meanings."),
		runArg,
	), s.getFocalMetrics)

	s.mcp.AddTool(mcp.NewTool("get_character_metrics",
		mcp.WithDescription("Return one character's metrics and edges. Accepts a canonical name or any alias."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Character name or alias, e.g. 林黛玉 or 林妹妹")),
		runArg,
	), s.getCharacterMetrics)

	s.mcp.AddTool(mcp.NewTool("list_edges",
		mcp.WithDescription("List aggregated interaction edges, most frequent first."),
		mcp.WithString("character", mcp.Description("Only edges touching this character or alias")),
		mcp.WithNumber("min_frequency", mcp.Description("Minimum edge frequency")),
		mcp.WithString("type", mcp.Description("Interaction type"), mcp.Enum("dialogue", "action", "co_occurrence")),
		mcp.WithNumber("limit", mcp.Description("Maximum edges to return")),
		runArg,
	), s.listEdges)

	s.mcp.AddTool(mcp.NewTool("search_interactions",
		mcp.WithDescription("Search sentence-level interaction events by text, target, chapter or type."),
		mcp.WithString("query", mcp.Description("Substring of the sentence or its context")),
		mcp.WithString("target", mcp.Description("Target character or alias")),
		mcp.WithNumber("chapter", mcp.Description("Chapter number")),
		mcp.WithString("type", mcp.Description("Interaction type"), mcp.Enum("dialogue", "action", "co_occurrence")),
		mcp.WithNumber("limit", mcp.Description("Maximum events to return (default 20)")),
		runArg,
	), s.searchInteractions)

	s.mcp.AddTool(mcp.NewTool("get_network_properties",
		mcp.WithDescription("Return whole-network properties, the triad census and metric failures."),
		runArg,
	), s.getNetworkProperties)

	s.mcp.AddTool(mcp.NewTool("extract_interactions",
		mcp.WithDescription("Run the interaction extractor over a passage of text without storing anything."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Chinese passage to analyse")),
		mcp.WithString("focal", mcp.Description("Focal character or alias; empty for the configured focal")),
	), s.extractInteractions)

	// Resource: metrics glossary.
	s.mcp.AddResource(
		mcp.NewResource(GlossaryURI, "Metrics Glossary",
			mcp.WithResourceDescription("Meaning of every metric and network property."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGlossaryResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error()), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func interactionType(req mcp.CallToolRequest) (models.InteractionType, error) {
	t := models.InteractionType(req.GetString("type", ""))
	if t != "" && !t.Valid() {
		return "", errors.New("unknown interaction type: " + string(t))
	}
	return t, nil
}

func (s *Server) getFocalMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.svc.Focal(ctx, req.GetString("run", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(m)
}

func (s *Server) getCharacterMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Character(ctx, req.GetString("run", ""), name)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(d)
}

func (s *Server) listEdges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := interactionType(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edges, _, err := s.svc.Edges(ctx, req.GetString("run", ""), reportservice.EdgeFilter{
		Character:    req.GetString("character", ""),
		MinFrequency: req.GetInt("min_frequency", 0),
		Type:         typ,
		Limit:        req.GetInt("limit", 0),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(edges)
}

func (s *Server) searchInteractions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := interactionType(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, total, err := s.svc.Interactions(ctx, req.GetString("run", ""), store.EventFilter{
		Target:  req.GetString("target", ""),
		Chapter: req.GetInt("chapter", 0),
		Type:    typ,
		Query:   req.GetString("query", ""),
		Limit:   req.GetInt("limit", 20),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"total": total, "interactions": events})
}

func (s *Server) getNetworkProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.Network(ctx, req.GetString("run", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(n)
}

func (s *Server) extractInteractions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, edges, err := s.svc.Extract(ctx, text, req.GetString("focal", ""), 0)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"events": events, "edges": edges})
}

func (s *Server) readGlossaryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GlossaryURI,
			MIMEType: "text/markdown",
			Text:     MetricsGlossary,
		},
	}, nil
}
