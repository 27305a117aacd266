package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
	"github.com/Kkro1s/HongLouMeng/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	if err := db.SaveReport(testutil.SampleReport("r1")); err != nil {
		t.Fatal(err)
	}
	return New(reportservice.NewService(db, alias.Default(), nil), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get_focal_metrics":      srv.getFocalMetrics,
		"get_character_metrics":  srv.getCharacterMetrics,
		"list_edges":             srv.listEdges,
		"search_interactions":    srv.searchInteractions,
		"get_network_properties": srv.getNetworkProperties,
		"extract_interactions":   srv.extractInteractions,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetFocalMetrics(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_focal_metrics", map[string]any{})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var m struct {
		Character string `json:"character"`
		OutDegree int    `json:"out_degree"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &m); err != nil {
		t.Fatal(err)
	}
	if m.Character != testutil.Focal || m.OutDegree != 2 {
		t.Errorf("focal = %+v", m)
	}

	r = callTool(t, srv, "get_focal_metrics", map[string]any{"run": "missing"})
	if !r.IsError {
		t.Error("expected error for missing run")
	}
}

func TestGetCharacterMetrics(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_character_metrics", map[string]any{"name": "寶二爺"})
	if r.IsError || !strings.Contains(resultText(r), `"id": "賈寶玉"`) {
		t.Errorf("character = %s", resultText(r))
	}

	r = callTool(t, srv, "get_character_metrics", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing name")
	}
}

func TestListEdges(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_edges", map[string]any{"min_frequency": 2})
	var edges []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Errorf("edges = %d, want 1", len(edges))
	}

	r = callTool(t, srv, "list_edges", map[string]any{"type": "gossip"})
	if !r.IsError {
		t.Error("expected error for unknown type")
	}
}

func TestSearchInteractions(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_interactions", map[string]any{"query": "同坐"})
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestGetNetworkProperties(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_network_properties", map[string]any{"run": "r1"})
	if !strings.Contains(resultText(r), `"num_nodes": 3`) {
		t.Errorf("network = %s", resultText(r))
	}
}

func TestExtractInteractions(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "extract_interactions", map[string]any{
		"text":  "黛玉笑道：寶玉來了。",
		"focal": "林妹妹",
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var resp struct {
		Events []struct {
			Source string `json:"source"`
			Type   string `json:"type"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Source != "林黛玉" || resp.Events[0].Type != "dialogue" {
		t.Errorf("events = %+v", resp.Events)
	}

	r = callTool(t, srv, "extract_interactions", map[string]any{"text": "x", "focal": "孫悟空"})
	if !r.IsError {
		t.Error("expected error for unknown focal")
	}
}

func TestGlossaryResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readGlossaryResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != GlossaryURI || !strings.Contains(tc.Text, "pagerank") {
		t.Errorf("glossary = %+v", contents[0])
	}
}
