package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Kkro1s/HongLouMeng/internal/alias"
	"github.com/Kkro1s/HongLouMeng/internal/pipeline"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
	"github.com/Kkro1s/HongLouMeng/internal/store"
	"github.com/Kkro1s/HongLouMeng/internal/testutil"
)

// testEnv sets up a temp corpus, SQLite DB, pipeline, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*store.DB, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*store.DB, http.Handler) {
	t.Helper()
	_, src := testutil.TestCorpus(t, testutil.SampleChapters)
	db := testutil.TestDB(t)
	p, err := pipeline.New(pipeline.Config{Focal: testutil.Focal}, alias.Default(), src,
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	svc := reportservice.NewService(db, alias.Default(), p)
	return db, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestRefreshAndLatest(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/runs/latest", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("latest before run = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodPost, "/runs", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("refresh = %d, body = %s", w.Code, w.Body.String())
	}
	var created RefreshResponse
	decode(t, w, &created)
	if created.Run == nil || created.Run.EdgeCount != 2 {
		t.Fatalf("refresh run = %+v", created.Run)
	}

	// Unchanged corpus is skipped.
	w = do(t, router, http.MethodPost, "/runs", nil)
	var skipped RefreshResponse
	decode(t, w, &skipped)
	if w.Code != http.StatusOK || !skipped.Skipped {
		t.Fatalf("second refresh = %d %+v", w.Code, skipped)
	}

	// force runs again.
	w = do(t, router, http.MethodPost, "/runs", bytes.NewReader([]byte(`{"force":true}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("forced refresh = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/runs", nil)
	var list RunListResponse
	decode(t, w, &list)
	if list.Total != 2 {
		t.Errorf("runs total = %d, want 2", list.Total)
	}

	w = do(t, router, http.MethodGet, "/runs/latest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest = %d", w.Code)
	}
}

func TestReadEndpoints(t *testing.T) {
	db, router := testEnv(t, "")
	if err := db.SaveReport(testutil.SampleReport("r1")); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/edges?run=r1", nil)
	var edges EdgeListResponse
	decode(t, w, &edges)
	if len(edges.Edges) != 2 || edges.RunID != "r1" {
		t.Errorf("edges = %+v", edges)
	}

	w = do(t, router, http.MethodGet, "/edges?type=gossip", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/interactions?target="+url.QueryEscape("寶玉")+"&limit=1", nil)
	var inter InteractionListResponse
	decode(t, w, &inter)
	if inter.Total != 2 || len(inter.Interactions) != 1 {
		t.Errorf("interactions total=%d len=%d", inter.Total, len(inter.Interactions))
	}

	w = do(t, router, http.MethodGet, "/characters", nil)
	var chars CharacterListResponse
	decode(t, w, &chars)
	if len(chars.Characters) != 28 {
		t.Errorf("characters = %d, want 28", len(chars.Characters))
	}

	w = do(t, router, http.MethodGet, "/characters/"+url.PathEscape("林妹妹"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("character = %d, body = %s", w.Code, w.Body.String())
	}
	var detail CharacterDetail
	decode(t, w, &detail)
	if detail.ID != "林黛玉" || detail.Metrics == nil {
		t.Errorf("character detail = %+v", detail)
	}

	w = do(t, router, http.MethodGet, "/characters/"+url.PathEscape("孫悟空"), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown character = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodGet, "/focal", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), testutil.Focal) {
		t.Errorf("focal = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/nodes", nil)
	var nodes MetricsListResponse
	decode(t, w, &nodes)
	if len(nodes.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(nodes.Nodes))
	}

	w = do(t, router, http.MethodGet, "/network", nil)
	var network NetworkResponse
	decode(t, w, &network)
	if network.Properties.Nodes != 3 || len(network.Failures) != 1 {
		t.Errorf("network = %+v", network)
	}

	w = do(t, router, http.MethodGet, "/graph", nil)
	var resp map[string]any
	decode(t, w, &resp)
	if len(resp["nodes"].([]any)) != 3 || len(resp["links"].([]any)) != 2 {
		t.Errorf("graph = %v", resp)
	}

	w = do(t, router, http.MethodGet, "/graph.dot", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/vnd.graphviz") {
		t.Errorf("dot content type = %q", w.Header().Get("Content-Type"))
	}

	w = do(t, router, http.MethodGet, "/network?run=missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/characters", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/characters", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/characters", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
