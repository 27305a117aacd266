package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
	"github.com/Kkro1s/HongLouMeng/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *reportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *reportservice.Service) *Handler {
	return &Handler{svc: svc}
}

func runParam(r *http.Request) string {
	return r.URL.Query().Get("run")
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List analysis runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, total, err := h.svc.ListRuns(r.Context(), intParam(r, "limit"), intParam(r, "offset"))
	if err != nil {
		writeError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: total})
}

// GetRun handles GET /api/runs/latest and GET /api/runs/{id}.
//
//	@Summary		Get a run summary
//	@Tags			runs
//	@Produce		json
//	@Param			id	path		string	true	"Run id or latest"
//	@Success		200	{object}	models.RunSummary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "latest" {
		id = ""
	}
	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Refresh handles POST /api/runs.
//
//	@Summary		Trigger a pipeline run
//	@Description	Runs the pipeline unless the corpus is unchanged; force always runs.
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RefreshRequest	false	"Run options"
//	@Success		201		{object}	RefreshResponse
//	@Success		200		{object}	RefreshResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<10)
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if f, err := strconv.ParseBool(r.URL.Query().Get("force")); err == nil {
		req.Force = f
	}
	rep, err := h.svc.Refresh(r.Context(), req.Force)
	if err != nil {
		writeError(w, "refresh", err)
		return
	}
	if rep == nil {
		writeJSON(w, http.StatusOK, RefreshResponse{Skipped: true})
		return
	}
	sum := rep.Summary()
	writeJSON(w, http.StatusCreated, RefreshResponse{Run: &sum})
}

// ListEdges handles GET /api/edges.
//
//	@Summary		List aggregated edges of a run
//	@Tags			network
//	@Produce		json
//	@Param			run				query		string	false	"Run id (default latest)"
//	@Param			character		query		string	false	"Only edges touching this character or alias"
//	@Param			min_frequency	query		int		false	"Minimum frequency"
//	@Param			type			query		string	false	"Interaction type"	Enums(dialogue, action, co_occurrence)
//	@Param			limit			query		int		false	"Maximum edges"
//	@Success		200				{object}	EdgeListResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [get]
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := models.InteractionType(q.Get("type"))
	if typ != "" && !typ.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown interaction type"))
		return
	}
	edges, run, err := h.svc.Edges(r.Context(), runParam(r), reportservice.EdgeFilter{
		Character:    q.Get("character"),
		MinFrequency: intParam(r, "min_frequency"),
		Type:         typ,
		Limit:        intParam(r, "limit"),
	})
	if err != nil {
		writeError(w, "list edges", err)
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{RunID: run, Edges: edges})
}

// ListInteractions handles GET /api/interactions.
//
//	@Summary		Search sentence-level interaction events
//	@Tags			network
//	@Produce		json
//	@Param			run		query		string	false	"Run id (default latest)"
//	@Param			target	query		string	false	"Target character or alias"
//	@Param			chapter	query		int		false	"Chapter number"
//	@Param			type	query		string	false	"Interaction type"	Enums(dialogue, action, co_occurrence)
//	@Param			q		query		string	false	"Substring of the sentence or context"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	InteractionListResponse
//	@Security		BearerAuth
//	@Router			/interactions [get]
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := models.InteractionType(q.Get("type"))
	if typ != "" && !typ.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown interaction type"))
		return
	}
	limit := intParam(r, "limit")
	if limit <= 0 {
		limit = 50
	}
	events, total, err := h.svc.Interactions(r.Context(), runParam(r), store.EventFilter{
		Target:  q.Get("target"),
		Chapter: intParam(r, "chapter"),
		Type:    typ,
		Query:   q.Get("q"),
		Limit:   limit,
		Offset:  intParam(r, "offset"),
	})
	if err != nil {
		writeError(w, "list interactions", err)
		return
	}
	writeJSON(w, http.StatusOK, InteractionListResponse{Interactions: events, Total: total})
}

// ListCharacters handles GET /api/characters.
//
//	@Summary		List the alias table
//	@Tags			characters
//	@Produce		json
//	@Success		200	{object}	CharacterListResponse
//	@Security		BearerAuth
//	@Router			/characters [get]
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CharacterListResponse{Characters: h.svc.Characters(r.Context())})
}

// GetCharacter handles GET /api/characters/{name}.
//
//	@Summary		Get one character's metrics and edges
//	@Tags			characters
//	@Produce		json
//	@Param			name	path		string	true	"Canonical name or alias"
//	@Param			run		query		string	false	"Run id (default latest)"
//	@Success		200		{object}	CharacterDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/characters/{name} [get]
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Character(r.Context(), runParam(r), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get character", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetFocal handles GET /api/focal.
//
//	@Summary		Get the focal character's metrics
//	@Tags			characters
//	@Produce		json
//	@Param			run	query		string	false	"Run id (default latest)"
//	@Success		200	{object}	models.MetricsRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/focal [get]
func (h *Handler) GetFocal(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Focal(r.Context(), runParam(r))
	if err != nil {
		writeError(w, "get focal", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListNodes handles GET /api/nodes.
//
//	@Summary		List every node's metrics, highest PageRank first
//	@Tags			network
//	@Produce		json
//	@Param			run	query		string	false	"Run id (default latest)"
//	@Success		200	{object}	MetricsListResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.NodeMetrics(r.Context(), runParam(r))
	if err != nil {
		writeError(w, "list nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, MetricsListResponse{Nodes: nodes})
}

// GetNetwork handles GET /api/network.
//
//	@Summary		Get whole-graph properties, triad census and metric failures
//	@Tags			network
//	@Produce		json
//	@Param			run	query		string	false	"Run id (default latest)"
//	@Success		200	{object}	NetworkResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/network [get]
func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Network(r.Context(), runParam(r))
	if err != nil {
		writeError(w, "get network", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the interaction graph in node-link form
//	@Tags			network
//	@Produce		json
//	@Param			run	query		string	false	"Run id (default latest)"
//	@Success		200	{object}	graph.NodeLink
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nl, err := h.svc.Graph(r.Context(), runParam(r))
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, nl)
}

// GraphDOT handles GET /api/graph.dot.
//
//	@Summary		Get the interaction graph as Graphviz DOT
//	@Tags			network
//	@Produce		plain
//	@Param			run	query		string	false	"Run id (default latest)"
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/graph.dot [get]
func (h *Handler) GraphDOT(w http.ResponseWriter, r *http.Request) {
	dot, err := h.svc.DOT(r.Context(), runParam(r))
	if err != nil {
		writeError(w, "graph dot", err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dot)
}
