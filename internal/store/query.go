package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// EventFilter narrows an events query. Zero fields match everything.
type EventFilter struct {
	Source  string
	Target  string
	Chapter int
	Type    models.InteractionType
	Query   string // substring of the sentence or its context
	Limit   int
	Offset  int
}

func (f EventFilter) where(runID string) (string, []any) {
	clauses := []string{"run_id = ?"}
	args := []any{runID}
	if f.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, f.Source)
	}
	if f.Target != "" {
		clauses = append(clauses, "target = ?")
		args = append(args, f.Target)
	}
	if f.Chapter > 0 {
		clauses = append(clauses, "chapter = ?")
		args = append(args, f.Chapter)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		clause, qargs := textClause(q)
		clauses = append(clauses, clause)
		args = append(args, qargs...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func likeClause(q string) (string, []any) {
	pattern := "%" + escapeLike(q) + "%"
	return `(sentence LIKE ? ESCAPE '\' OR context LIKE ? ESCAPE '\')`, []any{pattern, pattern}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Events returns the events of runID matching f in extraction order, plus the
// total number of matches before paging.
func (db *DB) Events(runID string, f EventFilter) ([]models.InteractionEvent, int, error) {
	if err := db.runExists(runID); err != nil {
		return nil, 0, err
	}
	where, args := f.where(runID)

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count events: %w", err)
	}

	q := `SELECT source, target, chapter, sentence_index, type, context, sentence FROM events` + where + ` ORDER BY seq`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var out []models.InteractionEvent
	for rows.Next() {
		var (
			e   models.InteractionEvent
			typ string
		)
		if err := rows.Scan(&e.Source, &e.Target, &e.Chapter, &e.SentenceIndex, &typ, &e.Context, &e.Sentence); err != nil {
			return nil, 0, err
		}
		e.Type = models.InteractionType(typ)
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Edges returns the aggregated edges of runID in their stored rank order.
func (db *DB) Edges(runID string) ([]models.AggregatedEdge, error) {
	if err := db.runExists(runID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT source, target, frequency, types, chapters, contexts
		FROM edges WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query edges: %w", err)
	}
	defer rows.Close()

	var out []models.AggregatedEdge
	for rows.Next() {
		var (
			e                         models.AggregatedEdge
			types, chapters, contexts string
		)
		if err := rows.Scan(&e.Source, &e.Target, &e.Frequency, &types, &chapters, &contexts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(types), &e.Types); err != nil {
			return nil, fmt.Errorf("store: decode edge %s types: %w", e.Key(), err)
		}
		if err := json.Unmarshal([]byte(chapters), &e.Chapters); err != nil {
			return nil, fmt.Errorf("store: decode edge %s chapters: %w", e.Key(), err)
		}
		if err := json.Unmarshal([]byte(contexts), &e.Contexts); err != nil {
			return nil, fmt.Errorf("store: decode edge %s contexts: %w", e.Key(), err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NodeMetrics returns every node's metrics, highest PageRank first.
func (db *DB) NodeMetrics(runID string) ([]models.MetricsRecord, error) {
	if err := db.runExists(runID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT data FROM node_metrics WHERE run_id = ?
		ORDER BY pagerank DESC, character
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query node metrics: %w", err)
	}
	defer rows.Close()

	var out []models.MetricsRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var m models.MetricsRecord
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("store: decode node metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// NodeMetricsFor returns the metrics of one character in runID.
func (db *DB) NodeMetricsFor(runID, character string) (*models.MetricsRecord, error) {
	var data string
	err := db.conn.QueryRow(`SELECT data FROM node_metrics WHERE run_id = ? AND character = ?`, runID, character).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: %s in run %s: %w", character, runID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: node metrics: %w", err)
	}
	var m models.MetricsRecord
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("store: decode node metrics: %w", err)
	}
	return &m, nil
}

// Network returns the whole-graph properties of runID.
func (db *DB) Network(runID string) (*models.NetworkProperties, error) {
	var data string
	err := db.conn.QueryRow(`SELECT data FROM network WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: network of run %s: %w", runID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: network: %w", err)
	}
	var p models.NetworkProperties
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("store: decode network: %w", err)
	}
	return &p, nil
}

// TriadCensus returns the stored census of runID.
func (db *DB) TriadCensus(runID string) (map[string]int, error) {
	var data string
	err := db.conn.QueryRow(`SELECT triad_census FROM runs WHERE id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: run %s: %w", runID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: triad census: %w", err)
	}
	out := map[string]int{}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("store: decode triad census: %w", err)
	}
	return out, nil
}

// Failures returns the metric failures recorded for runID.
func (db *DB) Failures(runID string) ([]models.MetricFailure, error) {
	rows, err := db.conn.Query(`SELECT metric, reason FROM failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query failures: %w", err)
	}
	defer rows.Close()
	out := []models.MetricFailure{}
	for rows.Next() {
		var f models.MetricFailure
		if err := rows.Scan(&f.Metric, &f.Reason); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Report reassembles the full report of runID.
func (db *DB) Report(runID string) (*models.Report, error) {
	sum, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}
	r := &models.Report{
		RunID:          sum.RunID,
		FocalCharacter: sum.FocalCharacter,
		CreatedAt:      sum.CreatedAt,
		CorpusChecksum: sum.CorpusChecksum,
		Chapters:       sum.Chapters,
	}
	if r.Events, _, err = db.Events(runID, EventFilter{}); err != nil {
		return nil, err
	}
	if r.Edges, err = db.Edges(runID); err != nil {
		return nil, err
	}
	if r.Nodes, err = db.NodeMetrics(runID); err != nil {
		return nil, err
	}
	for i := range r.Nodes {
		if r.Nodes[i].Character == r.FocalCharacter {
			focal := r.Nodes[i]
			r.Focal = &focal
			break
		}
	}
	net, err := db.Network(runID)
	if err != nil {
		return nil, err
	}
	r.Network = *net
	if r.TriadCensus, err = db.TriadCensus(runID); err != nil {
		return nil, err
	}
	if r.Failures, err = db.Failures(runID); err != nil {
		return nil, err
	}
	return r, nil
}
