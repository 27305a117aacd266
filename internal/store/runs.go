package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// SaveReport stores r and every row derived from it within one transaction.
// Saving a run id twice returns apperr.ErrConflict.
func (db *DB) SaveReport(r *models.Report) error {
	if r == nil || r.RunID == "" {
		return fmt.Errorf("store: save report: missing run id")
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	if err := tx.QueryRow(`SELECT count(*) FROM runs WHERE id = ?`, r.RunID).Scan(&exists); err != nil {
		return fmt.Errorf("store: check run: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("store: run %s: %w", r.RunID, apperr.ErrConflict)
	}

	chaptersJSON, _ := json.Marshal(orEmptyInts(r.Chapters))
	triadsJSON, _ := json.Marshal(r.TriadCensus)
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO runs (id, focal, corpus_checksum, chapters, triad_census, event_count, edge_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.FocalCharacter, r.CorpusChecksum, string(chaptersJSON), string(triadsJSON),
		len(r.Events), len(r.Edges), created)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	if err := insertEvents(tx, r.RunID, r.Events); err != nil {
		return err
	}
	if err := insertEdges(tx, r.RunID, r.Edges); err != nil {
		return err
	}
	if err := insertNodes(tx, r.RunID, r.Nodes); err != nil {
		return err
	}

	netJSON, err := json.Marshal(r.Network)
	if err != nil {
		return fmt.Errorf("store: encode network: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO network (run_id, data) VALUES (?, ?)`, r.RunID, string(netJSON)); err != nil {
		return fmt.Errorf("store: insert network: %w", err)
	}

	if len(r.Failures) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO failures (run_id, metric, reason) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare failure insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range r.Failures {
			if _, err := stmt.Exec(r.RunID, f.Metric, f.Reason); err != nil {
				return fmt.Errorf("store: insert failure: %w", err)
			}
		}
	}

	return tx.Commit()
}

func insertEvents(tx *sql.Tx, runID string, events []models.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO events (run_id, seq, source, target, chapter, sentence_index, type, context, sentence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare event insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range events {
		if _, err := stmt.Exec(runID, i, e.Source, e.Target, e.Chapter, e.SentenceIndex, string(e.Type), e.Context, e.Sentence); err != nil {
			return fmt.Errorf("store: insert event: %w", err)
		}
	}
	return nil
}

func insertEdges(tx *sql.Tx, runID string, edges []models.AggregatedEdge) error {
	if len(edges) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO edges (run_id, rank, source, target, frequency, types, chapters, contexts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare edge insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range edges {
		types, _ := json.Marshal(e.Types)
		chapters, _ := json.Marshal(orEmptyInts(e.Chapters))
		contexts, _ := json.Marshal(orEmptyStrings(e.Contexts))
		if _, err := stmt.Exec(runID, i, e.Source, e.Target, e.Frequency, string(types), string(chapters), string(contexts)); err != nil {
			return fmt.Errorf("store: insert edge %s: %w", e.Key(), err)
		}
	}
	return nil
}

func insertNodes(tx *sql.Tx, runID string, nodes []models.MetricsRecord) error {
	if len(nodes) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO node_metrics (run_id, character, pagerank, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare node insert: %w", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("store: encode node %s: %w", n.Character, err)
		}
		if _, err := stmt.Exec(runID, n.Character, n.PageRank, string(data)); err != nil {
			return fmt.Errorf("store: insert node %s: %w", n.Character, err)
		}
	}
	return nil
}

// DeleteRun removes a run and, by cascade, all of its rows.
func (db *DB) DeleteRun(id string) error {
	res, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: run %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

const runColumns = `id, focal, corpus_checksum, chapters, event_count, edge_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.RunSummary, error) {
	var (
		r        models.RunSummary
		chapters string
	)
	if err := s.Scan(&r.RunID, &r.FocalCharacter, &r.CorpusChecksum, &chapters, &r.EventCount, &r.EdgeCount, &r.CreatedAt); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(chapters), &r.Chapters); err != nil {
		return r, fmt.Errorf("store: decode run %s chapters: %w", r.RunID, err)
	}
	return r, nil
}

// LatestRun returns the most recent run. A non-empty focal restricts the
// lookup to runs of that character.
func (db *DB) LatestRun(focal string) (*models.RunSummary, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if focal != "" {
		q += ` WHERE focal = ?`
		args = append(args, focal)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT 1`
	r, err := scanRun(db.conn.QueryRow(q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: latest run: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest run: %w", err)
	}
	return &r, nil
}

// GetRun returns the summary of run id.
func (db *DB) GetRun(id string) (*models.RunSummary, error) {
	r, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: run %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns runs newest first together with the total count.
func (db *DB) ListRuns(limit, offset int) ([]models.RunSummary, int, error) {
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count runs: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()
	var out []models.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// runExists maps an empty result for runID to apperr.ErrNotFound.
func (db *DB) runExists(runID string) error {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return fmt.Errorf("store: check run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: run %s: %w", runID, apperr.ErrNotFound)
	}
	return nil
}

func orEmptyInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func orEmptyStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
