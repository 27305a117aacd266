// Package store persists analysis runs in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Kkro1s/HongLouMeng/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	focal           TEXT NOT NULL,
	corpus_checksum TEXT NOT NULL DEFAULT '',
	chapters        TEXT NOT NULL DEFAULT '[]',
	triad_census    TEXT NOT NULL DEFAULT '{}',
	event_count     INTEGER NOT NULL DEFAULT 0,
	edge_count      INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS events (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	source         TEXT NOT NULL,
	target         TEXT NOT NULL,
	chapter        INTEGER NOT NULL,
	sentence_index INTEGER NOT NULL,
	type           TEXT NOT NULL,
	context        TEXT NOT NULL DEFAULT '',
	sentence       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_events_target ON events(run_id, target);

CREATE TABLE IF NOT EXISTS edges (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank      INTEGER NOT NULL,
	source    TEXT NOT NULL,
	target    TEXT NOT NULL,
	frequency INTEGER NOT NULL,
	types     TEXT NOT NULL DEFAULT '{}',
	chapters  TEXT NOT NULL DEFAULT '[]',
	contexts  TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, source, target)
);

CREATE TABLE IF NOT EXISTS node_metrics (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	character TEXT NOT NULL,
	pagerank  REAL NOT NULL DEFAULT 0,
	data      TEXT NOT NULL,
	PRIMARY KEY (run_id, character)
);

CREATE TABLE IF NOT EXISTS network (
	run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
	data   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS failures (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	metric TEXT NOT NULL,
	reason TEXT NOT NULL
);
`

// Repository defines the persistence operations on runs.
// Consumers should depend on this interface rather than the concrete *DB.
type Repository interface {
	SaveReport(r *models.Report) error
	DeleteRun(id string) error
	LatestRun(focal string) (*models.RunSummary, error)
	GetRun(id string) (*models.RunSummary, error)
	ListRuns(limit, offset int) ([]models.RunSummary, int, error)
	Edges(runID string) ([]models.AggregatedEdge, error)
	Events(runID string, f EventFilter) ([]models.InteractionEvent, int, error)
	NodeMetrics(runID string) ([]models.MetricsRecord, error)
	NodeMetricsFor(runID, character string) (*models.MetricsRecord, error)
	Network(runID string) (*models.NetworkProperties, error)
	TriadCensus(runID string) (map[string]int, error)
	Failures(runID string) ([]models.MetricFailure, error)
	Report(runID string) (*models.Report, error)
	Close() error
}

var _ Repository = (*DB)(nil)

// DB wraps a sql.DB with run-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: init fts: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks the connection; used by readiness probes.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
