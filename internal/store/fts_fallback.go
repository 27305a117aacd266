//go:build !sqlite_fts5

package store

import (
	"database/sql"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; text search uses LIKE on the events table.
	return nil
}

func textClause(q string) (string, []any) {
	return likeClause(q)
}
