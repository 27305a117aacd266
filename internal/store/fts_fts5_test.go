//go:build sqlite_fts5

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM events_fts`).Scan(&count))
}

func TestFTS5_EventsSearch(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.SaveReport(sampleReport("r1", time.Now().UTC())))

	// Three runes go through the trigram index.
	got, total, err := db.Events("r1", EventFilter{Query: "釵黛玉"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "林黛玉", got[0].Target)

	// Deleting the run removes its rows from the index.
	require.NoError(t, db.DeleteRun("r1"))
	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT count(*) FROM events_fts WHERE events_fts MATCH '"釵黛玉"'`).Scan(&count))
	assert.Zero(t, count)
}
