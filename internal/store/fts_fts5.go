//go:build sqlite_fts5

package store

import (
	"database/sql"
	"strings"
	"unicode/utf8"
)

// The trigram tokenizer indexes every three-rune window, so Chinese
// substrings match without word segmentation.
const ftsSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
	sentence,
	context,
	content = 'events',
	content_rowid = 'rowid',
	tokenize = 'trigram'
);

CREATE TRIGGER IF NOT EXISTS events_fts_insert AFTER INSERT ON events BEGIN
	INSERT INTO events_fts (rowid, sentence, context) VALUES (new.rowid, new.sentence, new.context);
END;

CREATE TRIGGER IF NOT EXISTS events_fts_delete AFTER DELETE ON events BEGIN
	INSERT INTO events_fts (events_fts, rowid, sentence, context) VALUES ('delete', old.rowid, old.sentence, old.context);
END;
`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSQL)
	return err
}

// textClause matches through the trigram index. Queries shorter than a
// trigram cannot use it and fall back to LIKE.
func textClause(q string) (string, []any) {
	if utf8.RuneCountInString(q) < 3 {
		return likeClause(q)
	}
	phrase := `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
	return `rowid IN (SELECT rowid FROM events_fts WHERE events_fts MATCH ?)`, []any{phrase}
}
