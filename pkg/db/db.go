package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS session_state (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	word          TEXT NOT NULL,
	src_lang      TEXT NOT NULL,
	trg_lang      TEXT NOT NULL,
	allow_affixes INTEGER NOT NULL DEFAULT 0,
	query         TEXT,
	raw_result    TEXT,
	page          INTEGER NOT NULL DEFAULT 1,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS searches (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	word             TEXT NOT NULL,
	src_lang         TEXT NOT NULL,
	trg_lang         TEXT NOT NULL,
	allow_affixes    INTEGER NOT NULL DEFAULT 0,
	query            TEXT,
	edge_count       INTEGER NOT NULL DEFAULT 0,
	search_count     INTEGER NOT NULL DEFAULT 1,
	last_searched_at DATETIME NOT NULL,
	UNIQUE (word, src_lang, trg_lang, allow_affixes)
);

CREATE INDEX IF NOT EXISTS idx_searches_last ON searches (last_searched_at);

CREATE TABLE IF NOT EXISTS definitions (
	word       TEXT NOT NULL,
	lang       TEXT NOT NULL,
	html       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (word, lang)
);
`

// Open opens the sqlite database at path and runs migrations. ":memory:" is
// limited to one connection so every caller sees the same database.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database %s: %w", path, err)
	}
	return conn, nil
}

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
