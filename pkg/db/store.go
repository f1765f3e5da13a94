package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// SaveSession replaces the persisted session.
func SaveSession(db DBExecutor, s Session) error {
	if strings.TrimSpace(s.Word) == "" {
		return fmt.Errorf("session word must be non-empty")
	}
	if s.Page < 1 {
		s.Page = 1
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	_, err := db.Exec(`INSERT INTO session_state (id, word, src_lang, trg_lang, allow_affixes, query, raw_result, page, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  word = excluded.word,
		  src_lang = excluded.src_lang,
		  trg_lang = excluded.trg_lang,
		  allow_affixes = excluded.allow_affixes,
		  query = excluded.query,
		  raw_result = excluded.raw_result,
		  page = excluded.page,
		  updated_at = excluded.updated_at`,
		s.Word, s.SrcLang, s.TrgLang, s.AllowAffixes, s.Query, s.RawResult, s.Page, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session, or nil if nothing was saved yet.
func LoadSession(db DBExecutor) (*Session, error) {
	var s Session
	var query, raw sql.NullString
	err := db.QueryRow(`SELECT word, src_lang, trg_lang, allow_affixes, query, raw_result, page, updated_at
		FROM session_state WHERE id = 1`).
		Scan(&s.Word, &s.SrcLang, &s.TrgLang, &s.AllowAffixes, &query, &raw, &s.Page, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if query.Valid {
		s.Query = query.String
	}
	if raw.Valid {
		s.RawResult = raw.String
	}
	return &s, nil
}

// UpdateSessionPage sets the current page of the persisted session. It is a
// no-op when no session exists.
func UpdateSessionPage(db DBExecutor, page int) error {
	if page < 1 {
		return fmt.Errorf("page must be positive, got %d", page)
	}
	_, err := db.Exec(`UPDATE session_state SET page = ? WHERE id = 1`, page)
	return err
}

// ClearSession removes the persisted session.
func ClearSession(db DBExecutor) error {
	_, err := db.Exec(`DELETE FROM session_state`)
	return err
}

// RecordSearch adds a search to the history, bumping the count of an
// existing identical search, and returns its id.
func RecordSearch(db DBExecutor, r SearchRecord) (int64, error) {
	word := strings.TrimSpace(r.Word)
	if word == "" {
		return 0, fmt.Errorf("word must be non-empty")
	}
	if r.LastSearchedAt.IsZero() {
		r.LastSearchedAt = time.Now()
	}

	var id int64
	err := db.QueryRow(`INSERT INTO searches (word, src_lang, trg_lang, allow_affixes, query, edge_count, last_searched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(word, src_lang, trg_lang, allow_affixes) DO UPDATE SET
		  query = COALESCE(NULLIF(excluded.query, ''), searches.query),
		  edge_count = excluded.edge_count,
		  search_count = searches.search_count + 1,
		  last_searched_at = excluded.last_searched_at
		RETURNING id`,
		word, r.SrcLang, r.TrgLang, r.AllowAffixes, r.Query, r.EdgeCount, r.LastSearchedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert search: %w", err)
	}
	return id, nil
}

// RecentSearches returns up to limit searches, most recent first.
func RecentSearches(db DBExecutor, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT id, word, src_lang, trg_lang, allow_affixes, query, edge_count, search_count, last_searched_at
		FROM searches ORDER BY last_searched_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var r SearchRecord
		var query sql.NullString
		if err := rows.Scan(&r.ID, &r.Word, &r.SrcLang, &r.TrgLang, &r.AllowAffixes, &query, &r.EdgeCount, &r.SearchCount, &r.LastSearchedAt); err != nil {
			return nil, err
		}
		if query.Valid {
			r.Query = query.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDefinition stores html as the definition of word in lang. Empty html is
// not stored, so a missing definition is retried on the next session.
func SaveDefinition(db DBExecutor, word, lang, html string) error {
	if strings.TrimSpace(word) == "" {
		return fmt.Errorf("word must be non-empty")
	}
	if html == "" {
		return nil
	}
	_, err := db.Exec(`INSERT INTO definitions (word, lang, html, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(word, lang) DO UPDATE SET html = excluded.html, fetched_at = excluded.fetched_at`,
		word, lang, html, time.Now())
	if err != nil {
		return fmt.Errorf("save definition: %w", err)
	}
	return nil
}

// GetDefinition returns the stored definition of word in lang.
func GetDefinition(db DBExecutor, word, lang string) (string, bool, error) {
	var html string
	err := db.QueryRow(`SELECT html FROM definitions WHERE word = ? AND lang = ?`, word, lang).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

// AllDefinitions returns every stored definition.
func AllDefinitions(db DBExecutor) ([]Definition, error) {
	rows, err := db.Query(`SELECT word, lang, html, fetched_at FROM definitions ORDER BY word, lang`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.Word, &d.Lang, &d.HTML, &d.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
