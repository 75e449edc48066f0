// Package index provides an FTS5-backed full-text search store over memory
// documents, and an indexer that keeps it synchronized with the documents on
// disk.
//
// Grounded on original_source/crates/store/src/indexer.rs (the scan/process/
// namespace-from-path algorithm) for indexer.go. The FTS5 schema and
// sql.Open("sqlite3", ...) wiring in store.go follow internal/store/local.go's
// conventions: CREATE TABLE IF NOT EXISTS migrations run at open time, a
// *sql.DB held behind a small typed store, github.com/mattn/go-sqlite3 as the
// driver.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
)

// Meta is the metadata recorded alongside a document's searchable text.
type Meta struct {
	Id         string
	Kind       model.MemoryKind
	Title      string
	Tags       []string
	Headings   []string
	Path       string
	Updated    time.Time
	EventIds   []string
	PatchIds   []string
	TokenCount int
}

// Hit is one search result.
type Hit struct {
	Namespace string
	Key       string
	Id        string
	Kind      model.MemoryKind
	Title     string
	Path      string
	Snippet   string
	Score     float64
}

// SearchFilters narrows a Search call. Zero value matches everything.
type SearchFilters struct {
	Namespace string
	Kind      model.MemoryKind
	Tag       string
	Limit     int
}

// Stats summarizes the store's population.
type Stats struct {
	DocCount    int
	LastIndexed time.Time
}

// Store wraps the SQLite FTS5 database backing memory search.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the FTS5 store at path, creating parent directories
// and running schema migrations. Building this package requires the
// sqlite_fts5 build tag against github.com/mattn/go-sqlite3 (cgo, FTS5
// support is not compiled in by default).

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "index", "create index directory", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "index", "open index database", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
		namespace, key, title, body, tags, headings,
		tokenize = 'porter unicode61'
	);

	CREATE TABLE IF NOT EXISTS memory_meta (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		tags TEXT NOT NULL,
		headings TEXT NOT NULL,
		path TEXT NOT NULL,
		updated DATETIME NOT NULL,
		event_ids TEXT NOT NULL,
		patch_ids TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_meta_id ON memory_meta(id);
	CREATE INDEX IF NOT EXISTS idx_memory_meta_kind ON memory_meta(kind);

	CREATE TABLE IF NOT EXISTS index_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_indexed DATETIME NOT NULL
	);
	INSERT OR IGNORE INTO index_state (id, last_indexed) VALUES (1, '1970-01-01T00:00:00Z');
	`
	if _, err := s.db.Exec(schema); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "create schema", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a document's searchable text and metadata under namespace/key.
func (s *Store) Put(ctx context.Context, namespace, key, body string, meta Meta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "begin put transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_fts WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "clear previous fts row", err)
	}

	tagsJoined := strings.Join(meta.Tags, " ")
	headingsJoined := strings.Join(meta.Headings, " ")

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memory_fts (namespace, key, title, body, tags, headings) VALUES (?, ?, ?, ?, ?, ?)`,
		namespace, key, meta.Title, body, tagsJoined, headingsJoined); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "insert fts row", err)
	}

	tagsJSON, _ := json.Marshal(meta.Tags)
	headingsJSON, _ := json.Marshal(meta.Headings)
	eventIdsJSON, _ := json.Marshal(meta.EventIds)
	patchIdsJSON, _ := json.Marshal(meta.PatchIds)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_meta (namespace, key, id, kind, title, tags, headings, path, updated, event_ids, patch_ids, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			id = excluded.id, kind = excluded.kind, title = excluded.title,
			tags = excluded.tags, headings = excluded.headings, path = excluded.path,
			updated = excluded.updated, event_ids = excluded.event_ids,
			patch_ids = excluded.patch_ids, token_count = excluded.token_count
	`, namespace, key, meta.Id, string(meta.Kind), meta.Title, string(tagsJSON), string(headingsJSON),
		meta.Path, meta.Updated.UTC().Format(time.RFC3339), string(eventIdsJSON), string(patchIdsJSON), meta.TokenCount); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "upsert meta row", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE index_state SET last_indexed = ? WHERE id = 1`, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "update last indexed", err)
	}

	if err := tx.Commit(); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "commit put transaction", err)
	}
	return nil
}

// Delete removes namespace/key from the store. Returns false if it wasn't
// present.
func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_meta WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return false, harnesserr.Wrap(harnesserr.KindIO, "index", "delete meta row", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_fts WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return false, harnesserr.Wrap(harnesserr.KindIO, "index", "delete fts row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, harnesserr.Wrap(harnesserr.KindIO, "index", "read rows affected", err)
	}
	return n > 0, nil
}

// Search runs a full-text query, optionally narrowed by filters.
func (s *Store) Search(ctx context.Context, query string, filters SearchFilters) ([]Hit, error) {
	sb := strings.Builder{}
	sb.WriteString(`
		SELECT m.namespace, m.key, m.id, m.kind, m.title, m.path,
		       snippet(memory_fts, 3, '[', ']', '...', 8) AS snippet,
		       bm25(memory_fts) AS score
		FROM memory_fts
		JOIN memory_meta m ON m.namespace = memory_fts.namespace AND m.key = memory_fts.key
		WHERE memory_fts MATCH ?
	`)
	args := []any{query}

	if filters.Namespace != "" {
		sb.WriteString(" AND m.namespace = ?")
		args = append(args, filters.Namespace)
	}
	if filters.Kind != "" {
		sb.WriteString(" AND m.kind = ?")
		args = append(args, string(filters.Kind))
	}
	if filters.Tag != "" {
		sb.WriteString(" AND m.tags LIKE ?")
		args = append(args, "%\""+filters.Tag+"\"%")
	}

	sb.WriteString(" ORDER BY score")
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "index", "search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var kind string
		if err := rows.Scan(&h.Namespace, &h.Key, &h.Id, &kind, &h.Title, &h.Path, &h.Snippet, &h.Score); err != nil {
			return nil, harnesserr.Wrap(harnesserr.KindIO, "index", "scan search row", err)
		}
		h.Kind = model.MemoryKind(kind)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "index", "iterate search rows", err)
	}
	return hits, nil
}

// Stats reports the store's current document count and last indexed time.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_meta`).Scan(&count); err != nil {
		return Stats{}, harnesserr.Wrap(harnesserr.KindIO, "index", "count documents", err)
	}

	var lastIndexedRaw string
	if err := s.db.QueryRowContext(ctx, `SELECT last_indexed FROM index_state WHERE id = 1`).Scan(&lastIndexedRaw); err != nil {
		return Stats{}, harnesserr.Wrap(harnesserr.KindIO, "index", "read last indexed", err)
	}
	lastIndexed, err := time.Parse(time.RFC3339, lastIndexedRaw)
	if err != nil {
		return Stats{}, harnesserr.Wrap(harnesserr.KindParse, "index", "parse last indexed", err)
	}

	return Stats{DocCount: count, LastIndexed: lastIndexed}, nil
}
