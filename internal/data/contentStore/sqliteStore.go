package contentStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/pkg/logger_i"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_documents (
	document_id     TEXT PRIMARY KEY,
	source_url      TEXT NOT NULL UNIQUE,
	title           TEXT,
	content_hash    TEXT NOT NULL,
	crawl_timestamp TIMESTAMP NOT NULL,
	status          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS content_chunks (
	chunk_id    TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES source_documents(document_id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	source_url  TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_content_chunks_document ON content_chunks(document_id);
`

type sqliteStore struct {
	db     *sql.DB
	logger *logger_i.Logger
}

// NewSQLiteStore opens (and migrates) the relational store at path.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}

	return &sqliteStore{
		db:     db,
		logger: logger_i.NewLogger("content_store"),
	}, nil
}

func (s *sqliteStore) GetDocumentByURL(ctx context.Context, sourceURL string) (commonModels.SourceMetadata, bool, error) {
	var meta commonModels.SourceMetadata
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, source_url, title, content_hash, crawl_timestamp, status
		 FROM source_documents WHERE source_url = ?`, sourceURL)

	err := row.Scan(&meta.DocumentID, &meta.SourceURL, &meta.Title, &meta.ContentHash, &meta.CrawlTimestamp, &meta.Status)
	if err == sql.ErrNoRows {
		return commonModels.SourceMetadata{}, false, nil
	}
	if err != nil {
		return commonModels.SourceMetadata{}, false, err
	}
	return meta, true, nil
}

func (s *sqliteStore) SaveDocument(ctx context.Context, meta commonModels.SourceMetadata) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_documents (document_id, source_url, title, content_hash, crawl_timestamp, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
			title = excluded.title,
			content_hash = excluded.content_hash,
			crawl_timestamp = excluded.crawl_timestamp,
			status = excluded.status`,
		meta.DocumentID, meta.SourceURL, meta.Title, meta.ContentHash, meta.CrawlTimestamp, meta.Status)
	return err
}

func (s *sqliteStore) ListDocuments(ctx context.Context) ([]commonModels.SourceMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, source_url, title, content_hash, crawl_timestamp, status
		 FROM source_documents ORDER BY crawl_timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []commonModels.SourceMetadata
	for rows.Next() {
		var meta commonModels.SourceMetadata
		if err := rows.Scan(&meta.DocumentID, &meta.SourceURL, &meta.Title, &meta.ContentHash, &meta.CrawlTimestamp, &meta.Status); err != nil {
			return nil, err
		}
		docs = append(docs, meta)
	}
	return docs, rows.Err()
}

// SaveChunks writes a batch in one transaction; re-saving a chunk id replaces
// the row so re-ingestion stays idempotent.
func (s *sqliteStore) SaveChunks(ctx context.Context, chunks []commonModels.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO content_chunks (chunk_id, document_id, chunk_index, content, source_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.SourceURL, chunk.CreatedAt, chunk.UpdatedAt)
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM content_chunks WHERE document_id = ?`, documentID)
	return err
}

func (s *sqliteStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_chunks WHERE document_id = ?`, documentID).Scan(&n)
	return n, err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
