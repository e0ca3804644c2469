package contentStore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/avellore/ragstack/internal/domain/commonModels"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := commonModels.SourceMetadata{
		DocumentID:     "doc-1",
		SourceURL:      "https://example.com/page",
		Title:          "Example Page",
		ContentHash:    "abc123",
		CrawlTimestamp: time.Now().UTC().Truncate(time.Second),
		Status:         commonModels.DocStatusProcessed,
	}
	if err := store.SaveDocument(ctx, meta); err != nil {
		t.Fatal(err)
	}

	got, found, err := store.GetDocumentByURL(ctx, "https://example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("saved document not found")
	}
	if got.DocumentID != meta.DocumentID || got.ContentHash != meta.ContentHash || got.Status != meta.Status {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.GetDocumentByURL(context.Background(), "https://example.com/nope")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unknown URL should not be found")
	}
}

func TestSaveDocument_UpdatesHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta := commonModels.SourceMetadata{
		DocumentID:     "doc-1",
		SourceURL:      "https://example.com/page",
		ContentHash:    "hash-v1",
		CrawlTimestamp: time.Now(),
		Status:         commonModels.DocStatusProcessed,
	}
	if err := store.SaveDocument(ctx, meta); err != nil {
		t.Fatal(err)
	}

	meta.ContentHash = "hash-v2"
	if err := store.SaveDocument(ctx, meta); err != nil {
		t.Fatal(err)
	}

	got, _, err := store.GetDocumentByURL(ctx, meta.SourceURL)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != "hash-v2" {
		t.Errorf("expected updated hash, got %s", got.ContentHash)
	}
}

func TestSaveChunks_IdempotentReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := commonModels.SourceMetadata{
		DocumentID:     "doc-1",
		SourceURL:      "https://example.com/a",
		ContentHash:    "h",
		CrawlTimestamp: time.Now(),
		Status:         commonModels.DocStatusProcessed,
	}
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	chunks := []commonModels.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", SourceURL: doc.SourceURL, ChunkIndex: 0, Content: "first", CreatedAt: now, UpdatedAt: now},
		{ID: "c2", DocumentID: "doc-1", SourceURL: doc.SourceURL, ChunkIndex: 1, Content: "second", CreatedAt: now, UpdatedAt: now},
	}
	if err := store.SaveChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountChunks(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("re-saving the same chunks must not duplicate rows, got %d", n)
	}
}

func TestDeleteDocumentChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := commonModels.SourceMetadata{
		DocumentID:     "doc-1",
		SourceURL:      "https://example.com/a",
		ContentHash:    "h",
		CrawlTimestamp: time.Now(),
		Status:         commonModels.DocStatusProcessed,
	}
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := store.SaveChunks(ctx, []commonModels.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", SourceURL: doc.SourceURL, Content: "x", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteDocumentChunks(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountChunks(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks after delete, got %d", n)
	}
}

func TestListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, url := range []string{"https://example.com/a", "https://example.com/b"} {
		err := store.SaveDocument(ctx, commonModels.SourceMetadata{
			DocumentID:     string(rune('a' + i)),
			SourceURL:      url,
			ContentHash:    "h",
			CrawlTimestamp: time.Now().Add(time.Duration(i) * time.Minute),
			Status:         commonModels.DocStatusProcessed,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
}
