package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
)

// --- Mocks ---

type mockExtractor struct {
	extractFunc func(ctx context.Context, sourceURL string) (ExtractedContent, error)
}

func (m *mockExtractor) Extract(ctx context.Context, sourceURL string) (ExtractedContent, error) {
	return m.extractFunc(ctx, sourceURL)
}

type mockEmbedder struct {
	docsFunc func(ctx context.Context, texts []string) ([][]float32, int, error)
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, int, error) {
	if m.docsFunc != nil {
		return m.docsFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, 4)
	}
	return vectors, 4, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, int, error) {
	return make([]float32, 4), 4, nil
}

type mockVectorDB struct {
	upserted    []commonModels.DocumentChunk
	deletedDocs []string
	upsertFunc  func(ctx context.Context, coll string, chunks []commonModels.DocumentChunk) error
}

func (m *mockVectorDB) Search(ctx context.Context, coll string, v []float32, topK int, f *vectorDB.SearchFilter) ([]commonModels.RetrievalResult, error) {
	return nil, nil
}
func (m *mockVectorDB) GetCachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	return "", false, nil
}
func (m *mockVectorDB) SaveToCache(ctx context.Context, id string, v []float32, a string) error {
	return nil
}
func (m *mockVectorDB) EnsureCollection(ctx context.Context, name string, dim int) error { return nil }
func (m *mockVectorDB) UpsertChunks(ctx context.Context, coll string, chunks []commonModels.DocumentChunk) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, coll, chunks)
	}
	m.upserted = append(m.upserted, chunks...)
	return nil
}
func (m *mockVectorDB) DeleteByDocument(ctx context.Context, coll string, documentID string) error {
	m.deletedDocs = append(m.deletedDocs, documentID)
	return nil
}
func (m *mockVectorDB) HealthCheck(ctx context.Context) error { return nil }

type mockContentStore struct {
	docs          map[string]commonModels.SourceMetadata
	deletedChunks []string
}

func newMockContentStore() *mockContentStore {
	return &mockContentStore{docs: make(map[string]commonModels.SourceMetadata)}
}

func (m *mockContentStore) GetDocumentByURL(ctx context.Context, url string) (commonModels.SourceMetadata, bool, error) {
	meta, ok := m.docs[url]
	return meta, ok, nil
}
func (m *mockContentStore) SaveDocument(ctx context.Context, meta commonModels.SourceMetadata) error {
	m.docs[meta.SourceURL] = meta
	return nil
}
func (m *mockContentStore) ListDocuments(ctx context.Context) ([]commonModels.SourceMetadata, error) {
	return nil, nil
}
func (m *mockContentStore) SaveChunks(ctx context.Context, chunks []commonModels.DocumentChunk) error {
	return nil
}
func (m *mockContentStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	m.deletedChunks = append(m.deletedChunks, documentID)
	return nil
}
func (m *mockContentStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	return 0, nil
}
func (m *mockContentStore) Close() error { return nil }

func staticExtractor(content string) *mockExtractor {
	return &mockExtractor{
		extractFunc: func(_ context.Context, url string) (ExtractedContent, error) {
			return ExtractedContent{Content: content, Title: "t"}, nil
		},
	}
}

// --- Tests ---

func TestRun_Complete(t *testing.T) {
	vdb := &mockVectorDB{}
	w := NewWorkflow(staticExtractor("Sentence one here. Sentence two here."), &mockEmbedder{}, vdb, nil)

	job := w.Run(context.Background(), Request{
		JobID:      "job-1",
		SourceURLs: []string{"https://example.com/a"},
	})

	if job.Status != jobModel.JobStatusComplete {
		t.Fatalf("expected completed job, got %s (%s)", job.Status, job.ErrorDetails)
	}
	if job.Progress != 1 || job.Total != 1 {
		t.Errorf("progress %d/%d, want 1/1", job.Progress, job.Total)
	}
	if job.ProcessedChunks == 0 || job.ProcessedChunks != len(vdb.upserted) {
		t.Errorf("processed chunks %d does not match %d upserted", job.ProcessedChunks, len(vdb.upserted))
	}
	if job.EndTime == nil || job.EndTime.Before(job.StartTime) {
		t.Error("terminal job must have EndTime >= StartTime")
	}
	for _, c := range vdb.upserted {
		if len(c.Embedding) == 0 {
			t.Error("upserted chunk is missing its embedding")
		}
	}
}

// A page short enough to fit in a single chunk hashes identically at the
// document and chunk level. It must still be ingested.
func TestRun_SingleChunkDocumentIngested(t *testing.T) {
	vdb := &mockVectorDB{}
	content := "One short paragraph."
	w := NewWorkflow(staticExtractor(content), &mockEmbedder{}, vdb, nil)

	job := w.Run(context.Background(), Request{
		JobID:      "job-1",
		SourceURLs: []string{"https://example.com/a"},
	})

	if job.Status != jobModel.JobStatusComplete {
		t.Fatalf("expected completed job, got %s (%s)", job.Status, job.ErrorDetails)
	}
	if job.ProcessedChunks != 1 {
		t.Errorf("single-chunk document must yield 1 chunk, got %d", job.ProcessedChunks)
	}
	if len(vdb.upserted) != 1 || vdb.upserted[0].Content != content {
		t.Fatalf("chunk not stored: %+v", vdb.upserted)
	}
}

// Two sources serving identical content: the second is skipped but still
// advances progress, and no chunk is stored twice.
func TestRun_DuplicateSourceSkipped(t *testing.T) {
	vdb := &mockVectorDB{}
	w := NewWorkflow(staticExtractor("Exactly the same content on both mirrors."), &mockEmbedder{}, vdb, nil)

	job := w.Run(context.Background(), Request{
		JobID:      "job-1",
		SourceURLs: []string{"https://example.com/a", "https://mirror.example.com/a"},
	})

	if job.Status != jobModel.JobStatusComplete {
		t.Fatalf("expected completed job, got %s", job.Status)
	}
	if job.Progress != 2 {
		t.Errorf("skipped source must still advance progress, got %d", job.Progress)
	}
	if len(vdb.upserted) != job.ProcessedChunks {
		t.Errorf("upserted %d chunks but counted %d", len(vdb.upserted), job.ProcessedChunks)
	}

	seen := map[string]bool{}
	for _, c := range vdb.upserted {
		if seen[c.Content] {
			t.Errorf("chunk content stored twice: %q", c.Content)
		}
		seen[c.Content] = true
	}
}

// Re-running the same request against a populated store yields zero new
// chunks and a completed job.
func TestRun_SecondRunIngestsNothing(t *testing.T) {
	store := newMockContentStore()
	content := "Stable content that does not change between crawls."

	w := NewWorkflow(staticExtractor(content), &mockEmbedder{}, &mockVectorDB{}, store)
	req := Request{JobID: "job-1", SourceURLs: []string{"https://example.com/a"}}

	first := w.Run(context.Background(), req)
	if first.Status != jobModel.JobStatusComplete || first.ProcessedChunks == 0 {
		t.Fatalf("first run should ingest: %+v", first)
	}

	second := w.Run(context.Background(), Request{JobID: "job-2", SourceURLs: req.SourceURLs})
	if second.Status != jobModel.JobStatusComplete {
		t.Fatalf("second run should complete, got %s", second.Status)
	}
	if second.ProcessedChunks != 0 {
		t.Errorf("unchanged source must produce 0 new chunks, got %d", second.ProcessedChunks)
	}
	if second.Progress != 1 {
		t.Errorf("skipped source must count toward progress, got %d", second.Progress)
	}
}

func TestRun_ForceUpdateReplacesStored(t *testing.T) {
	store := newMockContentStore()
	vdb := &mockVectorDB{}
	content := "Stable content that does not change between crawls."

	w := NewWorkflow(staticExtractor(content), &mockEmbedder{}, vdb, store)
	url := "https://example.com/a"

	w.Run(context.Background(), Request{JobID: "job-1", SourceURLs: []string{url}})
	job := w.Run(context.Background(), Request{JobID: "job-2", SourceURLs: []string{url}, ForceUpdate: true})

	if job.Status != jobModel.JobStatusComplete {
		t.Fatalf("forced run should complete, got %s", job.Status)
	}
	if job.ProcessedChunks == 0 {
		t.Error("forced run must re-ingest unchanged content")
	}
	if len(vdb.deletedDocs) != 1 || vdb.deletedDocs[0] != DocumentIDFor(url) {
		t.Errorf("forced run must drop stale vectors first, deleted: %v", vdb.deletedDocs)
	}
	if len(store.deletedChunks) != 1 {
		t.Errorf("forced run must drop stale rows first, deleted: %v", store.deletedChunks)
	}
}

func TestRun_ExtractionFailureAborts(t *testing.T) {
	calls := 0
	extractor := &mockExtractor{
		extractFunc: func(_ context.Context, url string) (ExtractedContent, error) {
			calls++
			if strings.Contains(url, "broken") {
				return ExtractedContent{}, errors.New("connection refused")
			}
			return ExtractedContent{Content: "fine content here"}, nil
		},
	}
	w := NewWorkflow(extractor, &mockEmbedder{}, &mockVectorDB{}, nil)

	job := w.Run(context.Background(), Request{
		JobID:      "job-1",
		SourceURLs: []string{"https://example.com/broken", "https://example.com/fine"},
	})

	if job.Status != jobModel.JobStatusError {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	if calls != 1 {
		t.Errorf("run must abort on first extraction failure, extractor called %d times", calls)
	}
	if !strings.Contains(job.ErrorDetails, "broken") {
		t.Errorf("error details should name the failing source: %q", job.ErrorDetails)
	}
	if job.EndTime == nil {
		t.Error("failed job must be terminal")
	}
}

func TestRun_EmbeddingFailureAborts(t *testing.T) {
	embedder := &mockEmbedder{
		docsFunc: func(context.Context, []string) ([][]float32, int, error) {
			return nil, 0, errors.New("provider down")
		},
	}
	vdb := &mockVectorDB{}
	w := NewWorkflow(staticExtractor("Some content to embed."), embedder, vdb, nil)

	job := w.Run(context.Background(), Request{JobID: "job-1", SourceURLs: []string{"https://example.com/a"}})

	if job.Status != jobModel.JobStatusError {
		t.Fatalf("expected failed job, got %s", job.Status)
	}
	if len(vdb.upserted) != 0 {
		t.Error("nothing may reach the vector store when embedding fails")
	}
	if job.ProcessedChunks != 0 {
		t.Errorf("failed run should count 0 chunks, got %d", job.ProcessedChunks)
	}
}

func TestRun_EmptySourceList(t *testing.T) {
	w := NewWorkflow(staticExtractor(""), &mockEmbedder{}, &mockVectorDB{}, nil)

	job := w.Run(context.Background(), Request{JobID: "job-1"})
	if job.Status != jobModel.JobStatusComplete {
		t.Errorf("empty source list should complete immediately, got %s", job.Status)
	}
	if job.Total != 0 || job.Progress != 0 {
		t.Errorf("unexpected totals: %d/%d", job.Progress, job.Total)
	}
}

func TestDocumentIDFor_Stable(t *testing.T) {
	a := DocumentIDFor("https://example.com/a")
	if a != DocumentIDFor("https://example.com/a") {
		t.Error("same URL must map to the same document id")
	}
	if a == DocumentIDFor("https://example.com/b") {
		t.Error("different URLs must map to different document ids")
	}
}

func TestGetFileKind(t *testing.T) {
	tests := []struct {
		path     string
		expected fileKind
	}{
		{"test.pdf", kindPDF},
		{"DOC.DOCX", kindDoc},
		{"notes.txt", kindDoc},
		{"image.png", kindErr},
	}

	for _, tt := range tests {
		if got := getFileKind(tt.path); got != tt.expected {
			t.Errorf("getFileKind(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestHtmlToText(t *testing.T) {
	html := `<html><head><title>Doc Title</title><script>var x = 1;</script></head>
<body><h1>Heading</h1><p>First paragraph.</p></body></html>`

	text := htmlToText(html)
	if strings.Contains(text, "var x") {
		t.Error("script content must be stripped")
	}
	if !strings.Contains(text, "First paragraph.") {
		t.Errorf("body text missing: %q", text)
	}

	if got := extractTitle(html); got != "Doc Title" {
		t.Errorf("extractTitle = %q", got)
	}
}
