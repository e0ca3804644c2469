package rag_test

import (
	"context"

	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/rag/ingest"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	// Control fields to simulate different behaviors
	OnSearch           func(ctx context.Context, collection string, vector []float32, topK int, filter *vectorDB.SearchFilter) ([]commonModels.RetrievalResult, error)
	OnGetCachedAnswer  func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnSaveToCache      func(ctx context.Context, id string, vector []float32, answer string) error
	OnEnsureCollection func(ctx context.Context, name string, dimension int) error
	OnUpsertChunks     func(ctx context.Context, name string, chunks []commonModels.DocumentChunk) error
	OnDeleteByDocument func(ctx context.Context, name string, documentID string) error
	OnHealthCheck      func(ctx context.Context) error
}

func (m *MockVectorDB) Search(ctx context.Context, collection string, v []float32, topK int, filter *vectorDB.SearchFilter) ([]commonModels.RetrievalResult, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, collection, v, topK, filter)
	}
	return []commonModels.RetrievalResult{
		{ID: "chunk-1", Content: "default context", SourceURL: "https://example.com/a", Score: 0.8},
	}, nil
}

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, v)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, id string, v []float32, a string) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, id, v, a)
	}
	return nil
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if m.OnEnsureCollection != nil {
		return m.OnEnsureCollection(ctx, name, dimension)
	}
	return nil
}

func (m *MockVectorDB) UpsertChunks(ctx context.Context, name string, chunks []commonModels.DocumentChunk) error {
	if m.OnUpsertChunks != nil {
		return m.OnUpsertChunks(ctx, name, chunks)
	}
	return nil
}

func (m *MockVectorDB) DeleteByDocument(ctx context.Context, name string, documentID string) error {
	if m.OnDeleteByDocument != nil {
		return m.OnDeleteByDocument(ctx, name, documentID)
	}
	return nil
}

func (m *MockVectorDB) HealthCheck(ctx context.Context) error {
	if m.OnHealthCheck != nil {
		return m.OnHealthCheck(ctx)
	}
	return nil
}

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnEmbedQuery     func(ctx context.Context, query string) ([]float32, int, error)
	OnEmbedDocuments func(ctx context.Context, texts []string) ([][]float32, int, error)
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, int, error) {
	if m.OnEmbedDocuments != nil {
		return m.OnEmbedDocuments(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, 2, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, int, error) {
	if m.OnEmbedQuery != nil {
		return m.OnEmbedQuery(ctx, query)
	}
	return []float32{0.1, 0.2}, 2, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, query string, contextBlocks []string, history []string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, q string, blocks []string, hist []string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, blocks, hist)
	}
	return "mocked llm response", nil
}

// MockReranker implements rerank.Reranker
type MockReranker struct {
	OnRerank func(ctx context.Context, query string, candidates []commonModels.RetrievalResult, topK int) ([]commonModels.RetrievalResult, error)
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []commonModels.RetrievalResult, topK int) ([]commonModels.RetrievalResult, error) {
	if m.OnRerank != nil {
		return m.OnRerank(ctx, query, candidates, topK)
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// MockIngestor implements ingest.Runner
type MockIngestor struct {
	OnRun     func(ctx context.Context, req ingest.Request) jobModel.IngestionJob
	OnRunFile func(ctx context.Context, job jobModel.Job) jobModel.Job
}

func (m *MockIngestor) Run(ctx context.Context, req ingest.Request) jobModel.IngestionJob {
	if m.OnRun != nil {
		return m.OnRun(ctx, req)
	}
	run := jobModel.IngestionJob{JobID: req.JobID, SourceURLs: req.SourceURLs, Total: len(req.SourceURLs), Progress: len(req.SourceURLs)}
	run.Finish(jobModel.JobStatusComplete, "")
	return run
}

func (m *MockIngestor) RunFile(ctx context.Context, job jobModel.Job) jobModel.Job {
	if m.OnRunFile != nil {
		return m.OnRunFile(ctx, job)
	}
	job.Status = jobModel.JobStatusComplete
	return job
}
