package rag

import (
	"context"
	"errors"
	"time"

	"github.com/avellore/ragstack/internal/adapter/utils"
	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/internal/rag/ingest"
	"github.com/avellore/ragstack/internal/rag/llm"
	"github.com/avellore/ragstack/internal/rag/rerank"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
	"github.com/avellore/ragstack/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract the worker and handlers call.
  - It defines the "behavior" without exposing the moving parts.

2. service (Private Struct):
  - This is the PRIVATE implementation holding the state
    (vector store, LLM client, embedder, ingestion workflow).
  - Lowercase so external packages can't grab our dependencies directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.

4. Dependency Injection (NewService):
  - The constructor links the private struct to the public interface,
    so tests swap real stores for mocks without touching callers.
*/

// RetrievalRequest is a direct retrieval call, bypassing answer generation.
// SelectedText scopes results to chunks overlapping the user's selection.
type RetrievalRequest struct {
	Query        string
	TopK         int
	DocumentIDs  []string
	SelectedText string
}

type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
	Retrieve(ctx context.Context, req RetrievalRequest) ([]commonModels.RetrievalResult, error)
	IngestSources(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Health(ctx context.Context) error
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	reranker    rerank.Reranker
	ingestor    ingest.Runner
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder, rr rerank.Reranker, ing ingest.Runner) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		reranker:    rr,
		ingestor:    ing,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []string) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	// Embedding
	queryVector, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	// Cache Check
	cachedAnswer, found := s.executeCacheCheckStep(ctx, inMethodLogger, &jobt, queryVector)
	if found {
		return returnOutput(jobt, cachedAnswer)
	}

	// Retrieval (search + rerank + boundary); a store outage degrades to an
	// answer without context rather than failing the turn
	results := s.executeRetrievalStep(processContext, inMethodLogger, &jobt, queryVector)

	// LLM Generation
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, BuildContextBlocks(results), messageHistory)
	if err != nil {
		return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
	}

	//Background Cache Save
	go func() {
		err = s.vectorDB.SaveToCache(ctx, utils.GetNewUUID(), queryVector, answer)
		if err != nil {
			s.logger.Error("Failed to save to cache")
		}
	}()

	return returnOutput(jobt, answer)
}

// IngestSources runs the URL ingestion workflow and attaches its progress
// report to the job.
func (s *service) IngestSources(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Source_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestProcessing
	run := s.ingestor.Run(ctx, ingest.Request{
		JobID:        job.Id,
		SourceURLs:   job.JobPayload.SourceURLs,
		ChunkSize:    job.JobPayload.ChunkSize,
		ChunkOverlap: job.JobPayload.ChunkOverlap,
		ForceUpdate:  job.JobPayload.ForceUpdate,
	})
	job.Ingestion = &run

	if run.Status != jobModel.JobStatusComplete {
		return s.jobError(job, errors.New(run.ErrorDetails), "INGESTION_FAILURE", true)
	}
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

// Health reports whether the vector store is reachable.
func (s *service) Health(ctx context.Context) error {
	return s.vectorDB.HealthCheck(ctx)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()
	j := s.ingestor.RunFile(ctx, job)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("ingest Document Failed"), "INGESTION_FAILURE", true)
	}
	return j
}
