package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vector, _, err := s.embedder.EmbedQuery(ctx, job.JobPayload.Question)
	return vector, err
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (string, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, _ := s.vectorDB.GetCachedAnswer(ctx, emb)
	return ans, found
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) []commonModels.RetrievalResult {
	*job = logOutput(*job, jobModel.VectorDBCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	results := s.searchAndRank(ctx, emb, RetrievalRequest{Query: job.JobPayload.Question}, topKForChat)

	sources := make([]string, 0, len(results))
	for _, res := range results {
		sources = append(sources, res.SourceURL)
	}
	job.JobPayload.Sources = sources
	return results
}

//chat answers ground on a tighter context than raw retrieval calls
const topKForChat = 3

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, contextBlocks []string, history []string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, job.JobPayload.Question, contextBlocks, history)
}
