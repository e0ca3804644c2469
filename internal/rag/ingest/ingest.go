package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/data/contentStore"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/internal/rag/chunker"
	"github.com/avellore/ragstack/internal/rag/dedup"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
	"github.com/avellore/ragstack/pkg/logger_i"
	"github.com/google/uuid"
)

// ExtractedContent is one fetched page ready for chunking.
type ExtractedContent struct {
	Content string
	Title   string
}

type Extractor interface {
	Extract(ctx context.Context, sourceURL string) (ExtractedContent, error)
}

// Request configures one ingestion run. Zero chunk sizes fall back to the
// configured defaults. ForceUpdate re-ingests sources whose stored content
// hash is unchanged.
type Request struct {
	JobID        string
	SourceURLs   []string
	ChunkSize    int
	ChunkOverlap int
	ForceUpdate  bool
}

type Runner interface {
	Run(ctx context.Context, req Request) jobModel.IngestionJob
	RunFile(ctx context.Context, job jobModel.Job) jobModel.Job
}

// Workflow drives extract -> chunk -> dedup -> embed -> store for a list of
// sources. The relational store is optional; without it every run is a full
// re-ingest.
type Workflow struct {
	extractor Extractor
	embedder  embedding.Embedder
	vectorDB  vectorDB.DataProcessor
	documents contentStore.Store
	logger    *logger_i.Logger
}

func NewWorkflow(extractor Extractor, embedder embedding.Embedder, vector vectorDB.DataProcessor, documents contentStore.Store) *Workflow {
	return &Workflow{
		extractor: extractor,
		embedder:  embedder,
		vectorDB:  vector,
		documents: documents,
		logger:    logger_i.NewLogger("ingestion"),
	}
}

// Run processes req.SourceURLs in order. Extraction or embedding failures
// abort the run (fail fast); duplicate or unchanged sources are skipped but
// still count toward Progress. The returned job is always terminal.
func (w *Workflow) Run(ctx context.Context, req Request) jobModel.IngestionJob {
	log := w.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", req.JobID)

	job := jobModel.IngestionJob{
		JobID:      req.JobID,
		SourceURLs: req.SourceURLs,
		Status:     jobModel.JobStatusRunning,
		Total:      len(req.SourceURLs),
		StartTime:  time.Now(),
	}
	if len(req.SourceURLs) == 0 {
		job.Finish(jobModel.JobStatusComplete, "")
		return job
	}

	pipelineStart := time.Now()
	defer func() { metrics.CaptureJobMetrics("ingestion_pipeline", time.Since(pipelineStart)) }()

	//document hashes and chunk hashes must not share a set: a page short
	//enough to fit in one chunk hashes identically at both levels
	docDetector := dedup.NewDuplicateDetector()
	chunkDetector := dedup.NewDuplicateDetector()
	textChunker := chunker.NewTextChunker(req.ChunkSize, req.ChunkOverlap)

	for _, sourceURL := range req.SourceURLs {
		if err := ctx.Err(); err != nil {
			job.Finish(jobModel.JobStatusError, "ingestion cancelled: "+err.Error())
			return job
		}

		extracted, err := w.extractStep(ctx, sourceURL)
		if err != nil {
			log.Error("Extraction failed, aborting run", "sourceUrl", sourceURL, "error", err.Error())
			metrics.IncrementExtractionFailures()
			job.Finish(jobModel.JobStatusError, fmt.Sprintf("extraction failed for %s: %v", sourceURL, err))
			return job
		}

		documentID := DocumentIDFor(sourceURL)
		contentHash := dedup.Hash(extracted.Content)

		//same content already seen this run (mirror, alias URL)
		if isDup, owner := docDetector.IsDuplicate(extracted.Content); isDup {
			log.Info("Skipping duplicate source", "sourceUrl", sourceURL, "ownedBy", owner)
			metrics.IncrementDuplicatesSkipped()
			job.Progress++
			continue
		}
		docDetector.Add(extracted.Content, documentID)

		fresh, err := w.reconcileStored(ctx, log, sourceURL, documentID, contentHash, req.ForceUpdate)
		if err != nil {
			job.Finish(jobModel.JobStatusError, fmt.Sprintf("store reconciliation failed for %s: %v", sourceURL, err))
			return job
		}
		if !fresh {
			log.Info("Source unchanged since last crawl, skipping", "sourceUrl", sourceURL)
			metrics.IncrementDuplicatesSkipped()
			job.Progress++
			continue
		}

		chunks := w.chunkStep(textChunker, extracted.Content, documentID, sourceURL)
		unique := chunkDetector.AddChunks(chunks)
		if len(unique) == 0 {
			log.Info("No unique chunks for source", "sourceUrl", sourceURL)
			job.Progress++
			continue
		}

		embedded, dim, err := w.embedStep(ctx, unique)
		if err != nil {
			log.Error("Embedding failed, aborting run", "sourceUrl", sourceURL, "error", err.Error())
			job.Finish(jobModel.JobStatusError, fmt.Sprintf("embedding failed for %s: %v", sourceURL, err))
			return job
		}

		if err := w.storeStep(ctx, embedded, dim); err != nil {
			log.Error("Vector storage failed, aborting run", "sourceUrl", sourceURL, "error", err.Error())
			job.Finish(jobModel.JobStatusError, fmt.Sprintf("storage failed for %s: %v", sourceURL, err))
			return job
		}

		if err := w.persistStep(ctx, sourceURL, documentID, extracted.Title, contentHash, embedded); err != nil {
			log.Warn("Relational persistence failed", "sourceUrl", sourceURL, "error", err.Error())
		}

		metrics.IncrementDocumentsIngested()
		job.ProcessedChunks += len(embedded)
		job.Progress++
	}

	job.Finish(jobModel.JobStatusComplete, "")
	log.Info("Ingestion run finished", "progress", job.Progress, "chunks", job.ProcessedChunks)
	return job
}

// DocumentIDFor derives a stable document id from the source URL, so
// re-crawling the same page addresses the same document.
func DocumentIDFor(sourceURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String()
}

func (w *Workflow) extractStep(ctx context.Context, sourceURL string) (ExtractedContent, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("extraction", time.Since(start)) }()
	return w.extractor.Extract(ctx, sourceURL)
}

func (w *Workflow) chunkStep(c *chunker.TextChunker, content string, documentID string, sourceURL string) []commonModels.DocumentChunk {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chunking", time.Since(start)) }()
	return c.Chunk(content, documentID, sourceURL)
}

func (w *Workflow) embedStep(ctx context.Context, chunks []commonModels.DocumentChunk) ([]commonModels.DocumentChunk, int, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, dim, err := w.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, 0, err
	}
	if len(vectors) != len(chunks) {
		return nil, 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, dim, nil
}

func (w *Workflow) storeStep(ctx context.Context, chunks []commonModels.DocumentChunk, dim int) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_upsert", time.Since(start)) }()

	if err := w.vectorDB.EnsureCollection(ctx, config.ContentCollection, dim); err != nil {
		return err
	}
	return w.vectorDB.UpsertChunks(ctx, config.ContentCollection, chunks)
}

// reconcileStored decides whether a source needs re-ingesting. Returns false
// when the stored hash matches and no force was requested. When content did
// change, stale chunks are dropped from both stores first.
func (w *Workflow) reconcileStored(ctx context.Context, log *logger_i.Logger, sourceURL string, documentID string, contentHash string, force bool) (bool, error) {
	if w.documents == nil {
		return true, nil
	}

	existing, found, err := w.documents.GetDocumentByURL(ctx, sourceURL)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	if existing.ContentHash == contentHash && !force {
		return false, nil
	}

	log.Info("Source content changed, replacing stored chunks", "sourceUrl", sourceURL)
	if err := w.vectorDB.DeleteByDocument(ctx, config.ContentCollection, documentID); err != nil {
		return false, err
	}
	if err := w.documents.DeleteDocumentChunks(ctx, documentID); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Workflow) persistStep(ctx context.Context, sourceURL string, documentID string, title string, contentHash string, chunks []commonModels.DocumentChunk) error {
	if w.documents == nil {
		return nil
	}

	meta := commonModels.SourceMetadata{
		DocumentID:     documentID,
		SourceURL:      sourceURL,
		Title:          title,
		ContentHash:    contentHash,
		CrawlTimestamp: time.Now(),
		Status:         commonModels.DocStatusProcessed,
	}
	if err := w.documents.SaveDocument(ctx, meta); err != nil {
		return err
	}
	return w.documents.SaveChunks(ctx, chunks)
}
