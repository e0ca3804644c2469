package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/internal/rag/chunker"
	"github.com/avellore/ragstack/internal/rag/dedup"
	"github.com/avellore/ragstack/pkg/logger_i"
)

type fileKind int

const (
	kindPDF fileKind = iota
	kindDoc
	kindErr
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger *logger_i.Logger

// RunFile ingests one uploaded file sitting at job.JobPayload.IngestURL. The
// file is removed afterwards, it only exists for the duration of the job.
func (w *Workflow) RunFile(ctx context.Context, job jobModel.Job) jobModel.Job {
	logger = logger_i.NewLogger("file_ingestion")
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", job.Id)

	start := time.Now()
	defer func() { metrics.CaptureJobMetrics("file_ingestion", time.Since(start)) }()

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	log.Debug("Processing uploaded file", "filename", docName, "path", docPath)

	job.CurrentStep = jobModel.IngestProcessing

	kind := getFileKind(docPath)
	if kind == kindErr {
		log.Error("Unsupported file type", "filename", docName)
		metrics.IncrementExtractionFailures()
		return fileJobError(job, "unsupported file type: "+filepath.Ext(docPath))
	}

	pages, err := extractText(docPath, kind)
	if err != nil {
		log.Error("Error extracting file content", "error", err.Error())
		metrics.IncrementExtractionFailures()
		return fileJobError(job, "error extracting file content")
	}

	content := joinPages(pages)
	documentID := job.Id
	sourceURL := "file://" + docName

	textChunker := chunker.NewTextChunker(job.JobPayload.ChunkSize, job.JobPayload.ChunkOverlap)
	chunks := textChunker.Chunk(content, documentID, sourceURL)
	unique := dedup.NewDuplicateDetector().AddChunks(chunks)
	log.Debug("Prepared file chunks", "total", len(chunks), "unique", len(unique))

	if len(unique) > 0 {
		embedded, dim, err := w.embedStep(ctx, unique)
		if err != nil {
			log.Error("Embedding failed for file", "error", err.Error())
			return fileJobError(job, "error embedding file content")
		}
		if err := w.storeStep(ctx, embedded, dim); err != nil {
			log.Error("Vector storage failed for file", "error", err.Error())
			return fileJobError(job, "error storing file content")
		}
		if err := w.persistStep(ctx, sourceURL, documentID, docName, dedup.Hash(content), embedded); err != nil {
			log.Warn("Relational persistence failed for file", "error", err.Error())
		}
	}

	if err := os.Remove(docPath); err != nil {
		log.Error("Error removing uploaded file", "error", err.Error())
	}

	metrics.IncrementDocumentsIngested()
	job.Status = jobModel.JobStatusComplete
	job.Ingestion = &jobModel.IngestionJob{
		JobID:           job.Id,
		SourceURLs:      []string{sourceURL},
		Status:          jobModel.JobStatusComplete,
		Progress:        1,
		Total:           1,
		StartTime:       start,
		ProcessedChunks: len(unique),
	}
	job.Ingestion.Finish(jobModel.JobStatusComplete, "")
	return job
}

func fileJobError(job jobModel.Job, message string) jobModel.Job {
	job.Status = jobModel.JobStatusError
	job.Error.Message = message
	return job
}

func getFileKind(docPath string) fileKind {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return kindPDF
	case ".docx", ".odt", ".txt", ".rtf":
		return kindDoc
	default:
		return kindErr
	}
}

func extractText(path string, kind fileKind) ([]rawPage, error) {
	switch kind {
	case kindPDF:
		return extractPDF(path)
	case kindDoc:
		return extractdocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("unsupported file kind: %d", kind)
	}
}

func joinPages(pages []rawPage) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, "\n")
}
