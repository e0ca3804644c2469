package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "completed"
	JobStatusError    JobStatus = "failed"

	UserQueryInit    InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	RAGCall          InternalStatus = "RAG"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	RedisCall        InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery      JobType = "Query"
	JobTypeIngest     JobType = "Ingest"
	JobTypeIngestFile JobType = "IngestFile"
)

// Job is the envelope queued through the worker pool; the ingestion-specific
// progress tracking lives in the embedded IngestionJob once the workflow runs.
type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Ingestion   *IngestionJob  `json:"ingestion,omitempty"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Sources  []string `json:"sources,omitempty"`

	SourceURLs   []string `json:"source_urls,omitempty"`
	ChunkSize    int      `json:"chunk_size,omitempty"`
	ChunkOverlap int      `json:"chunk_overlap,omitempty"`
	ForceUpdate  bool     `json:"force_update,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestURL      string `json:"ingest_url,omitempty"`
}

// IngestionJob tracks one extract->chunk->embed->store run over a URL list.
// Invariants: 0 <= Progress <= Total; EndTime is set iff the job reached a
// terminal state (completed/failed) and is never before StartTime.
type IngestionJob struct {
	JobID           string     `json:"job_id"`
	SourceURLs      []string   `json:"source_urls"`
	Status          JobStatus  `json:"status"`
	Progress        int        `json:"progress"`
	Total           int        `json:"total"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	ProcessedChunks int        `json:"processed_chunks"`
	ErrorDetails    string     `json:"error_details,omitempty"`
}

func (j *IngestionJob) Terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}

// Finish moves the job to a terminal state and stamps EndTime.
func (j *IngestionJob) Finish(status JobStatus, errDetails string) {
	j.Status = status
	j.ErrorDetails = errDetails
	now := time.Now()
	j.EndTime = &now
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	TrySaveChat(ctx context.Context, id string, JobPayload JobPayload) error
	InitNewChat(ctx context.Context, id string) error
	GetMessageHistory(ctx context.Context, chatId string) (error, []string)
}
