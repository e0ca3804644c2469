package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// IngestionProgress is the external view of a running or finished crawl.
type IngestionProgress struct {
	SourceURLs      []string `json:"source_urls"`
	Progress        int      `json:"progress"`
	Total           int      `json:"total"`
	ProcessedChunks int      `json:"processed_chunks"`
	ErrorDetails    string   `json:"error_details,omitempty"`
}

type Result struct {
	Status              string             `json:"status"`
	RAGExternalResponse *RAGResponse       `json:"rag_response,omitempty"`
	Ingestion           *IngestionProgress `json:"ingestion,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type RetrievedChunk struct {
	Id             string  `json:"id"`
	Content        string  `json:"content"`
	DocumentId     string  `json:"document_id"`
	SourceURL      string  `json:"source_url"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float32 `json:"score"`
	RerankScore    float32 `json:"rerank_score,omitempty"`
	RerankPosition int     `json:"rerank_position,omitempty"`
}

type RetrieveResponse struct {
	Results []RetrievedChunk `json:"results"`
	Count   int              `json:"count"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required" `
	ChatID  string `json:"chatID,omitempty" `
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IngestRequest struct {
	SourceURLs   []string `json:"source_urls" validate:"required"`
	ChunkSize    int      `json:"chunk_size,omitempty"`
	ChunkOverlap int      `json:"chunk_overlap,omitempty"`
	ForceUpdate  bool     `json:"force_update,omitempty"`
}

type RetrieveRequest struct {
	Query        string   `json:"query" validate:"required"`
	TopK         int      `json:"top_k,omitempty"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
	SelectedText string   `json:"selected_text,omitempty"`
}
