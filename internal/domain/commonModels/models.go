package commonModels

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	DocStatusPending   DocumentStatus = "pending"
	DocStatusRunning   DocumentStatus = "running"
	DocStatusProcessed DocumentStatus = "processed"
	DocStatusFailed    DocumentStatus = "failed"
)

// DocumentChunk is the atomic unit of retrieval. Embedding stays nil until the
// embedding stage has run; once set its length must match the model dimension.
type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	SourceURL  string    `json:"source_url"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SourceMetadata tracks the provenance of one ingested document.
type SourceMetadata struct {
	DocumentID     string         `json:"document_id"`
	SourceURL      string         `json:"source_url"`
	Title          string         `json:"title,omitempty"`
	ContentHash    string         `json:"content_hash,omitempty"` //SHA-256, 64 hex chars
	CrawlTimestamp time.Time      `json:"crawl_timestamp"`
	Status         DocumentStatus `json:"status"`
}

// RetrievalResult is one scored match out of a similarity search. Score is
// normalized to [0,1]; RerankScore/RerankPosition are set only when a
// reranker ran over the candidate set.
type RetrievalResult struct {
	ID             string  `json:"id"`
	Content        string  `json:"content"`
	DocumentID     string  `json:"document_id"`
	SourceURL      string  `json:"source_url"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float32 `json:"score"`
	RerankScore    float32 `json:"rerank_score,omitempty"`
	RerankPosition int     `json:"rerank_position,omitempty"`
}

func (c DocumentChunk) HasContent() bool {
	return strings.TrimSpace(c.Content) != ""
}

// ValidSourceURL reports whether the URL is usable as crawl provenance.
func ValidSourceURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// ValidContentHash reports whether s looks like a SHA-256 hex digest.
func ValidContentHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
