package vectorDB

import (
	"context"

	"github.com/avellore/ragstack/internal/domain/commonModels"
)

// SearchFilter narrows a similarity search. A nil filter or an empty
// DocumentIDs list matches everything.
type SearchFilter struct {
	DocumentIDs []string
}

type DataProcessor interface {
	Search(ctx context.Context, collectionName string, vector []float32, topK int, filter *SearchFilter) ([]commonModels.RetrievalResult, error)
	GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string) error

	// EnsureCollection is idempotent - a second call with the same name is a no-op
	EnsureCollection(ctx context.Context, collectionName string, dimension int) error
	UpsertChunks(ctx context.Context, collectionName string, chunks []commonModels.DocumentChunk) error
	DeleteByDocument(ctx context.Context, collectionName string, documentID string) error
	HealthCheck(ctx context.Context) error
}

// NormalizeScore remaps a cosine similarity from [-1,1] to [0,1], clamped.
func NormalizeScore(cosine float32) float32 {
	s := (cosine + 1) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
