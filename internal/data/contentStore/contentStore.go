package contentStore

import (
	"context"

	"github.com/avellore/ragstack/internal/domain/commonModels"
)

// Store is the relational side of ingestion: document provenance plus the
// raw chunk text, keyed so the vector store entries can be traced back.
type Store interface {
	GetDocumentByURL(ctx context.Context, sourceURL string) (commonModels.SourceMetadata, bool, error)
	SaveDocument(ctx context.Context, meta commonModels.SourceMetadata) error
	ListDocuments(ctx context.Context) ([]commonModels.SourceMetadata, error)

	SaveChunks(ctx context.Context, chunks []commonModels.DocumentChunk) error
	DeleteDocumentChunks(ctx context.Context, documentID string) error
	CountChunks(ctx context.Context, documentID string) (int, error)

	Close() error
}
