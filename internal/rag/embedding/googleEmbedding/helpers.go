package googleEmbedding

import (
	"fmt"

	"github.com/avellore/ragstack/internal/rag/embedding"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(texts []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(texts))

	for _, text := range texts {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contentsToSend
}

func taskTypeFor(input embedding.InputType) string {
	if input == embedding.InputQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

// classify wraps quota errors so the generator applies the rate limit
// backoff instead of the transient one.
func classify(err error) error {
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			return fmt.Errorf("%w: %v", embedding.ErrRateLimited, err)
		}
	}
	return err
}
