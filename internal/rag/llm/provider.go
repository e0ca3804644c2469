package llm

import "context"

// Provider generates a grounded answer from retrieved context blocks plus
// the rolling chat history.
type Provider interface {
	Generate(ctx context.Context, query string, contextBlocks []string, messageHistory []string) (string, error)
}
