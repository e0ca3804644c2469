package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/rag"
)

// SearchInput is the input schema for the search_content tool.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"the search query to run against the content index"`
	TopK         int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	DocumentIDs  []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these document ids"`
	SelectedText string   `json:"selected_text,omitempty" jsonschema:"currently selected text; results are kept only when they overlap it"`
}

// SearchOutput is the output schema for the search_content tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourceURL  string  `json:"source_url"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_content",
		Description: "Semantic search over the ingested content chunks",
	}, s.handleSearch)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	results, err := s.ragService.Retrieve(ctx, rag.RetrievalRequest{
		Query:        input.Query,
		TopK:         topK,
		DocumentIDs:  input.DocumentIDs,
		SelectedText: input.SelectedText,
	})
	if err != nil {
		s.logger.Error("search_content failed", "err", err)
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    results[i].ID,
			DocumentID: results[i].DocumentID,
			SourceURL:  results[i].SourceURL,
			ChunkIndex: results[i].ChunkIndex,
			Score:      results[i].Score,
			Content:    results[i].Content,
		}
	}
	return nil, output, nil
}
