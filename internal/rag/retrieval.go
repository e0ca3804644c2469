package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
)

// Retrieve runs the retrieval pipeline: embed the query, over-fetch from the
// vector store, rerank, truncate to topK, then enforce the selection
// boundary. Transient failures degrade: a failed query embedding or vector
// search yields an empty result set, a failed rerank falls back to
// similarity order. A missing embedder configuration is an error, there is
// nothing to degrade to.
func (s *service) Retrieve(ctx context.Context, req RetrievalRequest) ([]commonModels.RetrievalResult, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	queryVector, _, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		if errors.Is(err, embedding.ErrNotConfigured) {
			return nil, err
		}
		log.Warn("Query embedding failed, returning empty result set", "error", err.Error())
		return []commonModels.RetrievalResult{}, nil
	}

	return s.searchAndRank(ctx, queryVector, req, topK), nil
}

func (s *service) searchAndRank(ctx context.Context, queryVector []float32, req RetrievalRequest, topK int) []commonModels.RetrievalResult {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var filter *vectorDB.SearchFilter
	if len(req.DocumentIDs) > 0 {
		filter = &vectorDB.SearchFilter{DocumentIDs: req.DocumentIDs}
	}

	//over-fetch so rerank and the boundary filter have candidates to drop
	candidates, err := s.vectorDB.Search(ctx, config.ContentCollection, queryVector, topK*config.RetrievalOverFetch, filter)
	if err != nil {
		//store outages degrade to no context, HealthCheck surfaces them
		log.Warn("Vector search failed, returning empty result set", "error", err.Error())
		return []commonModels.RetrievalResult{}
	}
	if len(candidates) == 0 {
		return []commonModels.RetrievalResult{}
	}

	ranked, err := s.reranker.Rerank(ctx, req.Query, candidates, topK)
	if err != nil {
		log.Warn("Rerank failed, falling back to similarity order", "error", err.Error())
		ranked = truncateByScore(candidates, topK)
	}

	return enforceBoundary(ranked, req.SelectedText)
}

func truncateByScore(results []commonModels.RetrievalResult, topK int) []commonModels.RetrievalResult {
	sorted := make([]commonModels.RetrievalResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > topK {
		sorted = sorted[:topK]
	}
	return sorted
}

// enforceBoundary keeps only chunks that share enough words with the user's
// selected text. An empty selection keeps everything; relative order is
// preserved.
func enforceBoundary(results []commonModels.RetrievalResult, selectedText string) []commonModels.RetrievalResult {
	selected := wordSet(selectedText)
	if len(selected) == 0 {
		return results
	}

	kept := make([]commonModels.RetrievalResult, 0, len(results))
	for _, res := range results {
		if boundaryOverlap(wordSet(res.Content), selected) >= config.BoundaryOverlapRatio {
			kept = append(kept, res)
		}
	}
	return kept
}

// boundaryOverlap is the fraction of selected words found in the chunk.
func boundaryOverlap(chunkWords map[string]struct{}, selectedWords map[string]struct{}) float64 {
	if len(selectedWords) == 0 {
		return 1
	}
	matched := 0
	for w := range selectedWords {
		if _, ok := chunkWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(selectedWords))
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?\"'()[]")] = struct{}{}
	}
	delete(set, "")
	return set
}

// BuildContextBlocks renders retrieval results into numbered, cited blocks
// for the generation prompt.
func BuildContextBlocks(results []commonModels.RetrievalResult) []string {
	blocks := make([]string, 0, len(results))
	for i, res := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] (source: %s)\n%s", i+1, res.SourceURL, res.Content))
	}
	return blocks
}
