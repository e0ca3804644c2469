package rerank

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/avellore/ragstack/internal/domain/commonModels"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// Reranker reorders a candidate set by relevance to the query and truncates
// it to topK. Implementations must not drop candidates for any other reason.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []commonModels.RetrievalResult, topK int) ([]commonModels.RetrievalResult, error)
}

// LexicalReranker blends the vector similarity score with a lightweight
// term-overlap score. No external calls, so it never fails under load.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(_ context.Context, query string, candidates []commonModels.RetrievalResult, topK int) ([]commonModels.RetrievalResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ranked := make([]commonModels.RetrievalResult, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].RerankScore = ranked[i].Score + lexicalScore(query, ranked[i].Content)
	}

	//stable so equal scores keep their vector-search order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	for i := range ranked {
		ranked[i].RerankPosition = i
	}
	return ranked, nil
}

// lexicalScore computes a term-overlap score for a chunk relative to a query,
// normalized to a small range so it nudges rather than dominates the blend.
func lexicalScore(query, chunkText string) float32 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale
	if score > maxLexicalScore {
		return maxLexicalScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
