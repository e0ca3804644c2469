package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var fallbackClient *client

type client struct {
	openAi openai.Client
	model  string
}

// GetOpenAIEmbeddingProvider returns the process-wide OpenAI provider, used
// as the fallback when the primary embedding service is exhausted. Returns
// nil when no API key is configured.
func GetOpenAIEmbeddingProvider(apikey string, modelName string) embedding.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Warn("No OpenAI API key, fallback embedding disabled")
			return
		}
		fallbackClient = &client{
			openAi: openai.NewClient(option.WithAPIKey(apikey)),
			model:  modelName,
		}
		logger.Info("OpenAI Embedding client created")
	})

	if fallbackClient == nil {
		return nil
	}
	return fallbackClient
}

func (c *client) Name() string {
	return "openai/" + c.model
}

func (c *client) Dimension() int {
	return config.OpenAIEmbeddingDimension
}

// OpenAI embeds queries and documents the same way, so input is not used.
func (c *client) Embed(ctx context.Context, texts []string, _ embedding.InputType) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	dims := int64(config.OpenAIEmbeddingDimension)
	resp, err := c.openAi.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      c.model,
		Dimensions: openai.Int(dims),
	})
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err.Error())
		return nil, classify(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return fmt.Errorf("%w: %v", embedding.ErrRateLimited, err)
	}
	return err
}
