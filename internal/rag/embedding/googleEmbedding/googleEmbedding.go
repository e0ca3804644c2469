package googleEmbedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension = config.GoogleEmbeddingDimension

type client struct {
	genAi *genai.Client
	model string
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err.Error())
	}
	if c != nil {
		embeddingClient = &client{
			genAi: c,
			model: modelName,
		}
		logger.Debug("Google Embedding model name: " + modelName)
		logger.Info("Google Embedding client created")
		go closeClient(ctx, embeddingClient)
	}
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
	embeddingClient.model = ""
}

// GetGoogleEmbeddingProvider returns the process-wide Google provider, or nil
// when the client could not be created.
func GetGoogleEmbeddingProvider(ctx context.Context, modelName string, apikey string) embedding.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func (c *client) Name() string {
	return "google/" + c.model
}

func (c *client) Dimension() int {
	return int(dimension)
}

func (c *client) Embed(ctx context.Context, texts []string, input embedding.InputType) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.genAi.Models.EmbedContent(ctx, c.model, getContent(texts), &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             taskTypeFor(input),
	})
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err.Error())
		return nil, classify(err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, r := range result.Embeddings {
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}
