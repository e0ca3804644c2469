package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/rag/vectorDB"
	"github.com/avellore/ragstack/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.GoogleEmbeddingDimension)

type ClientHolder struct {
	QObj *qdrant.Client
}

func GetQuadrantClient(ctx context.Context) *ClientHolder {

	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			quadrantInstance = res
			initCacheCollection(ctx, quadrantInstance)
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient() *qdrant.Client {

	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	err = createCollection(context.Background(), client, config.ContentCollection, dimension)
	if err != nil {
		logger.Error("could not create collection: ", "collectionName", config.ContentCollection, "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

// Search runs a similarity query against collectionName and maps hits into
// retrieval results. Scores come back normalized to [0,1]. Collections
// written by older ingesters keep the vector under a named field, so a
// second query without the name covers those.
func (db *ClientHolder) Search(ctx context.Context, collectionName string, vector []float32, topK int, filter *vectorDB.SearchFilter) ([]commonModels.RetrievalResult, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	qdrantFilter := buildFilter(filter)
	limit := qdrant.PtrOf(uint64(topK))

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(config.ContentVectorField),
		Limit:          limit,
		Filter:         qdrantFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Debug("Named vector query failed, falling back to default vector", "error", err.Error())
		result, err = db.QObj.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collectionName,
			Query:          qdrant.NewQuery(vector...),
			Limit:          limit,
			Filter:         qdrantFilter,
			WithPayload:    qdrant.NewWithPayload(true),
		})
	}
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	matches := make([]commonModels.RetrievalResult, 0, len(result))
	for _, hit := range result {
		matches = append(matches, commonModels.RetrievalResult{
			ID:         hit.Payload["chunk_id"].GetStringValue(),
			Content:    hit.Payload["content"].GetStringValue(),
			DocumentID: hit.Payload["document_id"].GetStringValue(),
			SourceURL:  hit.Payload["source_url"].GetStringValue(),
			ChunkIndex: int(hit.Payload["chunk_index"].GetIntegerValue()),
			Score:      vectorDB.NormalizeScore(hit.Score),
		})
	}

	loggr.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func buildFilter(filter *vectorDB.SearchFilter) *qdrant.Filter {
	if filter == nil || len(filter.DocumentIDs) == 0 {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchKeywords("document_id", filter.DocumentIDs...),
		},
	}
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, collectionName string, dim int) error {
	return createCollection(ctx, db.QObj, collectionName, uint64(dim))
}

func (db *ClientHolder) UpsertChunks(ctx context.Context, collectionName string, chunks []commonModels.DocumentChunk) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))

	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":     chunk.Content,
				"chunk_id":    chunk.ID,
				"document_id": chunk.DocumentID,
				"source_url":  chunk.SourceURL,
				"chunk_index": chunk.ChunkIndex,
				"ingested_at": time.Now().Unix(),
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil
}

// DeleteByDocument removes every chunk of one document, used when re-ingesting
// changed content.
func (db *ClientHolder) DeleteByDocument(ctx context.Context, collectionName string, documentID string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords("document_id", documentID),
			},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		loggr.Error("Error deleting document chunks", "documentId", documentID, "error", err)
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) HealthCheck(ctx context.Context) error {
	_, err := db.QObj.HealthCheck(ctx)
	return err
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dim uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}
	if dim == 0 {
		return errors.New("zero vector dimension")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {

		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}
