package config

import (
	"log/slog"
	"os"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//chunking defaults - tuned against a 512-token embedding window
	ChunkSize    = 512
	ChunkOverlap = 50 //words carried into the next chunk

	//embedding pipeline
	EmbeddingBatchCeiling          = 96 //provider hard limit per request
	EmbeddingInterBatchDelay       = 100 * time.Millisecond
	EmbeddingMaxRetries            = 5
	EmbeddingMinRetryDelay         = 1 * time.Second
	EmbeddingMaxRetryDelay         = 60 * time.Second
	GoogleEmbeddingModel           = "gemini-embedding-001"
	GoogleEmbeddingDimension int32 = 1536
	OpenAIEmbeddingModel           = "text-embedding-3-small"
	OpenAIEmbeddingDimension       = 1536

	//retrieval
	DefaultTopK           = 5
	RetrievalOverFetch    = 2 //search topK*2 so rerank/boundary filters have headroom
	BoundaryOverlapRatio  = 0.1
	CacheSimilarityCutoff = 0.97

	//llm
	GeminiModelName          = "gemini-2.5-flash-lite-preview-09-2025"
	ModelTemperature float32 = 0.7
	ModelContext             = "You are a study assistant. Answer only from the provided context and cite sources. If the context does not contain the answer, say you don't know."

	//vectorDB
	ContentCollection       = "content_chunks"
	ContentVectorField      = "content"
	SemanticCacheCollection = "semantic-cache"
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1
	QdrantKeepAliveTimeout  = 30 * time.Second

	//relational store
	SQLitePath = "ragstack.db"

	//content fetching
	FetchTimeout      = 30 * time.Second
	FetchMaxRetries   = 3
	FetchBackoffBase  = 1 * time.Second
	FetchUserAgent    = "ragstack-ingestion-bot/1.0"
	ExtractionTimeout = 10 * time.Second

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"
	BufferLimit      = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DBs we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
)

// auth token comes from the environment, bypass is for local runs only
var (
	AuthToken     = os.Getenv("API_AUTH_TOKEN")
	NoAuthBypass  = os.Getenv("API_AUTH_TOKEN") == ""
	RedisPassword = os.Getenv("REDIS_PASSWORD")

	GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
)
