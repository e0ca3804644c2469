// @title           RAG Content Backend
// @version         1.0
// @description     Async ingestion and retrieval API over a vector store
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/data/contentStore"
	"github.com/avellore/ragstack/internal/data/redisStore"
	"github.com/avellore/ragstack/internal/data/store"
	jobmodel "github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/handlers"
	"github.com/avellore/ragstack/internal/job"
	"github.com/avellore/ragstack/internal/mcpserver"
	"github.com/avellore/ragstack/internal/rag"
	"github.com/avellore/ragstack/internal/rag/embedding"
	"github.com/avellore/ragstack/internal/rag/embedding/googleEmbedding"
	"github.com/avellore/ragstack/internal/rag/embedding/openaiEmbedding"
	"github.com/avellore/ragstack/internal/rag/ingest"
	"github.com/avellore/ragstack/internal/rag/llm/gemini"
	"github.com/avellore/ragstack/internal/rag/rerank"
	"github.com/avellore/ragstack/internal/rag/vectorDB/qdrantDB"
	"github.com/avellore/ragstack/internal/server"
	"github.com/avellore/ragstack/internal/worker"
	"github.com/avellore/ragstack/pkg/logger_i"
)

var (
	listenAddr        string
	mcpMode           bool
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	//.env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.BoolVar(&mcpMode, "mcp", false, "serve retrieval over MCP stdio instead of HTTP")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.Service{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	if redisStore.GetRedisStore(serviceContext, config.RedisJobStore) != nil {
		serviceConfig.JobStore = store.GetRedisJobStore(serviceContext)
		serviceConfig.MessageStore = store.GetRedisMessageStore(serviceContext)
	} else {
		logger.Error("Redis stores are offline, falling back to in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	}
	service := job.InitJobService(serviceConfig)

	vectorDB := qdrantDB.GetQuadrantClient(serviceContext)
	primaryProvider := googleEmbedding.GetGoogleEmbeddingProvider(serviceContext, config.GoogleEmbeddingModel, config.GoogleAPIKey)
	fallbackProvider := openaiEmbedding.GetOpenAIEmbeddingProvider(config.OpenAIAPIKey, config.OpenAIEmbeddingModel)
	llmProvider := gemini.GetGeminiClient(serviceContext, config.GeminiModelName, config.GoogleAPIKey)

	if vectorDB == nil || primaryProvider == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingProvider", primaryProvider != nil, "LLMProvider", llmProvider != nil)
		return
	}
	embedder := embedding.NewGenerator(primaryProvider, fallbackProvider)

	documentStore, err := contentStore.NewSQLiteStore(config.SQLitePath)
	if err != nil {
		logger.Error("Document store unavailable, incremental ingestion disabled", "err", err)
		documentStore = nil
	} else {
		defer documentStore.Close()
	}

	ingestor := ingest.NewWorkflow(ingest.NewHTTPFetcher(), embedder, vectorDB, documentStore)
	ragService := rag.NewService(vectorDB, llmProvider, embedder, rerank.NewLexicalReranker(), ingestor)

	if mcpMode {
		if err := mcpserver.NewServer(ragService).Run(serviceContext); err != nil {
			logger.Error("MCP server stopped", "err", err)
		}
		return
	}

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
