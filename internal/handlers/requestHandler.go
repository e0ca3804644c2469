package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avellore/ragstack/internal/adapter"
	"github.com/avellore/ragstack/internal/adapter/utils"
	"github.com/avellore/ragstack/internal/api"
	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/avellore/ragstack/internal/rag"
	"github.com/avellore/ragstack/pkg/logger_i"
)

var logRH *logger_i.Logger

// carries the parsed request into the job queue
type newJobData struct {
	id             string
	chatId         string
	message        string
	isNewChat      bool
	traceId        string
	jobType        jobModel.JobType
	sourceURLs     []string
	chunkSize      int
	chunkOverlap   int
	forceUpdate    bool
	documentName   string
	documentSource string
}

// HealthzHandler godoc
// @Summary      Liveness and dependency check
// @Description  Returns 200 when the service and its vector store are reachable.
// @Tags         Operations
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /healthz [get]
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	if handlerInstance == nil || handlerInstance.ragService == nil {
		writeJsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	if err := handlerInstance.ragService.Health(r.Context()); err != nil {
		logRH.Warn("Health check failed", "error", err.Error())
		writeJsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a message, initializes a background processing job, and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Chat Message and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.ChatRequest
		defer closeBody(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(requestData) {

			logRH.Warn("Bad Chat Request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
			return
		}
		queueChatJob(request, w, requestData)
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID, including ingestion progress for crawl jobs.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// PostIngestHandler godoc
// @Summary      Queue a crawl of source URLs
// @Description  Accepts a list of source URLs and queues a background job that extracts, chunks, embeds and stores their content.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.IngestRequest    true  "Source URLs and chunking options"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Missing or invalid source URLs"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.IngestRequest
		defer closeBody(r.Body)
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || len(requestData.SourceURLs) == 0 {
			logRH.Warn("Bad Ingest Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "source_urls is required")
			return
		}
		for _, u := range requestData.SourceURLs {
			if !commonModels.ValidSourceURL(u) {
				WriteErrorResponse(w, http.StatusBadRequest, "", "invalid source url: "+u)
				return
			}
		}

		queueSourceIngestJob(r, w, requestData)
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// PostRetrieveHandler godoc
// @Summary      Retrieve relevant chunks
// @Description  Runs the retrieval pipeline synchronously: embeds the query, searches the vector store, reranks and applies the selected-text boundary.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      api.RetrieveRequest   true  "Query and retrieval options"
// @Success      200      {object}  api.RetrieveResponse  "Ranked retrieval results"
// @Failure      400      {object}  api.JobResponse       "Missing query"
// @Failure      500      {object}  api.JobResponse       "Retrieval failure"
// @Router       /retrieve [post]
func PostRetrieveHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.RetrieveRequest
		defer closeBody(r.Body)
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Query == "" {
			logRH.Warn("Bad Retrieve Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "query is required")
			return
		}

		results, err := handlerInstance.ragService.Retrieve(r.Context(), rag.RetrievalRequest{
			Query:        requestData.Query,
			TopK:         requestData.TopK,
			DocumentIDs:  requestData.DocumentIDs,
			SelectedText: requestData.SelectedText,
		})
		if err != nil {
			logRH.Error("Retrieval failed", "error", err.Error())
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Retrieval failure")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToRetrieveResponse(results))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// PostIngestUploadHandler handles the uploading of PDF or DOCX documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF or DOCX file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest/upload [post]
func PostIngestUploadHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()

		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		//process request
		docName := r.FormValue("document_name")
		if docName == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
			return
		}

		//get the document name the user uploads
		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
			return
		}
		queueFileIngestJob(r, w, docName, tempFilePath)
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}
