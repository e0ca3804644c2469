package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/avellore/ragstack/internal/adapter"
	"github.com/avellore/ragstack/internal/adapter/utils"
	"github.com/avellore/ragstack/internal/api"
	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response: %v", err)
	}
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logRH.Error("Couldn't close the request body :", "error", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	logRH.With("traceId:", ctx.Value(config.TRACE_ID_KEY).(string))
	if ctx.Err() != nil {
		logRH.Warn("context error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true

	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

func queueChatJob(request *http.Request, w http.ResponseWriter, requestData api.ChatRequest) {
	chatID := requestData.ChatID
	isNewChat := false
	if chatID == "" {
		chatID = utils.GetNewUUID()
		logRH.Debug(" New Chat request : ", "chatID:", chatID)
		isNewChat = true
	}

	newJob := newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatID,
		message:   requestData.Message,
		isNewChat: isNewChat,
		traceId:   request.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:   jobModel.JobTypeQuery,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

func queueSourceIngestJob(request *http.Request, w http.ResponseWriter, requestData api.IngestRequest) {
	newJob := newJobData{
		id:           utils.GetNewUUID(),
		traceId:      request.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:      jobModel.JobTypeIngest,
		sourceURLs:   requestData.SourceURLs,
		chunkSize:    requestData.ChunkSize,
		chunkOverlap: requestData.ChunkOverlap,
		forceUpdate:  requestData.ForceUpdate,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

func queueFileIngestJob(request *http.Request, w http.ResponseWriter, docName string, docPath string) {
	newJob := newJobData{
		id:             utils.GetNewUUID(),
		traceId:        request.Context().Value(config.TRACE_ID_KEY).(string),
		jobType:        jobModel.JobTypeIngestFile,
		documentName:   docName,
		documentSource: docPath,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}
