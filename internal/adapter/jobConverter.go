package adapter

import (
	"fmt"
	"time"

	"github.com/avellore/ragstack/internal/api"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/avellore/ragstack/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
		Ingestion:           ToIngestionProgress(job.Ingestion),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
	}
}

func ToIngestionProgress(run *jobModel.IngestionJob) *api.IngestionProgress {
	if run == nil {
		return nil
	}
	return &api.IngestionProgress{
		SourceURLs:      run.SourceURLs,
		Progress:        run.Progress,
		Total:           run.Total,
		ProcessedChunks: run.ProcessedChunks,
		ErrorDetails:    run.ErrorDetails,
	}
}

func ToRetrieveResponse(results []commonModels.RetrievalResult) api.RetrieveResponse {
	out := make([]api.RetrievedChunk, 0, len(results))
	for _, res := range results {
		out = append(out, api.RetrievedChunk{
			Id:             res.ID,
			Content:        res.Content,
			DocumentId:     res.DocumentID,
			SourceURL:      res.SourceURL,
			ChunkIndex:     res.ChunkIndex,
			Score:          res.Score,
			RerankScore:    res.RerankScore,
			RerankPosition: res.RerankPosition,
		})
	}
	return api.RetrieveResponse{Results: out, Count: len(out)}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
