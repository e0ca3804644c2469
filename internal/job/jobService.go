package job

import (
	"github.com/avellore/ragstack/internal/domain/jobModel"
)

// Service carries the shared job plumbing: the queue the workers drain, the
// dispatcher wakeup channel, and the stores jobs and chat history land in.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg Service) *Service {
	return &cfg
}
