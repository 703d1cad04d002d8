package process

import (
	"context"

	"waveline/internal/queue"
)

// Request carries everything a handler needs to process one job.
type Request struct {
	Job  *queue.Job
	File *queue.AudioFile

	// Progress, when non-nil, receives coarse progress updates in the
	// 10..100 range while the handler runs.
	Progress func(float64)
}

func (r *Request) report(progress float64) {
	if r != nil && r.Progress != nil {
		r.Progress(progress)
	}
}

// Result is the successful outcome of a handler execution.
type Result struct {
	// ResultJSON is the payload stored on the job record.
	ResultJSON string
	// OutputPath names the derived file, when the job produces one.
	OutputPath string
}

// Handler describes the contract the workflow manager needs from each job type.
type Handler interface {
	JobType() queue.JobType
	Execute(context.Context, *Request) (Result, error)
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of a job handler.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
