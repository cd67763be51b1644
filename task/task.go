package task

import (
	"context"
	"time"

	"ffbatch/batch"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Task is one submitted batch and its lifecycle state. The request is not
// exposed over the API; the result is, once processing completes.
type Task struct {
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	Request     *batch.Batch  `json:"-"`
	Result      *batch.Result `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	StartedAt   time.Time     `json:"startedAt,omitempty"`
	CompletedAt time.Time     `json:"completedAt,omitempty"`
	cancelFunc  context.CancelFunc
}
