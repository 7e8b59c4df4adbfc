// Package history hands generation records to the background worker.
// Recording is a side effect of serving a request and never changes the response.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/socialchef/pantry/internal/worker"
)

// Record describes one completed request to the recipe endpoint.
type Record struct {
	ID            uuid.UUID
	Ingredients   string
	Outcome       string
	StatusCode    int
	RecipeLength  int
	ProviderError string
	Duration      time.Duration
	CreatedAt     time.Time
}

// Recorder accepts generation records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) error { return nil }

// Enqueuer is the part of *asynq.Client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRecorder enqueues records for the worker to persist.
type QueueRecorder struct {
	client   Enqueuer
	queue    string
	maxRetry int
}

func NewQueueRecorder(client Enqueuer, queue string, maxRetry int) *QueueRecorder {
	return &QueueRecorder{client: client, queue: queue, maxRetry: maxRetry}
}

// Record enqueues rec. The record id doubles as the task id so a retried enqueue is not stored twice.
func (r *QueueRecorder) Record(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	task, err := worker.NewRecordGenerationTask(worker.RecordGenerationPayload{
		ID:            rec.ID.String(),
		Ingredients:   rec.Ingredients,
		Outcome:       rec.Outcome,
		StatusCode:    rec.StatusCode,
		RecipeLength:  rec.RecipeLength,
		ProviderError: rec.ProviderError,
		DurationMs:    rec.Duration.Milliseconds(),
		CreatedAt:     rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to build generation task: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(rec.ID.String()),
		asynq.MaxRetry(r.maxRetry),
	}
	if r.queue != "" {
		opts = append(opts, asynq.Queue(r.queue))
	}

	if _, err := r.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue generation record: %w", err)
	}
	return nil
}
