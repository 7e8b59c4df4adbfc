package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/socialchef/pantry/internal/db"
	"github.com/socialchef/pantry/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GenerationStore persists generation records. *db.Queries satisfies it.
type GenerationStore interface {
	CreateGeneration(ctx context.Context, arg db.CreateGenerationParams) (db.Generation, error)
}

type GenerationProcessor struct {
	db      GenerationStore
	metrics *WorkerMetrics
}

func NewGenerationProcessor(store GenerationStore, workerMetrics *WorkerMetrics) *GenerationProcessor {
	return &GenerationProcessor{
		db:      store,
		metrics: workerMetrics,
	}
}

func parseUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: [16]byte(id), Valid: true}, nil
}

// HandleRecordGeneration writes one generation record. Malformed payloads are not retried;
// a record that already exists counts as done.
func (p *GenerationProcessor) HandleRecordGeneration(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	status := "success"
	defer func() {
		p.metrics.RecordJob(ctx, t.Type(), status, time.Since(start).Seconds())
		metrics.GenerationRecordsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", status)))
	}()

	var payload RecordGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		status = "invalid"
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	id, err := parseUUID(payload.ID)
	if err != nil {
		status = "invalid"
		return fmt.Errorf("invalid generation id %q: %v: %w", payload.ID, err, asynq.SkipRetry)
	}

	createdAt := payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = p.db.CreateGeneration(ctx, db.CreateGenerationParams{
		ID:            id,
		Ingredients:   payload.Ingredients,
		Outcome:       payload.Outcome,
		StatusCode:    int32(payload.StatusCode),
		RecipeLength:  int32(payload.RecipeLength),
		ProviderError: pgtype.Text{String: payload.ProviderError, Valid: payload.ProviderError != ""},
		DurationMs:    payload.DurationMs,
		CreatedAt:     pgtype.Timestamptz{Time: createdAt, Valid: true},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		status = "duplicate"
		slog.InfoContext(ctx, "Generation already recorded", "generation_id", payload.ID)
		return nil
	}
	if err != nil {
		status = "failed"
		return fmt.Errorf("failed to save generation: %w", err)
	}

	slog.InfoContext(ctx, "Generation recorded",
		"generation_id", payload.ID,
		"outcome", payload.Outcome,
		"status_code", payload.StatusCode)
	return nil
}
