package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeRecordGeneration = "record:generation"
)

// RecordGenerationPayload is the payload for generation history tasks
type RecordGenerationPayload struct {
	ID            string    `json:"id"`
	Ingredients   string    `json:"ingredients"`
	Outcome       string    `json:"outcome"`
	StatusCode    int       `json:"status_code"`
	RecipeLength  int       `json:"recipe_length"`
	ProviderError string    `json:"provider_error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRecordGenerationTask creates a new generation history task
func NewRecordGenerationTask(payload RecordGenerationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRecordGeneration, data), nil
}
