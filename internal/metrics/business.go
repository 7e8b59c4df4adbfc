package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("socialchef/pantry")

	// Recipe metrics
	RecipeGenerationsTotal   metric.Int64Counter     = noop.Int64Counter{}
	RecipeGenerationDuration metric.Float64Histogram = noop.Float64Histogram{}

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter     = noop.Int64Counter{}
	ExternalAPIDuration   metric.Float64Histogram = noop.Float64Histogram{}

	// AI metrics
	AIGenerationDuration metric.Float64Histogram = noop.Float64Histogram{}

	// History metrics
	GenerationRecordsTotal metric.Int64Counter = noop.Int64Counter{}
)

// Init registers the business instruments against the global meter provider.
// Until it is called every instrument is a no-op, so tests never need it.
func Init() error {
	var err error

	// Recipe metrics
	RecipeGenerationsTotal, err = meter.Int64Counter(
		"recipe.generations.total",
		metric.WithDescription("Total number of recipe generation requests by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecipeGenerationDuration, err = meter.Float64Histogram(
		"recipe.generation.duration",
		metric.WithDescription("Duration of recipe generation requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	// AI metrics
	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of AI recipe generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// History metrics
	GenerationRecordsTotal, err = meter.Int64Counter(
		"generation.records.total",
		metric.WithDescription("Total number of generation records by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
