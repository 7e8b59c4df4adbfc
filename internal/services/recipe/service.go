package recipe

import (
	"context"
	"net/http"
	"unicode/utf8"

	apperrors "github.com/socialchef/pantry/internal/errors"
	"github.com/socialchef/pantry/internal/services/ai"
	"github.com/socialchef/pantry/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Outcome labels which branch produced a response.
type Outcome string

const (
	OutcomeConfigurationError Outcome = "configuration_error"
	OutcomeValidationError    Outcome = "validation_error"
	OutcomeAuthError          Outcome = "auth_error"
	OutcomeRateLimitError     Outcome = "rate_limit_error"
	OutcomeProviderFallback   Outcome = "provider_fallback"
	OutcomeDegraded           Outcome = "degraded"
	OutcomeSuccess            Outcome = "success"
	OutcomeGenericFallback    Outcome = "generic_fallback"
)

// Caller-facing error messages.
const (
	MessageConfiguration = "API configuration error"
	MessageInvalidKey    = "Invalid API key"
	MessageQuota         = "API quota exceeded"
)

var tracer = otel.Tracer("socialchef/pantry/recipe")

// Response is the JSON body returned to the caller.
type Response struct {
	Recipe string `json:"recipe,omitempty"`
	Note   string `json:"note,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the selected outcome for one request.
type Result struct {
	StatusCode  int
	Recipe      string
	Note        string
	Error       string
	Outcome     Outcome
	Ingredients string

	// Err is set for every outcome except success and degraded.
	Err *apperrors.AppError
}

// Response returns the body to serialize for r.
func (r Result) Response() Response {
	return Response{Recipe: r.Recipe, Note: r.Note, Error: r.Error}
}

// Masked reports whether a failure is hidden behind a 200 fallback recipe.
func (r Result) Masked() bool {
	return r.Err != nil && !r.Err.IsSurfaced()
}

// Service turns an ingredients payload into a recipe response.
// It holds only read-only collaborators and is safe for concurrent use.
type Service struct {
	apiKey          string
	generator       TextGenerator
	minRecipeLength int
}

// NewService creates a recipe service. apiKey is the provider credential read at startup;
// an empty key makes every request fail with a configuration error.
func NewService(apiKey string, generator TextGenerator, minRecipeLength int) *Service {
	if minRecipeLength < 1 {
		minRecipeLength = 1
	}
	return &Service{
		apiKey:          apiKey,
		generator:       generator,
		minRecipeLength: minRecipeLength,
	}
}

// Configured reports whether a provider credential is present.
func (s *Service) Configured() bool {
	return s.apiKey != ""
}

// Generate selects exactly one outcome for payload, in priority order:
// missing credential, invalid payload, provider failure, short output, success.
func (s *Service) Generate(ctx context.Context, payload any) Result {
	ctx, span := tracer.Start(ctx, "recipe.Generate")
	defer span.End()

	result := s.generate(ctx, payload)

	span.SetAttributes(
		attribute.String("recipe.outcome", string(result.Outcome)),
		attribute.Int("http.response.status_code", result.StatusCode),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, string(result.Outcome))
	}
	return result
}

func (s *Service) generate(ctx context.Context, payload any) Result {
	if !s.Configured() {
		return ConfigurationResult()
	}

	ingredients, err := validation.Ingredients(payload)
	if err != nil {
		appErr, ok := err.(*apperrors.AppError)
		if !ok {
			appErr = apperrors.NewValidationError(validation.InvalidIngredientsMessage, "INVALID_INGREDIENTS", "")
		}
		return Result{
			StatusCode: appErr.StatusCode,
			Error:      appErr.Message,
			Outcome:    OutcomeValidationError,
			Err:        appErr,
		}
	}

	text, err := s.generator.Generate(ctx, ai.BuildIngredientsPrompt(ingredients))
	if err != nil {
		return providerFailure(ingredients, err)
	}

	// Length is in Unicode code points, so a character outside the BMP counts once.
	if utf8.RuneCountInString(text) < s.minRecipeLength {
		return Result{
			StatusCode:  http.StatusOK,
			Recipe:      DegradedRecipe(ingredients),
			Outcome:     OutcomeDegraded,
			Ingredients: ingredients,
		}
	}

	return Result{
		StatusCode:  http.StatusOK,
		Recipe:      text,
		Outcome:     OutcomeSuccess,
		Ingredients: ingredients,
	}
}

func providerFailure(ingredients string, err error) Result {
	switch ClassifyError(err) {
	case KindAuth:
		appErr := apperrors.NewAuthError(MessageInvalidKey, "PROVIDER_AUTH_FAILED", err)
		return Result{
			StatusCode:  appErr.StatusCode,
			Error:       appErr.Message,
			Outcome:     OutcomeAuthError,
			Ingredients: ingredients,
			Err:         appErr,
		}
	case KindRateLimit:
		appErr := apperrors.NewRateLimitError(MessageQuota, "PROVIDER_QUOTA_EXCEEDED", "Wait for the provider quota to reset.")
		appErr.Err = err
		return Result{
			StatusCode:  appErr.StatusCode,
			Error:       appErr.Message,
			Outcome:     OutcomeRateLimitError,
			Ingredients: ingredients,
			Err:         appErr,
		}
	default:
		return Result{
			StatusCode:  http.StatusOK,
			Recipe:      ProviderFallbackRecipe(ingredients),
			Note:        FallbackNote,
			Outcome:     OutcomeProviderFallback,
			Ingredients: ingredients,
			Err:         apperrors.NewProviderError("recipe provider failed", "PROVIDER_FAILED", err),
		}
	}
}

// ConfigurationResult is the response when no provider credential is configured.
func ConfigurationResult() Result {
	appErr := apperrors.NewConfigurationError(MessageConfiguration, "MISSING_API_KEY")
	return Result{
		StatusCode: appErr.StatusCode,
		Error:      appErr.Message,
		Outcome:    OutcomeConfigurationError,
		Err:        appErr,
	}
}

// GenericResult is the response for a request that failed outside the provider call,
// such as an unreadable body or a panic.
func GenericResult(cause error) Result {
	return Result{
		StatusCode: http.StatusOK,
		Recipe:     GenericRecipe,
		Outcome:    OutcomeGenericFallback,
		Err:        apperrors.NewUnknownError("request failed before generation", cause),
	}
}
