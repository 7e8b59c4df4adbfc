package recipe

import "context"

// ProviderType represents the type of AI provider
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
)

// TextGenerator produces free text for a prompt.
// Implementations block until the provider has returned the complete response.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextGeneratorFunc adapts a plain function to TextGenerator.
type TextGeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f(ctx, prompt).
func (f TextGeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
