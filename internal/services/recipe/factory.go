package recipe

import (
	"github.com/socialchef/pantry/internal/config"
)

// NewProvider creates a new text provider based on the configuration
func NewProvider(cfg config.RecipeConfig, apiKey string) TextGenerator {
	switch ProviderType(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiProvider(apiKey, cfg.Model, cfg.BaseURL, cfg.RequestTimeout)
	default:
		// Default to gemini
		return NewGeminiProvider(apiKey, cfg.Model, cfg.BaseURL, cfg.RequestTimeout)
	}
}
