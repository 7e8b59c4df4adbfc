package recipe

import (
	"testing"
	"time"

	"github.com/socialchef/pantry/internal/config"
)

func TestFactory_Gemini(t *testing.T) {
	cfg := config.RecipeConfig{
		Provider:       "gemini",
		Model:          "gemini-1.5-flash",
		BaseURL:        "https://generativelanguage.googleapis.com/",
		RequestTimeout: 30 * time.Second,
	}

	provider := NewProvider(cfg, "test-gemini-key")

	gemini, ok := provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("Expected GeminiProvider, got %T", provider)
	}
	if gemini.model != "gemini-1.5-flash" {
		t.Errorf("Expected model gemini-1.5-flash, got %s", gemini.model)
	}
	if gemini.baseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", gemini.baseURL)
	}
	if gemini.client.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", gemini.client.Timeout)
	}
}

func TestFactory_Default(t *testing.T) {
	cfg := config.RecipeConfig{}

	provider := NewProvider(cfg, "test-gemini-key")

	if _, ok := provider.(*GeminiProvider); !ok {
		t.Errorf("Expected default GeminiProvider, got %T", provider)
	}
}
