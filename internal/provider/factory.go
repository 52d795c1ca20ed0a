package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Vendor identifies which backend to construct.
	Vendor knowledge.Vendor

	// APIKey is the credential for the selected vendor. Unused for ollama.
	// The engine never persists it and never sends it anywhere except the
	// vendor's own API.
	APIKey string

	// BaseURL overrides the vendor's default endpoint (openai gateways,
	// non-default ollama hosts).
	BaseURL string

	// Model is the default generation model for this vendor.
	Model string

	// EmbedModel is the embedding model for this vendor's space.
	EmbedModel string

	// MaxTokens caps the number of tokens generated per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// New constructs a Provider from an explicit Config, delegating to the
// matching vendor constructor. Validation happens in the constructors so
// callers get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (Provider, error) {
	switch cfg.Vendor {
	case knowledge.VendorGemini:
		return NewGeminiProvider(ctx, &GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			EmbedModel:  cfg.EmbedModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case knowledge.VendorOpenAI:
		return NewOpenAIProvider(&OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			EmbedModel:  cfg.EmbedModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case knowledge.VendorOllama:
		return NewOllamaProvider(&OllamaConfig{
			Host:       cfg.BaseURL,
			Model:      cfg.Model,
			EmbedModel: cfg.EmbedModel,
		}), nil
	default:
		return nil, fmt.Errorf("provider: unknown vendor %q — valid values: gemini, openai, ollama", cfg.Vendor)
	}
}

// NewFromEnv constructs a Provider by reading configuration from
// environment variables. DRAFTFORGE_VENDOR selects the backend; each
// vendor uses its own native credential env vars.
//
// Environment variables:
//
//	DRAFTFORGE_VENDOR     = gemini | openai | ollama (default: gemini)
//
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-2.0-flash),
//	         GEMINI_EMBEDDING_MODEL (default: text-embedding-004)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o),
//	         OPENAI_BASE_URL, OPENAI_EMBEDDING_MODEL (default: text-embedding-3-small)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434),
//	         OLLAMA_MODEL (default: llama3),
//	         OLLAMA_EMBEDDING_MODEL (default: nomic-embed-text)
//
//	Shared:  MODEL_MAX_TOKENS (default: 4096), MODEL_TEMPERATURE (default: 0.7)
func NewFromEnv(ctx context.Context) (Provider, error) {
	vendor := knowledge.Vendor(getEnvOrDefault("DRAFTFORGE_VENDOR", string(knowledge.VendorGemini)))

	cfg := &Config{
		Vendor:      vendor,
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.7),
	}

	switch vendor {
	case knowledge.VendorGemini:
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		cfg.Model = os.Getenv("GEMINI_MODEL")
		cfg.EmbedModel = os.Getenv("GEMINI_EMBEDDING_MODEL")
	case knowledge.VendorOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
		cfg.Model = os.Getenv("OPENAI_MODEL")
		cfg.EmbedModel = os.Getenv("OPENAI_EMBEDDING_MODEL")
	case knowledge.VendorOllama:
		cfg.BaseURL = os.Getenv("OLLAMA_HOST")
		cfg.Model = os.Getenv("OLLAMA_MODEL")
		cfg.EmbedModel = os.Getenv("OLLAMA_EMBEDDING_MODEL")
	}

	return New(ctx, cfg)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment
// variable, or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
