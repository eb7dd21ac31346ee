// Package ai generates natural-language attendance reports. Providers share
// one interface so the reporting command can switch between a hosted API and
// a local model.
package ai

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Provider defines the interface for report generation backends.
type Provider interface {
	Name() string
	// SummarizeAttendance turns one day's ledger entries into a short
	// human-readable report.
	SummarizeAttendance(ctx context.Context, day string, entries []ledger.Entry) (string, error)

	// Usage tracking.
	GetUsage() *Usage
	ResetUsage()
}

// Usage tracks token usage.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// NewProvider creates a provider by name ("openai", "gemini", "ollama",
// "llamacpp") using the credentials from config.
func NewProvider(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch name {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN environment variable is required for the openai provider")
		}
		return NewOpenAIProvider(cfg.OpenAI.Token), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required for the gemini provider")
		}
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	case "ollama":
		return NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model), nil
	case "llamacpp":
		return NewLlamaCppProvider(cfg.LlamaCpp.URL, cfg.LlamaCpp.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected openai, gemini, ollama or llamacpp)", name)
	}
}
