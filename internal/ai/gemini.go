package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	usage  Usage
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *GeminiProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *GeminiProvider) SummarizeAttendance(ctx context.Context, day string, entries []ledger.Entry) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: summarySystemPrompt + "\n\n" + buildSummaryContent(day, entries)},
			},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		p.usage.InputTokens += int(result.UsageMetadata.PromptTokenCount)
		p.usage.OutputTokens += int(result.UsageMetadata.CandidatesTokenCount)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return content, nil
}
