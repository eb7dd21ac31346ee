package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const (
	defaultLlamaCppURL   = "http://localhost:8080"
	defaultLlamaCppModel = "llama"
)

// LlamaCppProvider talks to a llama.cpp server through its OpenAI-compatible
// chat completions endpoint.
type LlamaCppProvider struct {
	baseURL string
	model   string
	client  *http.Client
	usage   Usage
}

func NewLlamaCppProvider(baseURL, model string) *LlamaCppProvider {
	if baseURL == "" {
		baseURL = defaultLlamaCppURL
	}
	if model == "" {
		model = defaultLlamaCppModel
	}
	return &LlamaCppProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *LlamaCppProvider) Name() string {
	return p.model
}

func (p *LlamaCppProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *LlamaCppProvider) ResetUsage() {
	p.usage = Usage{}
}

type llamaCppRequest struct {
	Model    string            `json:"model"`
	Messages []llamaCppMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

type llamaCppMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// llamaCppResponse represents a response from the llama.cpp OpenAI-compatible API.
type llamaCppResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *LlamaCppProvider) SummarizeAttendance(ctx context.Context, day string, entries []ledger.Entry) (string, error) {
	reqBody, err := json.Marshal(llamaCppRequest{
		Model: p.model,
		Messages: []llamaCppMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: buildSummaryContent(day, entries)},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llama.cpp request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama.cpp API error (status %d): %s", resp.StatusCode, string(body))
	}

	var llamaResp llamaCppResponse
	if err := json.Unmarshal(body, &llamaResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	p.usage.InputTokens += llamaResp.Usage.PromptTokens
	p.usage.OutputTokens += llamaResp.Usage.CompletionTokens

	if len(llamaResp.Choices) == 0 {
		return "", errors.New("no response from llama.cpp")
	}
	return llamaResp.Choices[0].Message.Content, nil
}
