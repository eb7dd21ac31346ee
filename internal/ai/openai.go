package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	client *openai.Client
	usage  Usage
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *OpenAIProvider) ResetUsage() {
	p.usage = Usage{}
}

func (p *OpenAIProvider) SummarizeAttendance(ctx context.Context, day string, entries []ledger.Entry) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(summarySystemPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(buildSummaryContent(day, entries)),
					},
				},
			},
		},
		MaxTokens: openai.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		p.usage.InputTokens += int(resp.Usage.PromptTokens)
		p.usage.OutputTokens += int(resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}
