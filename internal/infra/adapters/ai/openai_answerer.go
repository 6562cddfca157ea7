package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
	"face-insight-backend/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AnswerService = (*OpenAIAnswerer)(nil)

type OpenAIAnswerer struct {
	client          openai.Client
	model           string
	maxAnswerTokens int64
	maxPromptTokens int
	enc             *tiktoken.Tiktoken
}

func NewOpenAIAnswerer(apiKey, model string, maxAnswerTokens, maxPromptTokens int) (*OpenAIAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tiktoken: %w", err)
	}
	return &OpenAIAnswerer{
		client:          openai.NewClient(option.WithAPIKey(apiKey)),
		model:           model,
		maxAnswerTokens: int64(maxAnswerTokens),
		maxPromptTokens: maxPromptTokens,
		enc:             enc,
	}, nil
}

func (o *OpenAIAnswerer) Answer(ctx context.Context, agg *model.Aggregate, question string) (string, error) {
	user, err := buildUserPrompt(agg, question)
	if err != nil {
		return "", err
	}

	promptTokens := len(o.enc.Encode(systemPrompt+user, nil, nil))
	if promptTokens > o.maxPromptTokens {
		return "", fmt.Errorf("openai: prompt too large (%d tokens)", promptTokens)
	}
	metrics.AddPromptTokens("openai", promptTokens)

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		// deterministic output for accuracy
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(o.maxAnswerTokens),
	})
	metrics.ObserveAnswer("openai", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
