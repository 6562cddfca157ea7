package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"

	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/domain/ports/adapter"
	"face-insight-backend/internal/infra/metrics"
)

var _ adapter.AnswerService = (*GeminiAnswerer)(nil)

type GeminiAnswerer struct {
	client *genai.Client
	model  string
	maxOut int32
}

// NewGeminiAnswerer creates a Gemini-backed answer service using the
// official SDK. baseURL may be empty to use the default endpoint.
func NewGeminiAnswerer(ctx context.Context, apiKey, baseURL, model string, maxAnswerTokens int) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAnswerer{client: c, model: model, maxOut: int32(maxAnswerTokens)}, nil
}

func (g *GeminiAnswerer) Answer(ctx context.Context, agg *model.Aggregate, question string) (string, error) {
	user, err := buildUserPrompt(agg, question)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			MaxOutputTokens:   g.maxOut,
			Temperature:       genai.Ptr[float32](0),
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		},
	)
	metrics.ObserveAnswer("gemini", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		return "", errors.New("gemini: empty candidate")
	}
	return strings.TrimSpace(text), nil
}
