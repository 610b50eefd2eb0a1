package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/mindmap-api/internal/generation"
	"google.golang.org/genai"
)

// modelCaller sends one prompt to the model and returns its raw text.
type modelCaller interface {
	generateText(ctx context.Context, system, prompt string) (string, error)
}

// genaiCaller is the modelCaller backed by the Gemini API.
type genaiCaller struct {
	client      *genai.Client
	model       string
	temperature float32
}

func newGenaiCaller(ctx context.Context, apiKey, model string) (*genaiCaller, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return &genaiCaller{client: client, model: model, temperature: 0.7}, nil
}

func (c *genaiCaller) generateText(ctx context.Context, system, prompt string) (string, error) {
	temperature := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return text.String(), nil
}
