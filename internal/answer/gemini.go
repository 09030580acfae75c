package answer

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultCompletionModel is used unless overridden.
const DefaultCompletionModel = "gemini-2.0-flash"

// GeminiCompleter implements Completer on the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a completer. The API key is read by the SDK
// from the environment.
func NewGeminiCompleter(ctx context.Context, model string) (*GeminiCompleter, error) {
	if model == "" {
		model = DefaultCompletionModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCompleter: create genai client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := float32(0.1)
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Complete: empty response from model")
	}
	return text, nil
}
