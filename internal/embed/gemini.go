package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini embedding model used unless overridden.
const DefaultModel = "gemini-embedding-001"

// DefaultDimension is the output dimensionality requested from the model.
// It must stay constant for the lifetime of a collection.
const DefaultDimension = 768

// Gemini embeds text with the Gemini embedding API.
type Gemini struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGemini creates a Gemini embedder. The API key is picked up by the SDK
// from the environment (GEMINI_API_KEY / GOOGLE_API_KEY).
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, dim: DefaultDimension}, nil
}

// Embed implements Embedder.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(g.dim)
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("Embed: embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("Embed: empty embedding response")
	}

	vec := resp.Embeddings[0].Values
	if len(vec) != g.dim {
		return nil, fmt.Errorf("Embed: got %d dimensions, want %d", len(vec), g.dim)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (g *Gemini) Dimension() int {
	return g.dim
}
