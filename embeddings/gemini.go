package embeddings

import (
	"context"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiEmbedder{
		client:    client,
		model:     opts.Model,
		dimension: opts.Dimension,
	}, nil
}

func (e *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.model)

	results := make([][]float32, 0, len(texts))
	for _, text := range texts {
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, fmt.Errorf("create gemini embedding: %w", err)
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("gemini returned no embedding")
		}

		vec := resp.Embedding.Values
		if err := checkDimension("gemini", e.dimension, len(vec)); err != nil {
			return nil, err
		}
		results = append(results, vec)
	}

	return results, nil
}
