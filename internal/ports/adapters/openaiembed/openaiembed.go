// Package openaiembed implements the Embedder port on the OpenAI
// embeddings API (or any compatible endpoint via base URL override).
package openaiembed

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Adapter struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func New(apiKey, baseURL, model string, timeout time.Duration) *Adapter {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Adapter{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.client.Embeddings.New(reqCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(a.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(res.Data), len(texts))
	}

	out := make([][]float64, len(res.Data))
	for i, d := range res.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
