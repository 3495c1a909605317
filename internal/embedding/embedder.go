// Package embedding provides text embedding providers behind a single interface:
// a deterministic mock, an OpenAI-compatible remote provider (via eino), and an
// optional local ONNX model. All providers return unit-norm vectors.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// L2-normalized vectors of exactly Dimensions() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Options configures provider construction. Provider is one of "mock",
// "openai", "onnx"; empty means mock.
type Options struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	ModelPath      string
	Dimensions     int
	MaxTokens      int
	CacheSize      int
	TimeoutSeconds int
}
