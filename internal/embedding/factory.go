package embedding

import (
	"context"
	"fmt"
	"strings"
)

// New creates an embedder for opts.Provider.
// Supported providers: "mock" (default), "openai", "onnx".
func New(ctx context.Context, opts Options) (Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "mock":
		return NewMockEmbedder(opts.Dimensions), nil
	case "openai":
		return NewOpenAIEmbedder(ctx, opts)
	case "onnx":
		return NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, onnx)", opts.Provider)
	}
}
