package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoembed "github.com/cloudwego/eino/components/embedding"

	"github.com/pawlink/recall/pkg/utils"
)

// OpenAIEmbedder calls an OpenAI-compatible embedding endpoint through eino.
// Responses are converted to float32 and re-normalized before use.
type OpenAIEmbedder struct {
	client     einoembed.Embedder
	dimensions int
	cache      *Cache
}

// NewOpenAIEmbedder builds a remote embedder from opts. APIKey and Model fall
// back to OPENAI_API_KEY / OPENAI_EMBED_MODEL / OPENAI_BASE_URL.
func NewOpenAIEmbedder(ctx context.Context, opts Options) (*OpenAIEmbedder, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	}
	if apiKey == "" || model == "" {
		return nil, fmt.Errorf("openai embedding requires api key and model")
	}

	timeout := 30 * time.Second
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	dim := opts.Dimensions

	client, err := openaiembed.NewEmbedder(ctx, &openaiembed.EmbeddingConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    baseURL,
		Timeout:    timeout,
		Dimensions: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return &OpenAIEmbedder{
		client:     client,
		dimensions: dim,
		cache:      NewCache(opts.CacheSize),
	}, nil
}

// Embed returns the embedding for text, using the cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}
	batch, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return batch[0], nil
}

// EmbedBatch embeds texts in one request. Each result is normalized and must
// match the configured dimension.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	raw, err := e.client.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(raw), len(texts))
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("embed batch: vector %d has dimension %d, expected %d", i, len(v), e.dimensions)
		}
		vec := utils.Float64sToFloat32s(v)
		utils.NormalizeL2(vec)
		out[i] = vec
		e.cache.Set(texts[i], vec)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op; the underlying client has no teardown.
func (e *OpenAIEmbedder) Close() error { return nil }
