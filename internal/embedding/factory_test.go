package embedding

import (
	"context"
	"testing"
)

func TestNew_DefaultsToMock(t *testing.T) {
	e, err := New(context.Background(), Options{Dimensions: 16})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*MockEmbedder); !ok {
		t.Errorf("expected mock embedder, got %T", e)
	}
	if e.Dimensions() != 16 {
		t.Errorf("dimensions = %d, want 16", e.Dimensions())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Options{Provider: "milvus"}); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestNew_OpenAIRequiresCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_EMBED_MODEL", "")
	if _, err := New(context.Background(), Options{Provider: "openai", Dimensions: 8}); err == nil {
		t.Error("openai provider without credentials accepted")
	}
}
