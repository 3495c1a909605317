//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXEmbedder stub when built without CGO (see onnx.go for the real one).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO.
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, errors.New("onnx embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime installed")
}

var errONNXRequiresCGO = errors.New("onnx embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime installed")

// Embed is unreachable: the stub constructor never returns an embedder.
func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errONNXRequiresCGO
}

// EmbedBatch is unreachable: the stub constructor never returns an embedder.
func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errONNXRequiresCGO
}

// Dimensions is unreachable: the stub constructor never returns an embedder.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is unreachable: the stub constructor never returns an embedder.
func (e *ONNXEmbedder) Close() error { return nil }
