package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/dataset"
)

// #region encoder-head
// EncoderHead puts a linear sigmoid classifier on top of sentence vectors
// produced by the remote encoder. BertDEF pools the CLS token, SBertDEF
// averages token states.
type EncoderHead struct {
	name    string
	encoder Encoder
	pooling string
	weight  *checkpoint.Tensor // [1, dim]
	bias    *checkpoint.Tensor // [1]
}

// NewBertDEF builds the CLS-pooled classifier.
func NewBertDEF(encoder Encoder, dim int) (*EncoderHead, error) {
	return newEncoderHead("BertDEF", encoder, "cls", dim)
}

// NewSBertDEF builds the mean-pooled sentence-transformer classifier.
func NewSBertDEF(encoder Encoder, dim int) (*EncoderHead, error) {
	return newEncoderHead("SBertDEF", encoder, "mean", dim)
}

func newEncoderHead(name string, encoder Encoder, pooling string, dim int) (*EncoderHead, error) {
	if encoder == nil {
		return nil, fmt.Errorf("%s: no encoder configured", name)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("%s: invalid embedding_dim %d", name, dim)
	}
	return &EncoderHead{
		name:    name,
		encoder: encoder,
		pooling: pooling,
		weight:  checkpoint.NewTensor(1, dim),
		bias:    checkpoint.NewTensor(1),
	}, nil
}

func (h *EncoderHead) Name() string { return h.name }

func (h *EncoderHead) StateDict() map[string]*checkpoint.Tensor {
	return map[string]*checkpoint.Tensor{
		"classifier.weight": h.weight,
		"classifier.bias":   h.bias,
	}
}

// Forward encodes the batch remotely and scores each vector.
func (h *EncoderHead) Forward(ctx context.Context, batch dataset.Batch) ([]float64, error) {
	texts := make([]string, len(batch.Sentences))
	for i, s := range batch.Sentences {
		texts[i] = strings.Join(s, " ")
	}
	vecs, err := h.encoder.Encode(ctx, texts, h.pooling)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", h.name, err)
	}
	dim := h.weight.Shape[1]
	out := make([]float64, len(vecs))
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%s: %w: encoder returned %d dims, head expects %d",
				h.name, checkpoint.ErrShapeMismatch, len(v), dim)
		}
		out[i] = sigmoid(linear(h.weight, h.bias, v)[0])
	}
	return out, nil
}

// #endregion encoder-head
