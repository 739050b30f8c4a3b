package model

import (
	"math"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/params"
)

// #region factory
// New builds the network named by params.ModelType. Unknown types fall back
// to LuisNet, matching how experiments without a model_type were trained.
func New(p *params.Params, encoder Encoder, vocabSize, padID int) (Model, error) {
	var (
		head *EncoderHead
		err  error
	)
	switch p.ModelType {
	case TypeBert:
		head, err = NewBertDEF(encoder, p.EmbeddingDim)
	case TypeSBert:
		head, err = NewSBertDEF(encoder, p.EmbeddingDim)
	default:
		net, err := NewLuisNet(vocabSize, p.EmbeddingDim, p.HiddenDim, padID)
		if err != nil {
			return nil, err
		}
		return net, nil
	}
	if err != nil {
		return nil, err
	}
	if p.EncoderPooling != "" {
		head.pooling = p.EncoderPooling
	}
	return head, nil
}

// NeedsEncoder reports whether the model type runs on the remote encoder.
func NeedsEncoder(modelType string) bool {
	return modelType == TypeBert || modelType == TypeSBert
}

// #endregion factory

// #region helpers
// linear computes W·x + b for W of shape [out, in].
func linear(w, b *checkpoint.Tensor, x []float64) []float64 {
	out := make([]float64, w.Shape[0])
	for i := range out {
		row := w.Row(i)
		sum := b.Data[i]
		for j, v := range x {
			sum += row[j] * v
		}
		out[i] = sum
	}
	return out
}

func addTo(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// #endregion helpers
