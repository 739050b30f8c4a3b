package model

import (
	"context"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/dataset"
)

// #region model
// Model scores every sentence of a batch with the probability of the
// positive tag.
type Model interface {
	Name() string
	Forward(ctx context.Context, batch dataset.Batch) ([]float64, error)
	StateDict() map[string]*checkpoint.Tensor
}

// Encoder turns raw sentences into fixed-size vectors. The codec client
// implements it against the remote inference service.
type Encoder interface {
	Encode(ctx context.Context, texts []string, pooling string) ([][]float64, error)
}

// #endregion model

// #region model-types
const (
	TypeBert  = "bert"
	TypeSBert = "sbert"
	TypeLuis  = "luis"
)

// #endregion model-types
