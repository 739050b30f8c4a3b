package model

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/dataset"
)

// #region luis-net
// LuisNet is the small in-process tagger: mean word embedding, one ReLU
// hidden layer and a sigmoid output unit.
type LuisNet struct {
	embedding *checkpoint.Tensor // [vocab, emb]
	fc1W      *checkpoint.Tensor // [hidden, emb]
	fc1B      *checkpoint.Tensor // [hidden]
	fc2W      *checkpoint.Tensor // [1, hidden]
	fc2B      *checkpoint.Tensor // [1]
	padID     int
}

// NewLuisNet allocates a zeroed network; weights come from a checkpoint.
func NewLuisNet(vocabSize, embeddingDim, hiddenDim, padID int) (*LuisNet, error) {
	if vocabSize <= 0 || embeddingDim <= 0 || hiddenDim <= 0 {
		return nil, fmt.Errorf("luis net: invalid dims vocab=%d emb=%d hidden=%d", vocabSize, embeddingDim, hiddenDim)
	}
	return &LuisNet{
		embedding: checkpoint.NewTensor(vocabSize, embeddingDim),
		fc1W:      checkpoint.NewTensor(hiddenDim, embeddingDim),
		fc1B:      checkpoint.NewTensor(hiddenDim),
		fc2W:      checkpoint.NewTensor(1, hiddenDim),
		fc2B:      checkpoint.NewTensor(1),
		padID:     padID,
	}, nil
}

func (n *LuisNet) Name() string { return "LuisNet" }

func (n *LuisNet) StateDict() map[string]*checkpoint.Tensor {
	return map[string]*checkpoint.Tensor{
		"embedding.weight": n.embedding,
		"fc1.weight":       n.fc1W,
		"fc1.bias":         n.fc1B,
		"fc2.weight":       n.fc2W,
		"fc2.bias":         n.fc2B,
	}
}

// Forward returns the positive-tag probability for each sentence.
func (n *LuisNet) Forward(ctx context.Context, batch dataset.Batch) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vocab, emb := n.embedding.Shape[0], n.embedding.Shape[1]
	out := make([]float64, len(batch.WordIDs))
	x := make([]float64, emb)
	for i, ids := range batch.WordIDs {
		for k := range x {
			x[k] = 0
		}
		count := 0
		for _, id := range ids {
			if id == n.padID {
				continue
			}
			if id < 0 || id >= vocab {
				return nil, fmt.Errorf("word id %d outside vocabulary of %d", id, vocab)
			}
			addTo(x, n.embedding.Row(id))
			count++
		}
		if count > 0 {
			for k := range x {
				x[k] /= float64(count)
			}
		}
		h := linear(n.fc1W, n.fc1B, x)
		for k := range h {
			h[k] = relu(h[k])
		}
		out[i] = sigmoid(linear(n.fc2W, n.fc2B, h)[0])
	}
	return out, nil
}

// #endregion luis-net
