package eval

import (
	"errors"

	"github.com/danielpatrickdp/defeval/internal/dataset"
)

// ErrNoBatches is returned when the split is too small for a single step.
var ErrNoBatches = errors.New("no evaluation batches")

// #region batch-source
// BatchSource yields evaluation batches; dataset.Iterator implements it.
type BatchSource interface {
	Next() (dataset.Batch, error)
}

// LossFunc scores a batch of probabilities against gold tag ids.
type LossFunc func(probs []float64, labels []int) float64

// #endregion batch-source

// #region eval-options
// Options controls the side outputs of an evaluation run.
type Options struct {
	// CollectTagged records one tagged line per sentence.
	CollectTagged bool
	// TagName maps a tag id to its name for tagged lines.
	TagName func(id int) string
}

// #endregion eval-options

// #region eval-result
// Result is the output of an evaluation run.
type Result struct {
	Metrics map[string]float64 // batch means plus precision, recall, f1score
	Loss    float64            // running average of batch losses
	Tagged  []string
	Steps   int
}

// #endregion eval-result
