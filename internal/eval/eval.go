package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/danielpatrickdp/defeval/internal/model"
	"github.com/danielpatrickdp/defeval/internal/params"
)

// #region evaluate
// Evaluate runs m over numSteps batches pulled from src and aggregates the
// per-batch metric summaries. Every metric is averaged across batches;
// precision, recall and F1 come from the summed tp/fp/fn counts, which are
// then dropped from the result.
func Evaluate(
	ctx context.Context,
	m model.Model,
	lossFn LossFunc,
	src BatchSource,
	metrics map[string]model.MetricFn,
	p *params.Params,
	numSteps int,
	opts Options,
) (Result, error) {
	if numSteps <= 0 {
		return Result{}, ErrNoBatches
	}

	var (
		summ    []map[string]float64
		tagged  []string
		lossAvg RunningAverage
	)

	for step := 0; step < numSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		batch, err := src.Next()
		if errors.Is(err, io.EOF) {
			return Result{}, fmt.Errorf("batch %d of %d: %w", step+1, numSteps, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return Result{}, fmt.Errorf("batch %d: %w", step+1, err)
		}

		probs, err := m.Forward(ctx, batch)
		if err != nil {
			return Result{}, fmt.Errorf("forward batch %d: %w", step+1, err)
		}
		if len(probs) != batch.Len() {
			return Result{}, fmt.Errorf("forward batch %d: %d outputs for %d sentences", step+1, len(probs), batch.Len())
		}
		loss := lossFn(probs, batch.Labels)

		summary := make(map[string]float64, len(metrics)+1)
		for name, fn := range metrics {
			summary[name] = fn(probs, batch.Labels, p.Threshold)
		}
		summary["loss"] = loss
		summ = append(summ, summary)

		if opts.CollectTagged {
			for i, sent := range batch.Sentences {
				pred := model.Predict(probs[i], p.Threshold)
				tagged = append(tagged, tagLine(sent, opts.tagName(pred), opts.tagName(batch.Labels[i])))
			}
		}

		lossAvg.Update(loss)
	}

	mean := make(map[string]float64, len(summ[0])+3)
	sum := make(map[string]float64, len(summ[0]))
	for name := range summ[0] {
		var total float64
		for _, s := range summ {
			total += s[name]
		}
		sum[name] = total
		mean[name] = total / float64(len(summ))
	}

	prec, rec, f1 := ComputeF1(sum["tp"], sum["fp"], sum["fn"])
	mean["f1score"] = f1
	mean["precision"] = prec
	mean["recall"] = rec
	for _, k := range []string{"tp", "fp", "fn"} {
		delete(mean, k)
	}

	log.Printf("- Eval metrics : %s", FormatMetrics(mean))

	return Result{
		Metrics: mean,
		Loss:    lossAvg.Value(),
		Tagged:  tagged,
		Steps:   numSteps,
	}, nil
}

func (o Options) tagName(id int) string {
	if o.TagName == nil {
		return fmt.Sprint(id)
	}
	return o.TagName(id)
}

// tagLine renders "<tokens><PRED/><GOLD/>".
func tagLine(tokens []string, pred, gold string) string {
	return strings.Join(tokens, " ") + "<" + pred + "/>" + "<" + gold + "/>"
}

// #endregion evaluate

// #region f1
// ComputeF1 derives precision, recall and F1 from summed counts. All three
// are zero when there are no true positives.
func ComputeF1(tp, fp, fn float64) (precision, recall, f1 float64) {
	if tp == 0 {
		return 0, 0, 0
	}
	precision = tp / (tp + fp)
	recall = tp / (tp + fn)
	f1 = 2 * (precision * recall) / (precision + recall)
	return precision, recall, f1
}

// #endregion f1

// #region helpers
// NumSteps is the number of evaluation batches for a split of the given size.
func NumSteps(size, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (size + 1) / batchSize
}

// FormatMetrics renders "k: 0.123 ; k2: 0.456" with keys sorted.
func FormatMetrics(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %05.3f", k, m[k])
	}
	return strings.Join(parts, " ; ")
}

// #endregion helpers
