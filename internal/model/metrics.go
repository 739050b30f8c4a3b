package model

// MetricFn computes one summary statistic for a batch.
type MetricFn func(probs []float64, labels []int, threshold float64) float64

// Metrics is the set computed on every evaluation batch. tp, fp and fn are
// raw counts so they can be summed across batches.
var Metrics = map[string]MetricFn{
	"accuracy": Accuracy,
	"tp":       TruePositives,
	"fp":       FalsePositives,
	"fn":       FalseNegatives,
}

// Predict thresholds a probability into a tag id (1 positive, 0 negative).
func Predict(prob, threshold float64) int {
	if prob > threshold {
		return 1
	}
	return 0
}

func Accuracy(probs []float64, labels []int, threshold float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	correct := 0
	for i, p := range probs {
		if (Predict(p, threshold) == 1) == Positive(labels[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

func TruePositives(probs []float64, labels []int, threshold float64) float64 {
	return count(probs, labels, threshold, true, true)
}

func FalsePositives(probs []float64, labels []int, threshold float64) float64 {
	return count(probs, labels, threshold, true, false)
}

func FalseNegatives(probs []float64, labels []int, threshold float64) float64 {
	return count(probs, labels, threshold, false, true)
}

func count(probs []float64, labels []int, threshold float64, pred, gold bool) float64 {
	var n float64
	for i, p := range probs {
		if (Predict(p, threshold) == 1) == pred && Positive(labels[i]) == gold {
			n++
		}
	}
	return n
}
