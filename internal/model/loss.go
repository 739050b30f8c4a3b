package model

import "math"

// probEpsilon keeps log() finite for saturated outputs.
const probEpsilon = 1e-7

// Positive reports whether a sentence tag id is the positive class.
// Tag id 0 is the negative tag in every dataset.
func Positive(label int) bool {
	return label > 0
}

// LossFn is the mean binary cross-entropy of probs against labels.
func LossFn(probs []float64, labels []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for i, p := range probs {
		p = math.Min(math.Max(p, probEpsilon), 1-probEpsilon)
		if Positive(labels[i]) {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(probs))
}
