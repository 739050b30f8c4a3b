package eval

// RunningAverage keeps the mean of the values it has seen.
type RunningAverage struct {
	steps int
	total float64
}

func (r *RunningAverage) Update(v float64) {
	r.total += v
	r.steps++
}

// Value returns the current mean, zero before the first update.
func (r *RunningAverage) Value() float64 {
	if r.steps == 0 {
		return 0
	}
	return r.total / float64(r.steps)
}
