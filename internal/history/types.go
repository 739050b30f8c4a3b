package history

import "time"

// #region run
// Run is one recorded evaluation of a checkpoint against a split.
type Run struct {
	RunID       string
	ModelDir    string
	RestoreFile string
	DataDir     string
	Split       string
	ModelType   string
	NumSteps    int
	Loss        float64
	Metrics     map[string]float64
	CreatedAt   time.Time
}

// #endregion run
