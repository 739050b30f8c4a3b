package dataset

// #region batch
// Batch is one slice of a split handed to the model.
type Batch struct {
	Sentences [][]string // raw tokens, used for the tagged output
	WordIDs   [][]int    // vocabulary ids, padded to the longest sentence
	Labels    []int      // sentence tag ids
}

// Len returns the number of sentences in the batch.
func (b Batch) Len() int {
	return len(b.Labels)
}

// #endregion batch

// #region split
// Split holds one dataset split (train, val, test) in memory.
type Split struct {
	Name      string
	Sentences [][]string
	Labels    []int
	Size      int
}

// #endregion split

// #region dataset-params
// DatasetParams mirrors dataset_params.json written by the preprocessing step.
type DatasetParams struct {
	PadWord string `json:"pad_word"`
	UnkWord string `json:"unk_word"`
}

// DefaultDatasetParams returns the vocabulary markers used when no
// dataset_params.json is present.
func DefaultDatasetParams() DatasetParams {
	return DatasetParams{
		PadWord: "PAD",
		UnkWord: "UNK",
	}
}

// #endregion dataset-params
