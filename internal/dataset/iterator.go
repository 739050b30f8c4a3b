package dataset

import (
	"io"
	"math/rand"
)

// #region iterator
// Iterator walks a split batch by batch. The final batch may be short.
type Iterator struct {
	loader    *Loader
	split     *Split
	order     []int
	batchSize int
	pos       int
}

// Iterator returns a batch iterator over split. With shuffle set the order is
// permuted using the params seed, so two runs see the same batches.
func (l *Loader) Iterator(split *Split, shuffle bool) *Iterator {
	order := make([]int, split.Size)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(l.seed))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return &Iterator{
		loader:    l,
		split:     split,
		order:     order,
		batchSize: l.batchSize,
	}
}

// Next returns the next batch, or io.EOF once the split is exhausted.
func (it *Iterator) Next() (Batch, error) {
	if it.pos >= len(it.order) {
		return Batch{}, io.EOF
	}
	end := it.pos + it.batchSize
	if end > len(it.order) {
		end = len(it.order)
	}
	idx := it.order[it.pos:end]
	it.pos = end

	maxLen := 0
	for _, i := range idx {
		if n := len(it.split.Sentences[i]); n > maxLen {
			maxLen = n
		}
	}

	b := Batch{
		Sentences: make([][]string, len(idx)),
		WordIDs:   make([][]int, len(idx)),
		Labels:    make([]int, len(idx)),
	}
	for k, i := range idx {
		sent := it.split.Sentences[i]
		ids := make([]int, maxLen)
		for j := range ids {
			if j < len(sent) {
				ids[j] = it.loader.WordID(sent[j])
			} else {
				ids[j] = it.loader.padID
			}
		}
		b.Sentences[k] = sent
		b.WordIDs[k] = ids
		b.Labels[k] = it.split.Labels[i]
	}
	return b, nil
}

// #endregion iterator
