package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielpatrickdp/defeval/internal/params"
)

const (
	tagsFile      = "tags.txt"
	wordsFile     = "words.txt"
	paramsFile    = "dataset_params.json"
	sentencesFile = "sentences.txt"
	labelsFile    = "labels.txt"
)

// #region loader
// Loader owns the vocabulary and tag maps of a dataset directory.
type Loader struct {
	DataDir string
	Params  DatasetParams

	Tag2ID map[string]int
	ID2Tag []string

	vocab map[string]int
	padID int
	unkID int

	batchSize int
	seed      int64
}

// NewLoader reads tags.txt, words.txt and the optional dataset_params.json from dataDir.
func NewLoader(dataDir string, p *params.Params) (*Loader, error) {
	l := &Loader{
		DataDir:   dataDir,
		Params:    DefaultDatasetParams(),
		Tag2ID:    make(map[string]int),
		vocab:     make(map[string]int),
		batchSize: p.BatchSize,
		seed:      p.Seed,
	}

	if data, err := os.ReadFile(filepath.Join(dataDir, paramsFile)); err == nil {
		if err := json.Unmarshal(data, &l.Params); err != nil {
			return nil, fmt.Errorf("parse %s: %w", paramsFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", paramsFile, err)
	}

	tags, err := readLines(filepath.Join(dataDir, tagsFile))
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%s: no tags", tagsFile)
	}
	for i, tag := range tags {
		l.Tag2ID[tag] = i
	}
	l.ID2Tag = tags

	words, err := readLines(filepath.Join(dataDir, wordsFile))
	if err != nil {
		return nil, err
	}
	for i, w := range words {
		l.vocab[w] = i
	}
	var ok bool
	if l.padID, ok = l.vocab[l.Params.PadWord]; !ok {
		return nil, fmt.Errorf("%s: pad word %q missing", wordsFile, l.Params.PadWord)
	}
	if l.unkID, ok = l.vocab[l.Params.UnkWord]; !ok {
		return nil, fmt.Errorf("%s: unknown word %q missing", wordsFile, l.Params.UnkWord)
	}

	return l, nil
}

// VocabSize returns the number of vocabulary entries.
func (l *Loader) VocabSize() int {
	return len(l.vocab)
}

// PadID returns the vocabulary id used for padding.
func (l *Loader) PadID() int {
	return l.padID
}

// WordID maps a token to its vocabulary id, falling back to the unknown word.
func (l *Loader) WordID(token string) int {
	if id, ok := l.vocab[token]; ok {
		return id
	}
	return l.unkID
}

// Tag returns the tag name for a sentence tag id.
func (l *Loader) Tag(id int) string {
	if id < 0 || id >= len(l.ID2Tag) {
		return fmt.Sprintf("UNK_TAG_%d", id)
	}
	return l.ID2Tag[id]
}

// #endregion loader

// #region load-data
// LoadData loads sentences and labels for each requested split under dataDir.
func (l *Loader) LoadData(splits []string, dataDir string) (map[string]*Split, error) {
	out := make(map[string]*Split, len(splits))
	for _, name := range splits {
		s, err := l.loadSplit(name, filepath.Join(dataDir, name))
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}

func (l *Loader) loadSplit(name, dir string) (*Split, error) {
	sentences, err := readLines(filepath.Join(dir, sentencesFile))
	if err != nil {
		return nil, err
	}
	labels, err := readLines(filepath.Join(dir, labelsFile))
	if err != nil {
		return nil, err
	}
	if len(sentences) != len(labels) {
		return nil, fmt.Errorf("split %s: %d sentences but %d labels", name, len(sentences), len(labels))
	}

	s := &Split{
		Name:      name,
		Sentences: make([][]string, len(sentences)),
		Labels:    make([]int, len(labels)),
		Size:      len(sentences),
	}
	for i, line := range sentences {
		s.Sentences[i] = strings.Fields(line)
	}
	for i, tag := range labels {
		id, ok := l.Tag2ID[strings.TrimSpace(tag)]
		if !ok {
			return nil, fmt.Errorf("split %s line %d: unknown tag %q", name, i+1, tag)
		}
		s.Labels[i] = id
	}
	return s, nil
}

// #endregion load-data

// #region helpers
// readLines returns the non-empty lines of a text file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// #endregion helpers
