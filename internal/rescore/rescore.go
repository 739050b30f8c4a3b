package rescore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/danielpatrickdp/defeval/internal/eval"
)

// #region types
// Row is one parsed line of a tagged-sentences dump.
type Row struct {
	Sentence string
	Pred     string
	Gold     string
}

// TagStats counts how often a tag was predicted, expected and matched.
type TagStats struct {
	Tag       string
	Predicted int
	Gold      int
	Matched   int
}

// Summary aggregates a rescored dump.
type Summary struct {
	Total     int
	Agree     int
	TP        int
	FP        int
	FN        int
	Precision float64
	Recall    float64
	F1        float64
	Tags      []TagStats // sorted by tag
}

// #endregion types

// #region parse
var lineRe = regexp.MustCompile(`^(.*)<([^<>]*)/><([^<>]*)/>$`)

// LoadDump reads a tagged-sentences file.
func LoadDump(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", path, err)
	}
	defer f.Close()
	return ParseDump(f)
}

// ParseDump parses "<tokens><PRED/><GOLD/>" lines; blank lines are skipped.
func ParseDump(r io.Reader) ([]Row, error) {
	var rows []Row
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: not a tagged sentence: %q", n, line)
		}
		rows = append(rows, Row{Sentence: m[1], Pred: m[2], Gold: m[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return rows, nil
}

// #endregion parse

// #region rescore
// Rescore recomputes agreement and positive-class counts for the rows.
func Rescore(rows []Row, positive string) Summary {
	s := Summary{Total: len(rows)}
	stats := make(map[string]*TagStats)
	get := func(tag string) *TagStats {
		ts, ok := stats[tag]
		if !ok {
			ts = &TagStats{Tag: tag}
			stats[tag] = ts
		}
		return ts
	}

	for _, r := range rows {
		get(r.Pred).Predicted++
		get(r.Gold).Gold++
		if r.Pred == r.Gold {
			s.Agree++
			get(r.Pred).Matched++
		}
		predPos, goldPos := r.Pred == positive, r.Gold == positive
		switch {
		case predPos && goldPos:
			s.TP++
		case predPos:
			s.FP++
		case goldPos:
			s.FN++
		}
	}

	s.Precision, s.Recall, s.F1 = eval.ComputeF1(float64(s.TP), float64(s.FP), float64(s.FN))
	for _, ts := range stats {
		s.Tags = append(s.Tags, *ts)
	}
	sort.Slice(s.Tags, func(i, j int) bool { return s.Tags[i].Tag < s.Tags[j].Tag })
	return s
}

// Disagreements returns the rows whose prediction differs from gold.
func Disagreements(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.Pred != r.Gold {
			out = append(out, r)
		}
	}
	return out
}

// #endregion rescore
