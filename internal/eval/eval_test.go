package eval

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/dataset"
	"github.com/danielpatrickdp/defeval/internal/model"
	"github.com/danielpatrickdp/defeval/internal/params"
)

const eps = 1e-9

// #region fakes
type sliceSource struct {
	batches []dataset.Batch
	pos     int
}

func (s *sliceSource) Next() (dataset.Batch, error) {
	if s.pos >= len(s.batches) {
		return dataset.Batch{}, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

// scriptedModel returns one fixed probability vector per call.
type scriptedModel struct {
	outputs [][]float64
	call    int
	err     error
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) StateDict() map[string]*checkpoint.Tensor { return nil }

func (m *scriptedModel) Forward(_ context.Context, _ dataset.Batch) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := m.outputs[m.call]
	m.call++
	return out, nil
}

func twoBatches() *sliceSource {
	return &sliceSource{batches: []dataset.Batch{
		{Sentences: [][]string{{"a", "b"}, {"c"}}, Labels: []int{1, 0}},
		{Sentences: [][]string{{"d"}, {"e", "f"}}, Labels: []int{0, 1}},
	}}
}

func evalParams() *params.Params {
	return &params.Params{BatchSize: 2, Threshold: 0.5}
}

// #endregion fakes

func TestComputeF1(t *testing.T) {
	p, r, f1 := ComputeF1(0, 3, 4)
	if p != 0 || r != 0 || f1 != 0 {
		t.Fatalf("tp=0: expected zeros, got %f %f %f", p, r, f1)
	}
	p, r, f1 = ComputeF1(1, 1, 1)
	if p != 0.5 || r != 0.5 || f1 != 0.5 {
		t.Fatalf("tp=fp=fn=1: expected 0.5s, got %f %f %f", p, r, f1)
	}
	p, r, f1 = ComputeF1(2, 1, 0)
	if math.Abs(p-2.0/3) > eps || r != 1 || math.Abs(f1-0.8) > eps {
		t.Fatalf("tp=2 fp=1 fn=0: got %f %f %f", p, r, f1)
	}
}

func TestEvaluate_Aggregates(t *testing.T) {
	m := &scriptedModel{outputs: [][]float64{{0.9, 0.1}, {0.9, 0.9}}}
	tags := []string{"O", "DEF"}

	res, err := Evaluate(context.Background(), m, model.LossFn, twoBatches(), model.Metrics, evalParams(), 2,
		Options{CollectTagged: true, TagName: func(id int) string { return tags[id] }})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(res.Metrics) != 5 {
		t.Fatalf("expected 5 metrics, got %v", res.Metrics)
	}
	for _, k := range []string{"tp", "fp", "fn"} {
		if _, ok := res.Metrics[k]; ok {
			t.Errorf("expected %s to be removed", k)
		}
	}
	if math.Abs(res.Metrics["accuracy"]-0.75) > eps {
		t.Errorf("accuracy: expected 0.75, got %f", res.Metrics["accuracy"])
	}
	if math.Abs(res.Metrics["precision"]-2.0/3) > eps || res.Metrics["recall"] != 1 {
		t.Errorf("unexpected precision/recall: %v", res.Metrics)
	}
	if math.Abs(res.Metrics["f1score"]-0.8) > eps {
		t.Errorf("f1score: expected 0.8, got %f", res.Metrics["f1score"])
	}
	if math.Abs(res.Loss-res.Metrics["loss"]) > eps {
		t.Errorf("running loss %f differs from mean loss %f", res.Loss, res.Metrics["loss"])
	}

	want := []string{"a b<DEF/><DEF/>", "c<O/><O/>", "d<DEF/><O/>", "e f<DEF/><DEF/>"}
	if strings.Join(res.Tagged, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected tagged lines:\n%s", strings.Join(res.Tagged, "\n"))
	}
}

func TestEvaluate_NoTaggedByDefault(t *testing.T) {
	m := &scriptedModel{outputs: [][]float64{{0.9, 0.1}}}
	res, err := Evaluate(context.Background(), m, model.LossFn, twoBatches(), model.Metrics, evalParams(), 1, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Tagged) != 0 {
		t.Errorf("expected no tagged lines, got %d", len(res.Tagged))
	}
	if res.Steps != 1 {
		t.Errorf("expected 1 step, got %d", res.Steps)
	}
}

func TestEvaluate_NoBatches(t *testing.T) {
	_, err := Evaluate(context.Background(), &scriptedModel{}, model.LossFn, twoBatches(), model.Metrics, evalParams(), 0, Options{})
	if !errors.Is(err, ErrNoBatches) {
		t.Fatalf("expected ErrNoBatches, got %v", err)
	}
}

func TestEvaluate_SourceExhausted(t *testing.T) {
	m := &scriptedModel{outputs: [][]float64{{0.9, 0.1}, {0.9, 0.9}}}
	_, err := Evaluate(context.Background(), m, model.LossFn, twoBatches(), model.Metrics, evalParams(), 3, Options{})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestEvaluate_ForwardError(t *testing.T) {
	m := &scriptedModel{err: errors.New("encoder down")}
	if _, err := Evaluate(context.Background(), m, model.LossFn, twoBatches(), model.Metrics, evalParams(), 1, Options{}); err == nil {
		t.Fatal("expected forward error")
	}
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &scriptedModel{outputs: [][]float64{{0.9, 0.1}}}
	if _, err := Evaluate(ctx, m, model.LossFn, twoBatches(), model.Metrics, evalParams(), 1, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunningAverage(t *testing.T) {
	var r RunningAverage
	if r.Value() != 0 {
		t.Fatal("expected zero before updates")
	}
	r.Update(1)
	r.Update(2)
	if r.Value() != 1.5 {
		t.Fatalf("expected 1.5, got %f", r.Value())
	}
}

func TestNumSteps(t *testing.T) {
	cases := []struct{ size, batch, want int }{
		{10, 10, 1},
		{19, 10, 2},
		{15, 10, 1},
		{7, 10, 0},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := NumSteps(c.size, c.batch); got != c.want {
			t.Errorf("NumSteps(%d, %d) = %d, want %d", c.size, c.batch, got, c.want)
		}
	}
}

func TestFormatMetrics(t *testing.T) {
	got := FormatMetrics(map[string]float64{"recall": 0.5, "accuracy": 1, "f1score": 0.12345})
	want := "accuracy: 1.000 ; f1score: 0.123 ; recall: 0.500"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MetricsFileName("best"))
	if filepath.Base(path) != "metrics_test_best.json" {
		t.Fatalf("unexpected metrics file name %s", path)
	}
	if err := SaveDictToJSON(map[string]float64{"f1score": 0.8, "loss": 0.25}, path); err != nil {
		t.Fatalf("SaveDictToJSON: %v", err)
	}
	m, err := LoadDictFromJSON(path)
	if err != nil {
		t.Fatalf("LoadDictFromJSON: %v", err)
	}
	if m["f1score"] != 0.8 || m["loss"] != 0.25 {
		t.Errorf("unexpected metrics %v", m)
	}

	tagged := filepath.Join(dir, TaggedFileName)
	if err := WriteTagged(tagged, []string{"x<O/><O/>", "y<DEF/><O/>"}); err != nil {
		t.Fatalf("WriteTagged: %v", err)
	}
	data, err := os.ReadFile(tagged)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "x<O/><O/>\ny<DEF/><O/>" {
		t.Errorf("unexpected tagged file %q", data)
	}
}
