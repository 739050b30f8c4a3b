package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeParams(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write params: %v", err)
	}
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeParams(t, `{"model_type":"luis","batch_size":8,"embedding_dim":4,"hidden_dim":3,"learning_rate":0.001}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.ModelType != "luis" || p.BatchSize != 8 || p.EmbeddingDim != 4 || p.HiddenDim != 3 {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold, got %f", p.Threshold)
	}
	if p.Seed != DefaultSeed {
		t.Errorf("expected default seed, got %d", p.Seed)
	}
	if _, ok := p.Extra["learning_rate"]; !ok {
		t.Error("expected unknown key to be kept in Extra")
	}
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := writeParams(t, `{"batch_size":8,"threshold":0,"seed":0}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Threshold != 0 {
		t.Errorf("expected explicit threshold 0, got %f", p.Threshold)
	}
	if p.Seed != 0 {
		t.Errorf("expected explicit seed 0, got %d", p.Seed)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "params.json"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeParams(t, `{"batch_size":`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ZeroBatchSize(t *testing.T) {
	path := writeParams(t, `{"model_type":"luis"}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing batch_size")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeParams(t, `{"model_type":"bert","batch_size":2,"embedding_dim":6,"dropout":0.1}`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p.BatchSize = 16

	out := filepath.Join(t.TempDir(), "saved.json")
	if err := p.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	q, err := Load(out)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if q.BatchSize != 16 {
		t.Errorf("expected batch_size 16, got %d", q.BatchSize)
	}
	dict, err := q.Dict()
	if err != nil {
		t.Fatalf("Dict: %v", err)
	}
	if dict["dropout"] != 0.1 {
		t.Errorf("expected dropout to survive, got %v", dict["dropout"])
	}
}
