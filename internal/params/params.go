package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrConfigNotFound is returned when params.json is missing from the model directory.
var ErrConfigNotFound = errors.New("no json configuration file found")

// #region params
// Params holds the hyperparameters a model was trained with.
// Known keys are decoded into fields; every key is kept in Extra so Save
// writes the file back without dropping anything.
type Params struct {
	ModelType      string  `json:"model_type"`
	BatchSize      int     `json:"batch_size"`
	EmbeddingDim   int     `json:"embedding_dim"`
	HiddenDim      int     `json:"hidden_dim"`
	Threshold      float64 `json:"threshold"`
	Seed           int64   `json:"seed"`
	EncoderPooling string  `json:"encoder_pooling"`

	// Set at runtime, never read from disk.
	Cuda     bool `json:"-"`
	TestSize int  `json:"-"`

	Extra map[string]json.RawMessage `json:"-"`
}

const (
	DefaultThreshold = 0.5
	DefaultSeed      = 230
)

// #endregion params

// #region load
// Load reads params.json at path.
func Load(path string) (*Params, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w at %s", ErrConfigNotFound, path)
	}
	p := &Params{}
	if err := p.Update(path); err != nil {
		return nil, err
	}
	if _, ok := p.Extra["threshold"]; !ok {
		p.Threshold = DefaultThreshold
	}
	if _, ok := p.Extra["seed"]; !ok {
		p.Seed = DefaultSeed
	}
	if p.BatchSize <= 0 {
		return nil, fmt.Errorf("params %s: batch_size must be positive, got %d", path, p.BatchSize)
	}
	return p, nil
}

// Update merges the keys found in the json file at path into p.
func (p *Params) Update(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read params %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse params %s: %w", path, err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("parse params %s: %w", path, err)
	}
	if p.Extra == nil {
		p.Extra = make(map[string]json.RawMessage, len(raw))
	}
	for k, v := range raw {
		p.Extra[k] = v
	}
	return nil
}

// #endregion load

// #region save
// Save writes the params back to path, known fields overriding stored keys.
func (p *Params) Save(path string) error {
	dict, err := p.Dict()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(dict, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write params %s: %w", path, err)
	}
	return nil
}

// Dict returns every parameter as a generic map.
func (p *Params) Dict() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(p.Extra)+7)
	for k, v := range p.Extra {
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("decode param %s: %w", k, err)
		}
		out[k] = val
	}
	known, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

// #endregion save
