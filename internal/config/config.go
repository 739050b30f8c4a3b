// Package config loads the evaluator's runtime settings: where the remote
// encoder lives, how requests to it are chunked and where run history is
// stored. Hyperparameters stay in params.json (see package params).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile   = "eval.yml"
	DefaultCodecAddr    = "localhost:50051"
	DefaultCodecTimeout = 30 * time.Second
	DefaultChunkSize    = 32
	DefaultWorkers      = 4
	DefaultHistoryDB    = "evaluations.db"
	DefaultSplit        = "test"
)

// Config holds the evaluator runtime settings.
type Config struct {
	CodecAddr    string `yaml:"codec_addr" json:"codec_addr"`
	CodecTimeout string `yaml:"codec_timeout" json:"codec_timeout"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
	Workers      int    `yaml:"workers" json:"workers"`
	HistoryDB    string `yaml:"history_db" json:"history_db"`
	Split        string `yaml:"split" json:"split"`

	sources        map[string]string
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

func newDefault() *Config {
	return &Config{
		CodecAddr:    DefaultCodecAddr,
		CodecTimeout: DefaultCodecTimeout.String(),
		ChunkSize:    DefaultChunkSize,
		Workers:      DefaultWorkers,
		HistoryDB:    DefaultHistoryDB,
		Split:        DefaultSplit,
		sources:      make(map[string]string),
	}
}

func attributeNames() []string {
	return []string{"codec_addr", "codec_timeout", "chunk_size", "workers", "history_db", "split"}
}

// Load reads the YAML file at path (a missing file is not an error) and then
// applies DEFEVAL_* environment overrides. Environment wins over the file.
func Load(path string) (*Config, error) {
	cfg := newDefault()
	for _, name := range attributeNames() {
		cfg.sources[name] = "default"
	}
	cfg.configFilePath = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fileConfig Config
			if err := yaml.Unmarshal(data, &fileConfig); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			cfg.applyFileConfig(&fileConfig)
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.applyEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFileConfig(file *Config) {
	if file.CodecAddr != "" {
		c.CodecAddr = file.CodecAddr
		c.sources["codec_addr"] = "file"
	}
	if file.CodecTimeout != "" {
		c.CodecTimeout = file.CodecTimeout
		c.sources["codec_timeout"] = "file"
	}
	if file.ChunkSize != 0 {
		c.ChunkSize = file.ChunkSize
		c.sources["chunk_size"] = "file"
	}
	if file.Workers != 0 {
		c.Workers = file.Workers
		c.sources["workers"] = "file"
	}
	if file.HistoryDB != "" {
		c.HistoryDB = file.HistoryDB
		c.sources["history_db"] = "file"
	}
	if file.Split != "" {
		c.Split = file.Split
		c.sources["split"] = "file"
	}
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("DEFEVAL_CODEC_ADDR"); val != "" {
		c.CodecAddr = val
		c.sources["codec_addr"] = "environment"
	}
	if val := os.Getenv("DEFEVAL_CODEC_TIMEOUT"); val != "" {
		c.CodecTimeout = val
		c.sources["codec_timeout"] = "environment"
	}
	if val := os.Getenv("DEFEVAL_CHUNK_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.ChunkSize = i
			c.sources["chunk_size"] = "environment"
		}
	}
	if val := os.Getenv("DEFEVAL_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.Workers = i
			c.sources["workers"] = "environment"
		}
	}
	if val := os.Getenv("DEFEVAL_HISTORY_DB"); val != "" {
		c.HistoryDB = val
		c.sources["history_db"] = "environment"
	}
	if val := os.Getenv("DEFEVAL_SPLIT"); val != "" {
		c.Split = val
		c.sources["split"] = "environment"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.CodecTimeout); err != nil {
		return fmt.Errorf("invalid codec_timeout %q: %w", c.CodecTimeout, err)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk_size: %d", c.ChunkSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if strings.TrimSpace(c.Split) == "" {
		return fmt.Errorf("split must not be empty")
	}
	return nil
}

// Timeout returns the per-call encoder timeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.CodecTimeout)
	if err != nil {
		return DefaultCodecTimeout
	}
	return d
}

// HistoryPath resolves the history database relative to the model directory.
func (c *Config) HistoryPath(modelDir string) string {
	if filepath.IsAbs(c.HistoryDB) {
		return c.HistoryDB
	}
	return filepath.Join(modelDir, c.HistoryDB)
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "codec_addr", Value: c.CodecAddr, Source: c.Source("codec_addr")},
		{Name: "codec_timeout", Value: c.CodecTimeout, Source: c.Source("codec_timeout")},
		{Name: "chunk_size", Value: strconv.Itoa(c.ChunkSize), Source: c.Source("chunk_size")},
		{Name: "workers", Value: strconv.Itoa(c.Workers), Source: c.Source("workers")},
		{Name: "history_db", Value: c.HistoryDB, Source: c.Source("history_db")},
		{Name: "split", Value: c.Split, Source: c.Source("split")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-16s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	for _, attr := range c.Attributes() {
		sb.WriteString(fmt.Sprintf("%-16s %-30s %s\n", attr.Name, attr.Value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
