// Package config loads the run configuration of the born-dist CLI from YAML
// with BORN_* environment overrides.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Run configures a training run over a simulated process grid.
type Run struct {
	Ranks      int    `yaml:"ranks"`       // Number of SPMD ranks
	GridHeight int    `yaml:"grid_height"` // 0 picks the most square grid
	DataType   string `yaml:"datatype"`
	Device     string `yaml:"device"`
	Distconv   bool   `yaml:"distconv"`

	Tokenizer  string `yaml:"tokenizer"` // tiktoken encoding or "bytes"
	Steps      int    `yaml:"steps"`
	BatchSize  int    `yaml:"batch_size"`
	Seed       uint64 `yaml:"seed"`
	Checkpoint string `yaml:"checkpoint"` // SafeTensors output path, empty to skip

	Optimizer optim.Config `yaml:"optimizer"`
	LogLevel  string       `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Run {
	return Run{
		Ranks:     4,
		DataType:  "float32",
		Device:    "cpu",
		Tokenizer: "cl100k_base",
		Steps:     200,
		BatchSize: 32,
		Seed:      1,
		Optimizer: optim.Config{Kind: "sgd", LR: 0.5},
		LogLevel:  "info",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Environment overrides are applied last. The result is not
// validated so callers can apply their own overrides before Validate.
func Load(path string) (Run, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return cfg, errors.Wrapf(err, "config %s", path)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (r *Run) decode(src io.Reader) error {
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	if err := dec.Decode(r); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from BORN_RANKS, BORN_GRID_HEIGHT, BORN_DATATYPE,
// BORN_DEVICE, BORN_DISTCONV, BORN_TOKENIZER, BORN_STEPS, BORN_BATCH_SIZE,
// BORN_LR and BORN_LOG_LEVEL. Unparsable numbers are ignored.
func (r *Run) ApplyEnv() {
	r.Ranks = envInt("BORN_RANKS", r.Ranks)
	r.GridHeight = envInt("BORN_GRID_HEIGHT", r.GridHeight)
	r.DataType = envString("BORN_DATATYPE", r.DataType)
	r.Device = envString("BORN_DEVICE", r.Device)
	r.Distconv = envBool("BORN_DISTCONV", r.Distconv)
	r.Tokenizer = envString("BORN_TOKENIZER", r.Tokenizer)
	r.Steps = envInt("BORN_STEPS", r.Steps)
	r.BatchSize = envInt("BORN_BATCH_SIZE", r.BatchSize)
	r.Optimizer.LR = envFloat("BORN_LR", r.Optimizer.LR)
	r.LogLevel = envString("BORN_LOG_LEVEL", r.LogLevel)
}

// Validate checks ranges and enum names.
func (r Run) Validate() error {
	if r.Ranks <= 0 {
		return errors.Errorf("ranks must be positive, got %d", r.Ranks)
	}
	if r.GridHeight < 0 || (r.GridHeight > 0 && r.Ranks%r.GridHeight != 0) {
		return errors.Errorf("grid_height %d does not divide %d ranks", r.GridHeight, r.Ranks)
	}
	if r.Steps < 0 || r.BatchSize <= 0 {
		return errors.Errorf("steps must be non-negative and batch_size positive, got %d and %d", r.Steps, r.BatchSize)
	}
	if _, err := tensor.ParseDataType(r.DataType); err != nil {
		return err
	}
	if _, err := tensor.ParseDevice(r.Device); err != nil {
		return err
	}
	if _, err := r.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (r Run) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(r.LogLevel))); err != nil {
		return 0, errors.Wrap(err, "log_level")
	}
	return l, nil
}
