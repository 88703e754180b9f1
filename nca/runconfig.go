package nca

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig holds the executor-level decisions the update contract leaves
// open: the boundary policy, how many steps to run, and the tolerance for
// cross-backend verification. The channel and size constants are not here —
// they are a compile-time contract, not runtime-tunable.
type RunConfig struct {
	Boundary       string  `yaml:"boundary"`        // zero | clamp | wrap
	Steps          int     `yaml:"steps"`           // full-grid updates per run
	Tolerance      float64 `yaml:"tolerance"`       // backend divergence bound
	Clamp01        bool    `yaml:"clamp01"`         // clamp written channels into [0,1]
	AliveThreshold float32 `yaml:"alive_threshold"` // zero sampled inputs below this; 0 disables
}

// DefaultRunConfig mirrors the reference executor's behavior: zero-vector
// boundary, one step, default tolerance, pure affine output.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Boundary:  "zero",
		Steps:     1,
		Tolerance: DefaultTolerance,
	}
}

// LoadRunConfig reads a YAML run configuration, overlaying the defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read run config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse run config %s: %w", path, err)
	}
	if _, err := ParseBoundaryPolicy(cfg.Boundary); err != nil {
		return cfg, fmt.Errorf("run config %s: %w", path, err)
	}
	if cfg.Steps < 0 {
		return cfg, fmt.Errorf("run config %s: steps must be non-negative, got %d", path, cfg.Steps)
	}
	if cfg.Tolerance <= 0 {
		return cfg, fmt.Errorf("run config %s: tolerance must be positive, got %v", path, cfg.Tolerance)
	}
	if cfg.AliveThreshold < 0 {
		return cfg, fmt.Errorf("run config %s: alive_threshold must be non-negative, got %v", path, cfg.AliveThreshold)
	}
	return cfg, nil
}

// Options translates the config into executor options.
func (c RunConfig) Options() (ExecutorOptions, error) {
	policy, err := ParseBoundaryPolicy(c.Boundary)
	if err != nil {
		return ExecutorOptions{}, err
	}
	return ExecutorOptions{
		Boundary:       policy,
		Clamp01:        c.Clamp01,
		AliveThreshold: c.AliveThreshold,
	}, nil
}
