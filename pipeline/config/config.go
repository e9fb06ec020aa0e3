package config

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/atlante/pipeline/model"
	"github.com/spaghettifunk/atlante/pipeline/sdf"
)

/** @brief Configuration for the SDF generation step. */
type SDFConfig struct {
	/** @brief The resolution scale applied on top of per-asset settings. */
	ResolutionScale float32 `toml:"resolution_scale"`
	/** @brief The back-face hit fraction above which a voxel counts as inside. */
	BackfacesThreshold float32 `toml:"backfaces_threshold"`
}

/**
 * @brief Configuration for a pipeline project: the directory layout, the
 * worker pool size and the default import settings applied to sources
 * without their own options file.
 */
type Config struct {
	/** @brief The directory scanned for source files. */
	SourceDir string `toml:"source_dir"`
	/** @brief The directory receiving generated assets. */
	OutputDir string `toml:"output_dir"`
	/** @brief The directory holding derived-data caches. */
	CacheDir string `toml:"cache_dir"`
	/** @brief The worker pool size, 0 for one worker per CPU. */
	Workers int `toml:"workers"`

	SDF SDFConfig `toml:"sdf"`

	/** @brief The default model import options. */
	Model model.Options `toml:"model"`
}

// NewConfig returns the default project configuration.
func NewConfig() *Config {
	return &Config{
		SourceDir: "content",
		OutputDir: "output",
		CacheDir:  "cache",
		Workers:   0,
		SDF: SDFConfig{
			ResolutionScale:    1.0,
			BackfacesThreshold: sdf.DefaultBackfacesThreshold,
		},
		Model: model.NewOptions(),
	}
}

// WorkerCount resolves the configured worker pool size.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Load reads a project configuration file, filling missing fields with the
// defaults.
func Load(path string) (*Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := NewConfig()
	if err := toml.Unmarshal(payload, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration out as TOML.
func (c *Config) Save(path string) error {
	payload, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
