package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Export    ExportConfig    `yaml:"export"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AudioConfig contains envelope extraction parameters
type AudioConfig struct {
	WindowSize    int     `yaml:"window_size"`    // samples
	HopSize       int     `yaml:"hop_size"`       // samples
	GateThreshold float64 `yaml:"gate_threshold"` // amplitudes below clamp to 0
	Workers       int     `yaml:"workers"`        // 0 means GOMAXPROCS
}

// SegmenterConfig contains phoneme segmentation parameters
type SegmenterConfig struct {
	GapThreshold float64 `yaml:"gap_threshold"` // seconds
	SilenceFloor float64 `yaml:"silence_floor"` // seconds
}

// AlignmentConfig contains forced-alignment service configuration
type AlignmentConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Model         string `yaml:"model"`
	UseGPU        bool   `yaml:"use_gpu"`
}

// ExportConfig contains export encoder parameters
type ExportConfig struct {
	FPS                float64           `yaml:"fps"`
	ModelName          string            `yaml:"model_name"`
	CrossfadeThreshold float64           `yaml:"crossfade_threshold"` // seconds
	CrossfadeMinWeight float64           `yaml:"crossfade_min_weight"`
	PeakScale          float64           `yaml:"peak_scale"`
	Granularity        string            `yaml:"granularity"` // "segment" or "frame"
	Morphs             map[string]string `yaml:"morphs"`      // shape name -> morph name
	Flexes             map[string]string `yaml:"flexes"`      // shape name -> flex name
}

// MetricsConfig contains the optional Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			WindowSize:    480,
			HopSize:       160, // 10ms hop at 16kHz
			GateThreshold: 0.01,
		},
		Segmenter: SegmenterConfig{
			GapThreshold: 0.2,
			SilenceFloor: 0.05,
		},
		Alignment: AlignmentConfig{
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 4,
		},
		Export: ExportConfig{
			FPS:                30,
			CrossfadeThreshold: 0.1,
			CrossfadeMinWeight: 0.2,
			PeakScale:          2.0,
			Granularity:        "segment",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Unset fields keep their defaults.
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}

	if err := c.Alignment.Validate(); err != nil {
		return fmt.Errorf("alignment config: %w", err)
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates envelope extraction configuration
func (a *AudioConfig) Validate() error {
	if a.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1 sample, got %d", a.WindowSize)
	}

	if a.HopSize < 1 {
		return fmt.Errorf("hop_size must be at least 1 sample, got %d", a.HopSize)
	}

	if a.HopSize > a.WindowSize {
		return fmt.Errorf("hop_size (%d) must not exceed window_size (%d)", a.HopSize, a.WindowSize)
	}

	if a.GateThreshold < 0 || a.GateThreshold >= 1 {
		return fmt.Errorf("gate_threshold must be in [0, 1), got %f", a.GateThreshold)
	}

	if a.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", a.Workers)
	}

	return nil
}

// Validate validates segmentation configuration
func (s *SegmenterConfig) Validate() error {
	if s.GapThreshold < 0 {
		return fmt.Errorf("gap_threshold cannot be negative, got %f", s.GapThreshold)
	}

	if s.SilenceFloor < 0 {
		return fmt.Errorf("silence_floor cannot be negative, got %f", s.SilenceFloor)
	}

	return nil
}

// Validate validates alignment service configuration
func (a *AlignmentConfig) Validate() error {
	if !a.Enabled {
		return nil
	}

	if a.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty when alignment is enabled")
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	if a.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", a.MaxRetries)
	}

	if a.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", a.MaxConcurrent)
	}

	return nil
}

// Validate validates export configuration
func (e *ExportConfig) Validate() error {
	if e.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", e.FPS)
	}

	if e.CrossfadeThreshold < 0 {
		return fmt.Errorf("crossfade_threshold cannot be negative, got %f", e.CrossfadeThreshold)
	}

	if e.CrossfadeMinWeight < 0 || e.CrossfadeMinWeight > 1 {
		return fmt.Errorf("crossfade_min_weight must be in [0, 1], got %f", e.CrossfadeMinWeight)
	}

	if e.PeakScale <= 0 {
		return fmt.Errorf("peak_scale must be positive, got %f", e.PeakScale)
	}

	validGranularities := map[string]bool{"segment": true, "frame": true}
	if !validGranularities[e.Granularity] {
		return fmt.Errorf("granularity must be 'segment' or 'frame', got '%s'", e.Granularity)
	}

	return nil
}

// Validate validates the metrics listener configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the alignment timeout as a time.Duration
func (a *AlignmentConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}
