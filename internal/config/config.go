package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SHOTSCAN_"

// Config holds all application configuration
type Config struct {
	// Core settings
	CacheDir    string `yaml:"cache_dir" env:"CACHE_DIR"`
	RootDir     string `yaml:"root_dir" env:"ROOT_DIR"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`

	Reader   ReaderConfig   `yaml:"reader" envPrefix:"READER_"`
	Detector DetectorConfig `yaml:"detector" envPrefix:"DETECTOR_"`
	Video    VideoConfig    `yaml:"video" envPrefix:"VIDEO_"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg" envPrefix:"FFMPEG_"`
}

// ReaderConfig tunes the frame supply pipeline.
type ReaderConfig struct {
	TargetFPS     float64       `yaml:"target_fps" env:"TARGET_FPS"`
	QueueCapacity int           `yaml:"queue_capacity" env:"QUEUE_CAPACITY"`
	Width         int           `yaml:"width" env:"WIDTH"`
	Height        int           `yaml:"height" env:"HEIGHT"`
	PollInterval  time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	StallWarning  time.Duration `yaml:"stall_warning" env:"STALL_WARNING"`

	// MaxNullRetries bounds consecutive null frames retried on GoPro footage.
	MaxNullRetries int `yaml:"max_null_retries" env:"MAX_NULL_RETRIES"`
}

// DetectorConfig holds shot detection thresholds.
type DetectorConfig struct {
	Grid              int     `yaml:"grid" env:"GRID"`
	Downscale         int     `yaml:"downscale" env:"DOWNSCALE"`
	RelativeThreshold float64 `yaml:"relative_threshold" env:"RELATIVE_THRESHOLD"`
	MinCells          int     `yaml:"min_cells" env:"MIN_CELLS"`
	MinShotLength     int     `yaml:"min_shot_len" env:"MIN_SHOT_LEN"`
	FadeRatio         float64 `yaml:"fade_ratio" env:"FADE_RATIO"`
}

// VideoConfig holds soft-reject limits applied when metadata is collected.
type VideoConfig struct {
	MinFPS      float64 `yaml:"min_fps" env:"MIN_FPS"`
	MinDuration float64 `yaml:"min_duration" env:"MIN_DURATION"`
}

type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" env:"PATH"`
	FFprobePath string `yaml:"ffprobe_path" env:"PROBE_PATH"`
}

// Load reads configuration from file or returns defaults, then applies
// SHOTSCAN_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the detector or reader cannot run with.
func (c *Config) Validate() error {
	if c.Reader.TargetFPS <= 0 {
		return fmt.Errorf("reader.target_fps must be positive, got %v", c.Reader.TargetFPS)
	}
	if c.Reader.QueueCapacity <= 0 {
		return fmt.Errorf("reader.queue_capacity must be positive, got %d", c.Reader.QueueCapacity)
	}
	if c.Reader.Width < 0 || c.Reader.Height < 0 {
		return fmt.Errorf("reader size must not be negative")
	}
	if c.Detector.Grid < 2 {
		return fmt.Errorf("detector.grid must be at least 2, got %d", c.Detector.Grid)
	}
	if c.Detector.Downscale < 1 {
		return fmt.Errorf("detector.downscale must be positive, got %d", c.Detector.Downscale)
	}
	cells := c.Detector.Grid * c.Detector.Grid
	if c.Detector.MinCells < 1 || c.Detector.MinCells > cells {
		return fmt.Errorf("detector.min_cells must be in 1..%d, got %d", cells, c.Detector.MinCells)
	}
	if c.Detector.MinShotLength < 0 {
		return fmt.Errorf("detector.min_shot_len must not be negative")
	}
	if c.Detector.RelativeThreshold < 0 || c.Detector.FadeRatio < 0 {
		return fmt.Errorf("detector thresholds must not be negative")
	}
	return nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		CacheDir: "./cache",
		Reader: ReaderConfig{
			TargetFPS:      25,
			QueueCapacity:  200,
			PollInterval:   100 * time.Millisecond,
			StallWarning:   time.Second,
			MaxNullRetries: 100,
		},
		Detector: DetectorConfig{
			Grid:              8,
			Downscale:         8,
			RelativeThreshold: 0.08,
			MinCells:          20,
			MinShotLength:     7,
			FadeRatio:         0.05,
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./shotscan.yaml",
		"./shotscan.yml",
		filepath.Join(os.Getenv("HOME"), ".shotscan", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
