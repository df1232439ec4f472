package sheetmatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds everything needed to build an Engine and its
// collaborators.
type Config struct {
	// Font is a TrueType file. Empty selects the embedded Go Mono.
	Font       string  `yaml:"font"`
	FontSize   float64 `yaml:"font_size"`
	CanvasSize int     `yaml:"canvas_size"`
	BlurRadius float64 `yaml:"blur_radius"`

	Cache   CacheConfig   `yaml:"cache"`
	Metric  MetricConfig  `yaml:"metric"`
	Aligner string        `yaml:"aligner"`
	Catalog CatalogConfig `yaml:"catalog"`
	OCR     OCRConfig     `yaml:"ocr"`
	Log     LogConfig     `yaml:"log"`
}

// CacheConfig locates the persisted memo tables and footprints.
type CacheConfig struct {
	Dir string `yaml:"dir"`

	// Backend is json, badger or memory.
	Backend string `yaml:"backend"`
}

// MetricConfig selects and tunes the visual distance.
type MetricConfig struct {
	// Name is pixel or fused.
	Name          string       `yaml:"name"`
	Weights       FusedWeights `yaml:"weights"`
	SkeletonScale float64      `yaml:"skeleton_scale"`
	EmptyPenalty  float64      `yaml:"empty_penalty"`
}

// CatalogConfig locates the reference documents.
type CatalogConfig struct {
	Dir string `yaml:"dir"`
	Ext string `yaml:"ext"`
}

// OCRConfig configures text recognition.
type OCRConfig struct {
	Language  string `yaml:"language"`
	Whitelist string `yaml:"whitelist"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		FontSize:   DefaultFontSize,
		CanvasSize: DefaultCanvasSize,
		BlurRadius: DefaultBlurRadius,
		Cache: CacheConfig{
			Dir:     "data",
			Backend: "json",
		},
		Metric: MetricConfig{
			Name:          "fused",
			Weights:       DefaultFusedWeights(),
			SkeletonScale: DefaultSkeletonScale,
		},
		Aligner: "levenshtein",
		Catalog: CatalogConfig{
			Dir: "pdfs",
			Ext: ".pdf",
		},
		OCR: OCRConfig{
			Language:  "eng",
			Whitelist: "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-/",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default values. SHEETMATCH_CACHE_DIR and
// SHEETMATCH_CATALOG_DIR override the corresponding settings.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("SHEETMATCH_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("SHEETMATCH_CATALOG_DIR"); v != "" {
		cfg.Catalog.Dir = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	var errs []error
	if c.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("font_size must be positive, got %v", c.FontSize))
	}
	if c.CanvasSize <= 0 {
		errs = append(errs, fmt.Errorf("canvas_size must be positive, got %d", c.CanvasSize))
	}
	if c.BlurRadius < 0 {
		errs = append(errs, fmt.Errorf("blur_radius must not be negative, got %v", c.BlurRadius))
	}
	switch c.Cache.Backend {
	case "json", "badger", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend != "memory" && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required"))
	}
	switch c.Metric.Name {
	case "pixel", "fused":
	default:
		errs = append(errs, fmt.Errorf("unknown metric %q", c.Metric.Name))
	}
	w := c.Metric.Weights
	if w.Geometric < 0 || w.Shape < 0 || w.Skeleton < 0 || w.Complexity < 0 {
		errs = append(errs, errors.New("metric weights must not be negative"))
	}
	if c.Metric.EmptyPenalty < 0 {
		errs = append(errs, errors.New("metric.empty_penalty must not be negative"))
	}
	switch c.Aligner {
	case "levenshtein", "positional":
	default:
		errs = append(errs, fmt.Errorf("unknown aligner %q", c.Aligner))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// GlyphDir is where footprints are stored.
func (c Config) GlyphDir() string {
	if c.Cache.Backend == "memory" {
		return ""
	}
	return filepath.Join(c.Cache.Dir, "glyphs")
}

// PairCachePath is the JSON document of glyph pair distances.
func (c Config) PairCachePath() string {
	return filepath.Join(c.Cache.Dir, "distances.json")
}

// MatchCachePath is the JSON document of match costs.
func (c Config) MatchCachePath() string {
	return filepath.Join(c.Cache.Dir, "matches.json")
}

// BadgerDir is the database directory of the badger backend.
func (c Config) BadgerDir() string {
	return filepath.Join(c.Cache.Dir, "badger")
}

// NewMetric builds the configured metric.
func (c Config) NewMetric() (Metric, error) {
	switch c.Metric.Name {
	case "fused":
		return NewFusedMethod(c.Metric.Weights, c.Metric.SkeletonScale, c.Metric.EmptyPenalty), nil
	default:
		return MetricByName(c.Metric.Name)
	}
}
