// Package config loads searchpdf settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then a
// .env file in the working directory, then SEARCHPDF_* environment variables.
// Validate runs last and rejects values the pipeline cannot use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/searchpdf-mcp/internal/assembler"
	"github.com/ironsheep/searchpdf-mcp/internal/imaging"
	"github.com/ironsheep/searchpdf-mcp/internal/lang"
	"github.com/ironsheep/searchpdf-mcp/internal/ocr"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEARCHPDF_"

// Tools names the external executables.
type Tools struct {
	Bundler    string `yaml:"bundler"`
	Rasterizer string `yaml:"rasterizer"`
	Tesseract  string `yaml:"tesseract"`
}

// Bundler configures the all-in-one OCR tool route.
type Bundler struct {
	Disabled bool `yaml:"disabled"`
	// Optimize is passed as --optimize (0..3).
	Optimize int `yaml:"optimize"`
}

// Language configures recognition languages.
type Language struct {
	Default  string `yaml:"default"`
	Fallback string `yaml:"fallback"`
}

// Raster configures page rendering.
type Raster struct {
	DPI int `yaml:"dpi"`
}

// Engine configures the recognition backend.
type Engine struct {
	Backend        string                    `yaml:"backend"`
	TessdataPrefix string                    `yaml:"tessdata_prefix"`
	PageSegMode    int                       `yaml:"page_seg_mode"`
	Preprocess     imaging.PreprocessOptions `yaml:"preprocess"`
}

// Overlay configures the text layer.
type Overlay struct {
	Mode     string  `yaml:"mode"`
	Color    string  `yaml:"color"`
	MinSize  float64 `yaml:"min_size"`
	MaxSize  float64 `yaml:"max_size"`
	Compress bool    `yaml:"compress"`
}

// Timeouts bound external processes.
type Timeouts struct {
	Probe     time.Duration `yaml:"probe"`
	Bundler   time.Duration `yaml:"bundler"`
	Rasterize time.Duration `yaml:"rasterize"`
	Recognize time.Duration `yaml:"recognize"`
}

// Log configures the logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the complete configuration.
type Config struct {
	Tools    Tools    `yaml:"tools"`
	Bundler  Bundler  `yaml:"bundler"`
	Language Language `yaml:"language"`
	Raster   Raster   `yaml:"raster"`
	Engine   Engine   `yaml:"engine"`
	Overlay  Overlay  `yaml:"overlay"`
	Timeouts Timeouts `yaml:"timeouts"`
	WorkDir  string   `yaml:"work_dir"`
	Log      Log      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tools: Tools{
			Bundler:    "ocrmypdf",
			Rasterizer: raster.DefaultTool,
			Tesseract:  ocr.DefaultTesseractTool,
		},
		Bundler:  Bundler{Optimize: 1},
		Language: Language{Default: lang.Default, Fallback: ocr.DefaultFallback},
		Raster:   Raster{DPI: raster.DefaultDPI},
		Engine: Engine{
			Backend:     ocr.BackendAuto,
			PageSegMode: ocr.DefaultPageSegMode,
		},
		Overlay: Overlay{
			Mode:     string(assembler.ModeVisible),
			Color:    "#000000",
			MinSize:  assembler.DefaultMinSize,
			MaxSize:  assembler.DefaultMaxSize,
			Compress: true,
		},
		Timeouts: Timeouts{
			Probe:     10 * time.Second,
			Bundler:   30 * time.Minute,
			Rasterize: 2 * time.Minute,
			Recognize: 5 * time.Minute,
		},
		Log: Log{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), a .env file if present, and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from SEARCHPDF_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("BUNDLER", &c.Tools.Bundler)
	str("RASTERIZER", &c.Tools.Rasterizer)
	str("TESSERACT", &c.Tools.Tesseract)
	boolean("BUNDLER_DISABLED", &c.Bundler.Disabled)
	integer("BUNDLER_OPTIMIZE", &c.Bundler.Optimize)
	str("LANG", &c.Language.Default)
	str("FALLBACK_LANG", &c.Language.Fallback)
	integer("DPI", &c.Raster.DPI)
	str("ENGINE", &c.Engine.Backend)
	str("TESSDATA_PREFIX", &c.Engine.TessdataPrefix)
	integer("PSM", &c.Engine.PageSegMode)
	boolean("PREPROCESS_GRAYSCALE", &c.Engine.Preprocess.Grayscale)
	float("PREPROCESS_CONTRAST", &c.Engine.Preprocess.Contrast)
	integer("PREPROCESS_THRESHOLD", &c.Engine.Preprocess.Threshold)
	str("OVERLAY_MODE", &c.Overlay.Mode)
	str("OVERLAY_COLOR", &c.Overlay.Color)
	float("OVERLAY_MIN_SIZE", &c.Overlay.MinSize)
	float("OVERLAY_MAX_SIZE", &c.Overlay.MaxSize)
	boolean("OVERLAY_COMPRESS", &c.Overlay.Compress)
	duration("PROBE_TIMEOUT", &c.Timeouts.Probe)
	duration("BUNDLER_TIMEOUT", &c.Timeouts.Bundler)
	duration("RASTERIZE_TIMEOUT", &c.Timeouts.Rasterize)
	duration("RECOGNIZE_TIMEOUT", &c.Timeouts.Recognize)
	str("WORK_DIR", &c.WorkDir)
	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_DEVELOPMENT", &c.Log.Development)

	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Tools.Rasterizer == "" {
		errs = append(errs, errors.New("tools.rasterizer must not be empty"))
	}
	if c.Bundler.Optimize < 0 || c.Bundler.Optimize > 3 {
		errs = append(errs, fmt.Errorf("bundler.optimize must be 0..3, got %d", c.Bundler.Optimize))
	}
	if _, err := lang.Parse(c.Language.Default); err != nil {
		errs = append(errs, fmt.Errorf("language.default: %w", err))
	}
	if c.Language.Fallback != "" {
		if _, err := lang.Parse(c.Language.Fallback); err != nil {
			errs = append(errs, fmt.Errorf("language.fallback: %w", err))
		}
	}
	if c.Raster.DPI < 36 || c.Raster.DPI > 1200 {
		errs = append(errs, fmt.Errorf("raster.dpi must be 36..1200, got %d", c.Raster.DPI))
	}
	switch strings.ToLower(c.Engine.Backend) {
	case "", ocr.BackendAuto, ocr.BackendGosseract, ocr.BackendCLI:
	default:
		errs = append(errs, fmt.Errorf("engine.backend: unknown backend %q", c.Engine.Backend))
	}
	if c.Engine.PageSegMode < 0 || c.Engine.PageSegMode > 13 {
		errs = append(errs, fmt.Errorf("engine.page_seg_mode must be 0..13, got %d", c.Engine.PageSegMode))
	}
	if _, err := assembler.ParseMode(c.Overlay.Mode); err != nil {
		errs = append(errs, fmt.Errorf("overlay.mode: %w", err))
	}
	if _, err := imaging.ParseColor(c.Overlay.Color); err != nil {
		errs = append(errs, fmt.Errorf("overlay.color: %w", err))
	}
	if c.Overlay.MinSize <= 0 || c.Overlay.MaxSize < c.Overlay.MinSize {
		errs = append(errs, fmt.Errorf("overlay sizes must satisfy 0 < min_size <= max_size, got %g..%g",
			c.Overlay.MinSize, c.Overlay.MaxSize))
	}
	for name, d := range map[string]time.Duration{
		"probe":     c.Timeouts.Probe,
		"bundler":   c.Timeouts.Bundler,
		"rasterize": c.Timeouts.Rasterize,
		"recognize": c.Timeouts.Recognize,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}
