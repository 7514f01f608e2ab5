// Package config loads catscan settings with the precedence, lowest first:
// built-in defaults, the YAML config file, the .env file, CATSCAN_*
// environment variables, command-line flags.
//
// The .env file is loaded into the environment by the root command before
// Load runs, and it never overrides variables already set, which gives it
// its place below the real environment. Flags are applied by the commands
// after Load returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/catscan/internal/catalog"
	"github.com/lehigh-university-libraries/catscan/internal/detect"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/images"
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/scanner"
)

// DefaultFile is read when no config file is named explicitly.
const DefaultFile = "catscan.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CATSCAN_"

// Config holds the application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Cover   CoverConfig   `yaml:"cover"`
	Scanner ScannerConfig `yaml:"scanner"`
	Filler  FillerConfig  `yaml:"filler"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// CatalogConfig configures the SRU client.
type CatalogConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gt=0"`
	Burst         int           `yaml:"burst" validate:"min=1"`
}

// CoverConfig configures cover scraping and the media library.
type CoverConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Prefix   string `yaml:"prefix" validate:"required,url"`
	MediaDir string `yaml:"media_dir" validate:"required"`
	MaxBytes int64  `yaml:"max_bytes" validate:"gt=0"`
}

// ScannerConfig configures the detection loop.
type ScannerConfig struct {
	Interval  time.Duration `yaml:"interval" validate:"gt=0"`
	Cooldown  time.Duration `yaml:"cooldown" validate:"gte=0"`
	Mode      string        `yaml:"mode" validate:"oneof=autofill auto debug"`
	CameraDir string        `yaml:"camera_dir"`
	Formats   []string      `yaml:"formats" validate:"dive,oneof=ean_13 ean_8 upc_a upc_e code_128 code_39"`
}

// FillerConfig holds the title policies per media kind.
type FillerConfig struct {
	BooksTitlePolicy string `yaml:"books_title_policy" validate:"oneof=keep keep-existing overwrite"`
	MediaTitlePolicy string `yaml:"media_title_policy" validate:"oneof=keep keep-existing overwrite"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:       catalog.DefaultBaseURL,
			Timeout:       30 * time.Second,
			RatePerSecond: 1,
			Burst:         3,
		},
		Cover: CoverConfig{
			Enabled:  true,
			Prefix:   images.DefaultCoverPrefix,
			MediaDir: "media",
			MaxBytes: images.DefaultMaxCoverSize,
		},
		Scanner: ScannerConfig{
			Interval: scanner.DefaultInterval,
			Cooldown: scanner.DefaultCooldown,
			Mode:     "autofill",
			Formats:  append([]string(nil), detect.DefaultFormats...),
		},
		Filler: FillerConfig{
			BooksTitlePolicy: "keep",
			MediaTitlePolicy: "overwrite",
		},
		Server: ServerConfig{
			Port:            "8888",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration from defaults, the config file at path and
// the environment. An empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("CATALOG_BASE_URL", &c.Catalog.BaseURL)
	e.duration("CATALOG_TIMEOUT", &c.Catalog.Timeout)
	e.float("CATALOG_RATE", &c.Catalog.RatePerSecond)
	e.int("CATALOG_BURST", &c.Catalog.Burst)

	e.bool("COVER_ENABLED", &c.Cover.Enabled)
	e.str("COVER_PREFIX", &c.Cover.Prefix)
	e.str("MEDIA_DIR", &c.Cover.MediaDir)
	e.int64("COVER_MAX_BYTES", &c.Cover.MaxBytes)

	e.duration("SCAN_INTERVAL", &c.Scanner.Interval)
	e.duration("SCAN_COOLDOWN", &c.Scanner.Cooldown)
	e.str("SCAN_MODE", &c.Scanner.Mode)
	e.str("CAMERA_DIR", &c.Scanner.CameraDir)
	e.list("BARCODE_FORMATS", &c.Scanner.Formats)

	e.str("BOOKS_TITLE_POLICY", &c.Filler.BooksTitlePolicy)
	e.str("MEDIA_TITLE_POLICY", &c.Filler.MediaTitlePolicy)

	e.str("PORT", &c.Server.Port)
	e.duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, value, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) int64(key string, dst *int64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

// CatalogOptions returns the catalog client options.
func (c *Config) CatalogOptions(logger *slog.Logger) catalog.Options {
	return catalog.Options{
		BaseURL:       c.Catalog.BaseURL,
		Timeout:       c.Catalog.Timeout,
		RatePerSecond: c.Catalog.RatePerSecond,
		Burst:         c.Catalog.Burst,
		Logger:        logger,
	}
}

// FillerOptions returns the title policies as filler options.
func (c *Config) FillerOptions() ([]filler.Option, error) {
	books, err := filler.ParseTitlePolicy(c.Filler.BooksTitlePolicy)
	if err != nil {
		return nil, err
	}
	media, err := filler.ParseTitlePolicy(c.Filler.MediaTitlePolicy)
	if err != nil {
		return nil, err
	}
	return []filler.Option{
		filler.WithTitlePolicy(models.KindBook, books),
		filler.WithTitlePolicy(models.KindAudio, media),
		filler.WithTitlePolicy(models.KindVideo, media),
	}, nil
}

// ScannerMode returns the configured scanner mode.
func (c *Config) ScannerMode() (scanner.Mode, error) {
	return scanner.ParseMode(c.Scanner.Mode)
}

// LogLevel returns the slog level configured for the process.
func (c *Config) LogLevel() slog.Level {
	return ParseLevel(c.Log.Level)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
