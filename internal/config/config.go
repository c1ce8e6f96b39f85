// Package config loads runtime settings from defaults, an optional .env
// file, an optional YAML file and LABEL_* environment variables, in that
// order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"label-dispatch/internal/dispatch"
	"label-dispatch/internal/label"
	"label-dispatch/internal/printer"
)

// Media is the medium used for plain text payloads
type Media struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Gap    float64 `yaml:"gap"`
	DPI    int     `yaml:"dpi"`
}

type Config struct {
	Language            string        `yaml:"language"`
	Threshold           int           `yaml:"threshold"`
	Dither              bool          `yaml:"dither"`
	RFCOMMChannel       int           `yaml:"rfcomm_channel"`
	BaudRate            int           `yaml:"baud_rate"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	PrinterNamePatterns []string      `yaml:"printer_name_patterns"`
	ListenAddr          string        `yaml:"listen_addr"`
	LogLevel            string        `yaml:"log_level"`
	Development         bool          `yaml:"development"`
	TestPrintLanguage   string        `yaml:"test_print_language"`
	LogoPath            string        `yaml:"logo_path"`
	Media               Media         `yaml:"media"`
}

func Default() Config {
	opts := printer.DefaultOptions()
	return Config{
		Language:            string(label.LanguageTSPL),
		Threshold:           128,
		RFCOMMChannel:       opts.Channel,
		BaudRate:            opts.BaudRate,
		ConnectTimeout:      opts.ConnectTimeout,
		WriteTimeout:        opts.WriteTimeout,
		PrinterNamePatterns: opts.NamePatterns,
		ListenAddr:          ":8089",
		LogLevel:            "info",
		TestPrintLanguage:   string(label.LanguageTSPL),
		Media:               Media{Width: 58, Height: 40, Gap: 2, DPI: 203},
	}
}

// Load reads the configuration. envFiles default to ".env"; missing files
// are ignored. LABEL_CONFIG names an optional YAML file.
func Load(envFiles ...string) (Config, error) {
	cfg := Default()

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if path := os.Getenv("LABEL_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LABEL_LANGUAGE", &c.Language)
	num("LABEL_THRESHOLD", &c.Threshold)
	boolean("LABEL_DITHER", &c.Dither)
	num("LABEL_RFCOMM_CHANNEL", &c.RFCOMMChannel)
	num("LABEL_BAUD_RATE", &c.BaudRate)
	duration("LABEL_CONNECT_TIMEOUT", &c.ConnectTimeout)
	duration("LABEL_WRITE_TIMEOUT", &c.WriteTimeout)
	if v := os.Getenv("LABEL_PRINTER_PATTERNS"); v != "" {
		c.PrinterNamePatterns = splitCSV(v)
	}
	str("LABEL_LISTEN_ADDR", &c.ListenAddr)
	str("LABEL_LOG_LEVEL", &c.LogLevel)
	boolean("LABEL_DEVELOPMENT", &c.Development)
	str("LABEL_TEST_PRINT_LANGUAGE", &c.TestPrintLanguage)
	str("LABEL_LOGO", &c.LogoPath)
	float("LABEL_MEDIA_WIDTH", &c.Media.Width)
	float("LABEL_MEDIA_HEIGHT", &c.Media.Height)
	float("LABEL_MEDIA_GAP", &c.Media.Gap)
	num("LABEL_MEDIA_DPI", &c.Media.DPI)
	return errors.Join(errs...)
}

// Validate rejects settings no component can work with
func (c Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		errs = append(errs, fmt.Errorf("threshold %d out of range 0-255", c.Threshold))
	}
	if c.RFCOMMChannel < 1 || c.RFCOMMChannel > 30 {
		errs = append(errs, fmt.Errorf("rfcomm channel %d out of range 1-30", c.RFCOMMChannel))
	}
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud rate must be positive"))
	}
	if c.Media.Width <= 0 || c.Media.Height <= 0 {
		errs = append(errs, fmt.Errorf("media size %vx%v must be positive", c.Media.Width, c.Media.Height))
	}
	if c.Media.Gap < 0 {
		errs = append(errs, fmt.Errorf("media gap must not be negative"))
	}
	return errors.Join(errs...)
}

// PrinterOptions configures the Bluetooth transport
func (c Config) PrinterOptions() printer.Options {
	return printer.Options{
		Channel:        c.RFCOMMChannel,
		BaudRate:       c.BaudRate,
		ConnectTimeout: c.ConnectTimeout,
		WriteTimeout:   c.WriteTimeout,
		NamePatterns:   c.PrinterNamePatterns,
	}
}

// DispatchSettings configures the dispatcher
func (c Config) DispatchSettings() dispatch.Settings {
	lang := label.Language(strings.ToLower(c.Language))
	return dispatch.Settings{
		Language: lang,
		TextMedia: label.Template{
			Name:     "text",
			Width:    c.Media.Width,
			Height:   c.Media.Height,
			Gap:      c.Media.Gap,
			DPI:      c.Media.DPI,
			Density:  8,
			Language: lang,
			Copies:   1,
		},
		TestPrintLanguage: label.Language(strings.ToLower(c.TestPrintLanguage)),
		Threshold:         uint8(c.Threshold),
		LogoPath:          c.LogoPath,
	}
}

func splitCSV(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
