package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"label-dispatch/internal/label"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Language != "tspl" || cfg.Threshold != 128 || cfg.RFCOMMChannel != 1 || cfg.BaudRate != 115200 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.ConnectTimeout != 15*time.Second || cfg.WriteTimeout != 10*time.Second {
		t.Fatalf("timeouts = %v, %v", cfg.ConnectTimeout, cfg.WriteTimeout)
	}
	if cfg.Media != (Media{Width: 58, Height: 40, Gap: 2, DPI: 203}) {
		t.Fatalf("media = %+v", cfg.Media)
	}
	if cfg.ListenAddr != ":8089" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults = %q, %q", cfg.ListenAddr, cfg.LogLevel)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "label.yaml", `
language: cpcl
threshold: 100
connect_timeout: 5s
printer_name_patterns: [zebra, rw420]
media:
  width: 50
  height: 30
`)
	t.Setenv("LABEL_CONFIG", path)
	t.Setenv("LABEL_THRESHOLD", "90")
	t.Setenv("LABEL_PRINTER_PATTERNS", "p21, , label")
	t.Setenv("LABEL_DITHER", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Language != "cpcl" {
		t.Fatalf("Language = %q, want cpcl", cfg.Language)
	}
	if cfg.Threshold != 90 {
		t.Fatalf("Threshold = %d, want env override 90", cfg.Threshold)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("ConnectTimeout = %v", cfg.ConnectTimeout)
	}
	if strings.Join(cfg.PrinterNamePatterns, ",") != "p21,label" {
		t.Fatalf("PrinterNamePatterns = %v", cfg.PrinterNamePatterns)
	}
	if !cfg.Dither {
		t.Fatal("Dither not set from env")
	}
	if cfg.Media.Width != 50 || cfg.Media.Height != 30 || cfg.Media.DPI != 203 {
		t.Fatalf("Media = %+v", cfg.Media)
	}
}

func TestLoadDotEnv(t *testing.T) {
	env := writeFile(t, ".env", "LABEL_LISTEN_ADDR=127.0.0.1:9000\nLABEL_LOG_LEVEL=debug\n")
	t.Cleanup(func() {
		os.Unsetenv("LABEL_LISTEN_ADDR")
		os.Unsetenv("LABEL_LOG_LEVEL")
	})

	cfg, err := Load(env)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.LogLevel != "debug" {
		t.Fatalf("ListenAddr = %q, LogLevel = %q", cfg.ListenAddr, cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad number", map[string]string{"LABEL_THRESHOLD": "dark"}},
		{"bad duration", map[string]string{"LABEL_WRITE_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"LABEL_DEVELOPMENT": "maybe"}},
		{"threshold range", map[string]string{"LABEL_THRESHOLD": "300"}},
		{"log level", map[string]string{"LABEL_LOG_LEVEL": "loud"}},
		{"media", map[string]string{"LABEL_MEDIA_WIDTH": "0"}},
		{"channel", map[string]string{"LABEL_RFCOMM_CHANNEL": "31"}},
		{"missing yaml", map[string]string{"LABEL_CONFIG": "/nonexistent/label.yaml"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatal("Load() succeeded, want error")
			}
		})
	}
}

func TestDispatchSettings(t *testing.T) {
	cfg := Default()
	cfg.Language = "ESCPOS"
	cfg.Threshold = 100
	cfg.Media.Width = 80
	s := cfg.DispatchSettings()
	if s.Language != label.LanguageESCPOS || s.TextMedia.Language != label.LanguageESCPOS {
		t.Fatalf("Language = %q", s.Language)
	}
	if s.TextMedia.Width != 80 || s.TextMedia.Height != 40 || s.TextMedia.Copies != 1 {
		t.Fatalf("TextMedia = %+v", s.TextMedia)
	}
	if s.Threshold != 100 {
		t.Fatalf("Threshold = %d", s.Threshold)
	}
}

func TestPrinterOptions(t *testing.T) {
	cfg := Default()
	cfg.RFCOMMChannel = 3
	opts := cfg.PrinterOptions()
	if opts.Channel != 3 || opts.BaudRate != 115200 || len(opts.NamePatterns) == 0 {
		t.Fatalf("PrinterOptions() = %+v", opts)
	}
}
