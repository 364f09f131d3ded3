package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Reader
	Command       string            `yaml:"command"` // Single command character
	Permit        []string          `yaml:"permit"`
	Substitutions map[string]string `yaml:"substitutions"`

	// Outputs
	OutputDir   string `yaml:"output"`
	Markup      string `yaml:"markup"`
	LineNumbers bool   `yaml:"line_numbers"`
	SkipTangle  bool   `yaml:"skip_tangle"`
	SkipWeave   bool   `yaml:"skip_weave"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Batch processing
	WorkerCount int `yaml:"workers"`

	// Preview server
	Addr            string        `yaml:"addr"`
	APIKey          string        `yaml:"api_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Load() Config {
	cfg := Config{
		Command: envOr("LITWEB_COMMAND", "@"),
		Permit:  envList("LITWEB_PERMIT"),

		OutputDir:   os.Getenv("LITWEB_OUTPUT"),
		Markup:      envOr("LITWEB_MARKUP", "rst"),
		LineNumbers: envBool("LITWEB_LINE_NUMBERS", false),
		SkipTangle:  envBool("LITWEB_SKIP_TANGLE", false),
		SkipWeave:   envBool("LITWEB_SKIP_WEAVE", false),

		LogLevel: envOr("LITWEB_LOG_LEVEL", "info"),
		LogJSON:  envBool("LITWEB_LOG_JSON", false),

		WorkerCount: envInt("LITWEB_WORKERS", 4),

		Addr:            envOr("LITWEB_ADDR", ":8090"),
		APIKey:          os.Getenv("LITWEB_API_KEY"),
		ShutdownTimeout: envDuration("LITWEB_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return cfg
}

// LoadFile reads the environment, then overlays the YAML file at path.
// Keys missing from the file keep their environment value.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	r, n := utf8.DecodeRuneInString(c.Command)
	if n == 0 || n != len(c.Command) {
		return fmt.Errorf("command must be a single character, got %q", c.Command)
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return fmt.Errorf("command character %q would collide with text", c.Command)
	}
	if c.Markup == "" {
		return fmt.Errorf("markup is required")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.WorkerCount)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// CommandRune returns the command character.
func (c Config) CommandRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Command)
	return r
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, f := range strings.Split(os.Getenv(key), ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
