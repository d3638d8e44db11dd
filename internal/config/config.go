package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/karupanerura/golox/internal/expression"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// MaxDepth bounds grouping and prefix operator nesting in the parser.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxEvaluationDepth bounds grouping and prefix operator nesting in the evaluator.
	MaxEvaluationDepth int  `mapstructure:"max_evaluation_depth"`
	Strict             bool `mapstructure:"strict"`

	// Timeout aborts a single evaluation; zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// Concurrency limits how many scripts are evaluated at once.
	Concurrency int `mapstructure:"concurrency"`

	Prompt      string `mapstructure:"prompt"`
	HistoryFile string `mapstructure:"history_file"`
	Color       bool   `mapstructure:"color"`
	LogLevel    string `mapstructure:"log_level"`
}

func Default() *Config {
	return &Config{
		MaxDepth:           expression.DefaultMaxDepth,
		MaxEvaluationDepth: expression.DefaultMaxEvaluationDepth,
		Strict:             true,
		Concurrency:        4,
		Prompt:             "> ",
		HistoryFile:        defaultHistoryFile(),
		Color:              true,
		LogLevel:           "warn",
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".golox_history")
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%q): %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("mapstructure.NewDecoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("mapstructure.Decode: %w", err)
	}
	return nil
}

var envKeys = map[string]string{
	"GOLOX_MAX_DEPTH":            "max_depth",
	"GOLOX_MAX_EVALUATION_DEPTH": "max_evaluation_depth",
	"GOLOX_STRICT":               "strict",
	"GOLOX_TIMEOUT":              "timeout",
	"GOLOX_CONCURRENCY":          "concurrency",
	"GOLOX_LOG_LEVEL":            "log_level",
	"GOLOX_COLOR":                "color",
}

// LoadEnv applies GOLOX_* environment variables on top of cfg.
func LoadEnv(cfg *Config, lookup func(string) (string, bool)) error {
	raw := map[string]any{}
	for env, key := range envKeys {
		if v, ok := lookup(env); ok && v != "" {
			raw[key] = v
		}
	}
	if len(raw) == 0 {
		return nil
	}

	if err := decode(raw, cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive: %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) String() string {
	return "max_depth=" + strconv.Itoa(c.MaxDepth) +
		" max_evaluation_depth=" + strconv.Itoa(c.MaxEvaluationDepth) +
		" strict=" + strconv.FormatBool(c.Strict) +
		" timeout=" + c.Timeout.String()
}
