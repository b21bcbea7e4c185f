// Package config loads gitgraph settings from defaults, a YAML file,
// GITGRAPH_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/spf13/pflag"
	"gonum.org/v1/plot/vg"
)

// DefaultConfigFile is looked up in the working directory when no file is given.
const DefaultConfigFile = "gitgraph.yaml"

// EnvPrefix prefixes every environment variable. "__" separates nested keys,
// so GITGRAPH_SERVER__ADDR sets server.addr.
const EnvPrefix = "GITGRAPH_"

// Config is the full set of settings.
type Config struct {
	HistoryURL     string        `koanf:"history_url"`
	StatePath      string        `koanf:"state_path"`
	OutputDir      string        `koanf:"output_dir"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	Verbose        bool          `koanf:"verbose"`
	LogFormat      string        `koanf:"log_format"`
	Chart          ChartConfig   `koanf:"chart"`
	Server         ServerConfig  `koanf:"server"`
}

// ChartConfig sizes and colors the exported card.
type ChartConfig struct {
	Width     float64 `koanf:"width"`
	Height    float64 `koanf:"height"`
	LineColor string  `koanf:"line_color"`
	MaxXTicks int     `koanf:"max_x_ticks"`
}

// ServerConfig configures `gitgraph serve`.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	GitHubToken       string        `koanf:"github_token"`
	MaxPages          int           `koanf:"max_pages"`
	PerPage           int           `koanf:"per_page"`
	RateLimitWait     time.Duration `koanf:"rate_limit_wait"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
}

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"history-url": "history_url",
	"state":       "state_path",
	"output-dir":  "output_dir",
	"timeout":     "request_timeout",
	"log-format":  "log_format",
	"addr":        "server.addr",
	"line-color":  "chart.line_color",
}

// DefaultStatePath is where the token database lives unless configured.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gitgraph", "state.db")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"history_url":                "http://localhost:8080",
		"state_path":                 DefaultStatePath(),
		"output_dir":                 ".",
		"request_timeout":            "30s",
		"verbose":                    false,
		"log_format":                 "text",
		"chart.width":                600,
		"chart.height":               400,
		"chart.line_color":           chart.DefaultLineColor,
		"chart.max_x_ticks":          8,
		"server.addr":                ":8080",
		"server.github_token":        os.Getenv("GITHUB_TOKEN"),
		"server.max_pages":           15,
		"server.per_page":            30,
		"server.rate_limit_wait":     "1m",
		"server.requests_per_minute": 60,
		"server.allowed_origins":     []string{"*"},
	}
}

// Load builds the configuration. Precedence (highest to lowest):
// flags that were set > env vars > config file > defaults.
// An empty cfgFile means DefaultConfigFile if it exists.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// GITGRAPH_SERVER__ADDR -> server.addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.HistoryURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("history_url %q must be an absolute URL", c.HistoryURL))
	}
	if c.StatePath == "" {
		errs = append(errs, errors.New("state_path must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		errs = append(errs, fmt.Errorf("chart size must be positive, got %vx%v", c.Chart.Width, c.Chart.Height))
	}
	if _, err := chart.ParseColor(c.Chart.LineColor); err != nil {
		errs = append(errs, fmt.Errorf("chart.line_color: %w", err))
	}
	if c.Server.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("server.max_pages must be at least 1, got %d", c.Server.MaxPages))
	}
	if c.Server.PerPage < 1 || c.Server.PerPage > 100 {
		errs = append(errs, fmt.Errorf("server.per_page must be between 1 and 100, got %d", c.Server.PerPage))
	}
	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.requests_per_minute must not be negative, got %d", c.Server.RequestsPerMinute))
	}
	return errors.Join(errs...)
}

// ChartStyle converts the chart settings into a card style.
func (c *Config) ChartStyle() chart.Style {
	style := chart.DefaultStyle()
	style.Width = vg.Points(c.Chart.Width)
	style.Height = vg.Points(c.Chart.Height)
	if lc, err := chart.ParseColor(c.Chart.LineColor); err == nil {
		style.LineColor = lc
	}
	if c.Chart.MaxXTicks > 0 {
		style.MaxXTicks = c.Chart.MaxXTicks
	}
	return style
}
