package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete tdscan configuration
type Config struct {
	Rules        RulesConfig        `yaml:"rules" mapstructure:"rules"`
	Input        InputConfig        `yaml:"input" mapstructure:"input"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// RulesConfig locates the user rule overlay
type RulesConfig struct {
	OverlayPath string `yaml:"overlay_path" mapstructure:"overlay_path"`
}

// InputConfig controls ledger import
type InputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // csv, json, html, xlsx; empty = by extension
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
}

// CacheConfig controls the narrative cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles calls to narrative providers
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional narrative provider
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"-" mapstructure:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	StrictSections bool   `yaml:"strict_sections" mapstructure:"strict_sections"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// MetricsConfig configures the Prometheus textfile export
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	home := HomeDir()
	return &Config{
		Rules: RulesConfig{
			OverlayPath: filepath.Join(home, "rules.yaml"),
		},
		Output: OutputConfig{
			Dir:           "./tdscan-reports",
			IncludeFooter: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(home, "cache"),
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:        30,
			MaxTokens:      600,
			StrictSections: true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// HomeDir returns ~/.tdscan, falling back to ./.tdscan
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tdscan"
	}
	return filepath.Join(home, ".tdscan")
}
