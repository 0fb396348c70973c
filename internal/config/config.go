// Package config handles phda-logger configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/phda/config.yaml, /etc/phda/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "phda", "config.yaml"))
	}

	paths = append(paths, "/etc/phda/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all phda-logger configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Model    ModelConfig   `yaml:"model"`
	Owner    OwnerConfig   `yaml:"owner"`
	Agent    AgentConfig   `yaml:"agent"`
	Search   SearchConfig  `yaml:"search"`
	Tracing  TracingConfig `yaml:"tracing"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the LLM provider settings.
type ModelConfig struct {
	Name      string `yaml:"name"`       // Model identifier (e.g., "qwen2.5:7b")
	OllamaURL string `yaml:"ollama_url"` // Ollama base URL
}

// OwnerConfig identifies the single user whose records are logged.
type OwnerConfig struct {
	ID       string `yaml:"id"`       // Owner identifier attached to every record
	Timezone string `yaml:"timezone"` // IANA timezone for time resolution
}

// AgentConfig defines agent loop budgets.
type AgentConfig struct {
	MaxIterations   int           `yaml:"max_iterations"`   // Tool-call round-trip bound per turn
	ModelTimeout    time.Duration `yaml:"model_timeout"`    // Per model call
	ToolTimeout     time.Duration `yaml:"tool_timeout"`     // Per tool handler
	MaxSearchHits   int           `yaml:"max_search_hits"`  // Snippets returned by web_search
	MorningHour     int           `yaml:"morning_hour"`     // Clock hour for "this morning"
	HistoryMessages int           `yaml:"history_messages"` // Messages loaded per conversation
}

// SearchConfig defines web search provider settings.
type SearchConfig struct {
	Primary string        `yaml:"primary"` // "brave" or "searxng"
	Brave   BraveConfig   `yaml:"brave"`
	SearXNG SearXNGConfig `yaml:"searxng"`
}

// BraveConfig holds the Brave Search API key.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig holds the SearXNG instance URL.
type SearXNGConfig struct {
	URL string `yaml:"url"`
}

// TracingConfig defines OTLP span export settings. The collector is a
// Phoenix instance by default, but any OTLP/gRPC endpoint works.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // host:port of the OTLP gRPC collector
	Project  string `yaml:"project"`  // Reported as service.name
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Name:      "qwen2.5:7b",
			OllamaURL: "http://localhost:11434",
		},
		Owner: OwnerConfig{
			ID:       "mcnewcp",
			Timezone: "America/Chicago",
		},
		Agent: AgentConfig{
			MaxIterations:   8,
			ModelTimeout:    2 * time.Minute,
			ToolTimeout:     30 * time.Second,
			MaxSearchHits:   5,
			MorningHour:     8,
			HistoryMessages: 100,
		},
		Search: SearchConfig{Primary: "brave"},
		Tracing: TracingConfig{
			Endpoint: "localhost:4317",
			Project:  "ai-data-logger",
		},
		DataDir: ".",
	}
}
