package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the nfagent configuration. Loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Agent         AgentConfig         `yaml:"agent"`
	LLM           LLMConfig           `yaml:"llm"`
	Search        SearchConfig        `yaml:"search"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Tasks         TasksConfig         `yaml:"tasks"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AgentConfig holds the values advertised in the agent card.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	CardURL     string `yaml:"card_url"` // URL advertised in the card; derived from host/port when empty
}

// LLMConfig holds reasoning-process settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SearchConfig holds settings for the external search capability.
type SearchConfig struct {
	Endpoint     string `yaml:"endpoint"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	MaxRetries   int    `yaml:"max_retries"`
	BackoffMinMs int    `yaml:"backoff_min_ms"`
	BackoffMaxMs int    `yaml:"backoff_max_ms"`
	// TopKPolicy governs tool calls whose top_k differs from the request's:
	// "clamp" (default) caps at the request's top_k, "pass" forwards as-is,
	// "reject" fails the orchestration.
	TopKPolicy string `yaml:"top_k_policy"`
}

// OrchestrationConfig bounds the reasoning loop.
type OrchestrationConfig struct {
	TimeoutSec int `yaml:"timeout_sec"` // wall-clock bound per request
	MaxSteps   int `yaml:"max_steps"`   // model turns before giving up
}

// TasksConfig holds task store settings.
type TasksConfig struct {
	Store    string   `yaml:"store"` // memory, redis (default: memory)
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generous: a response is only written after the whole orchestration.
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Agent.Name == "" {
		c.Agent.Name = "NFCorpus Retrieval Agent"
	}
	if c.Agent.Description == "" {
		c.Agent.Description = "LLM-powered agent that retrieves and ranks biomedical documents from the NFCorpus database"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 30
	}
	if c.Search.MaxRetries < 0 {
		c.Search.MaxRetries = 0
	} else if c.Search.MaxRetries == 0 {
		c.Search.MaxRetries = 2
	}
	if c.Search.BackoffMinMs <= 0 {
		c.Search.BackoffMinMs = 100
	}
	if c.Search.BackoffMaxMs <= 0 {
		c.Search.BackoffMaxMs = 800
	}
	if c.Search.TopKPolicy == "" {
		c.Search.TopKPolicy = "clamp"
	}
	if c.Orchestration.TimeoutSec <= 0 {
		c.Orchestration.TimeoutSec = 60
	}
	if c.Orchestration.MaxSteps <= 0 {
		c.Orchestration.MaxSteps = 8
	}
	if c.Tasks.Store == "" {
		c.Tasks.Store = "memory"
	}
	if c.Tasks.TTLSec <= 0 {
		c.Tasks.TTLSec = 24 * 60 * 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.Endpoint == "" {
		return fmt.Errorf("search.endpoint is required")
	}
	switch c.Search.TopKPolicy {
	case "clamp", "pass", "reject":
		// ok
	default:
		return fmt.Errorf(
			"search.top_k_policy must be \"clamp\", \"pass\" or \"reject\", got %q",
			c.Search.TopKPolicy,
		)
	}
	switch c.Tasks.Store {
	case "memory":
		// ok
	case "redis":
		if len(c.Tasks.Addrs) == 0 {
			return fmt.Errorf("tasks.addrs is required for the redis task store")
		}
	default:
		return fmt.Errorf("tasks.store must be \"memory\" or \"redis\", got %q", c.Tasks.Store)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
