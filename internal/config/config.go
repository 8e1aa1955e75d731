package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	// Multiple providers configuration
	Providers []ProviderConfig `yaml:"providers"`

	// Single provider config (fallback)
	Gemini struct {
		APIKey    string `yaml:"api_key"`
		ModelName string `yaml:"model_name"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"gemini"`

	Classifier struct {
		TimeoutMS   int `yaml:"timeout_ms"`
		MaxAttempts int `yaml:"max_attempts"`
		BackoffMS   int `yaml:"backoff_base_ms"`
	} `yaml:"classifier"`

	Gate struct {
		// Pointer so an explicit 0 (accept everything) is distinguishable
		// from an absent key.
		ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
	} `yaml:"gate"`

	Dedup struct {
		TTLSeconds int `yaml:"ttl_seconds"`
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"dedup"`

	Batch struct {
		WindowMS int `yaml:"window_ms"` // 0 disables batching
		MaxSize  int `yaml:"max_size"`
	} `yaml:"batch"`

	Queue struct {
		URL       string `yaml:"url"`
		AuthToken string `yaml:"auth_token"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"queue"`

	Slack struct {
		BotToken string `yaml:"bot_token"` // empty disables acknowledgments
	} `yaml:"slack"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`
}

// ProviderConfig holds configuration for a single provider instance.
type ProviderConfig struct {
	Type              string `yaml:"type"` // "gemini", "groq" or "openrouter"
	APIKey            string `yaml:"api_key"`
	ModelName         string `yaml:"model_name"`
	BaseURL           string `yaml:"base_url"` // optional override
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8002"
	}
	if config.Gemini.ModelName == "" {
		config.Gemini.ModelName = "gemini-2.0-flash-exp"
	}
	if config.Classifier.TimeoutMS == 0 {
		config.Classifier.TimeoutMS = 20000
	}
	if config.Classifier.MaxAttempts == 0 {
		config.Classifier.MaxAttempts = 3
	}
	if config.Classifier.BackoffMS == 0 {
		config.Classifier.BackoffMS = 100
	}
	if config.Gate.ConfidenceThreshold == nil {
		threshold := 0.6
		config.Gate.ConfidenceThreshold = &threshold
	}
	if config.Dedup.TTLSeconds == 0 {
		config.Dedup.TTLSeconds = 900
	}
	if config.Dedup.MaxEntries == 0 {
		config.Dedup.MaxEntries = 5000
	}
	if config.Batch.MaxSize == 0 {
		config.Batch.MaxSize = 10
	}
	if config.Queue.TimeoutMS == 0 {
		config.Queue.TimeoutMS = 10000
	}
	if config.MaxFailuresBeforeSwitch == 0 {
		config.MaxFailuresBeforeSwitch = 3
	}

	// Expand environment variables in secrets and endpoints
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)
	config.Queue.URL = os.ExpandEnv(config.Queue.URL)
	config.Queue.AuthToken = os.ExpandEnv(config.Queue.AuthToken)
	config.Slack.BotToken = os.ExpandEnv(config.Slack.BotToken)

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides lets operators retune the pipeline without touching the
// config file.
func applyEnvOverrides(config *Config) {
	if v, ok := envInt("INTAKE_PROVIDER_TIMEOUT_MS"); ok {
		config.Classifier.TimeoutMS = v
	}
	if v, ok := envInt("INTAKE_MAX_ATTEMPTS"); ok {
		config.Classifier.MaxAttempts = v
	}
	if v, ok := envInt("INTAKE_BACKOFF_BASE_MS"); ok {
		config.Classifier.BackoffMS = v
	}
	if v, ok := envFloat("INTAKE_CONFIDENCE_THRESHOLD"); ok {
		config.Gate.ConfidenceThreshold = &v
	}
	if v, ok := envInt("INTAKE_DEDUP_TTL_S"); ok {
		config.Dedup.TTLSeconds = v
	}
	if v, ok := envInt("INTAKE_DEDUP_MAX_ENTRIES"); ok {
		config.Dedup.MaxEntries = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ClassifierTimeout returns the per-call budget as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutMS) * time.Millisecond
}

// BackoffBase returns the retry backoff seed as a duration.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Classifier.BackoffMS) * time.Millisecond
}

// DedupTTL returns the dedup window as a duration.
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Dedup.TTLSeconds) * time.Second
}

// BatchWindow returns the batching window as a duration; zero disables
// batching.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.Batch.WindowMS) * time.Millisecond
}

// QueueTimeout returns the publish timeout as a duration.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.Queue.TimeoutMS) * time.Millisecond
}
