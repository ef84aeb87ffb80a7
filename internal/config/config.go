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

// Config holds the yogachat service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Model    ModelConfig    `yaml:"model"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Quota    QuotaConfig    `yaml:"quota"`
	Auth     AuthConfig     `yaml:"auth"`
	Rerank   RerankConfig   `yaml:"rerank"`
	Logging  LoggingConfig  `yaml:"logging"`
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

// DatabaseConfig holds the Redis connection settings backing the corpus index.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelConfig holds the hosted model provider settings. One OpenAI-compatible
// endpoint serves both embeddings and chat completions.
type ModelConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Dimensions     int     `yaml:"dimensions"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// CorpusConfig holds corpus index settings.
type CorpusConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	CandidatePool   int    `yaml:"candidate_pool"`
	TopK            int    `yaml:"top_k"`
}

// QuotaConfig holds daily question quota settings.
type QuotaConfig struct {
	AnonymousDailyLimit     int    `yaml:"anonymous_daily_limit"`
	AuthenticatedDailyLimit int    `yaml:"authenticated_daily_limit"`
	UsageBackend            string `yaml:"usage_backend"` // file, redis (default: file)
	UsageFile               string `yaml:"usage_file"`
	ContactURL              string `yaml:"contact_url"`
}

// AuthConfig holds the credential table for explicit login.
type AuthConfig struct {
	Users map[string]string `yaml:"users"` // username -> secret
}

// RerankConfig holds the alias table for the keyword re-ranker.
// Keys are colloquial phrases matched case-insensitively as substrings of
// the raw query; values are canonical corpus terms.
type RerankConfig struct {
	Aliases map[string][]string `yaml:"aliases"`
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
		// Generation calls block for the whole turn; leave headroom.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if c.Model.ChatModel == "" {
		c.Model.ChatModel = "gemini-2.0-flash"
	}
	if c.Model.EmbeddingModel == "" {
		c.Model.EmbeddingModel = "text-embedding-004"
	}
	if c.Model.Dimensions <= 0 {
		c.Model.Dimensions = 768
	}
	if c.Model.Temperature <= 0 {
		c.Model.Temperature = 0.4
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 1024
	}
	if c.Corpus.KeyPrefix == "" {
		c.Corpus.KeyPrefix = "yogachat:corpus:"
	}
	if c.Corpus.HNSWM <= 0 {
		c.Corpus.HNSWM = 32
	}
	if c.Corpus.HNSWEFConstruct <= 0 {
		c.Corpus.HNSWEFConstruct = 400
	}
	if c.Corpus.CandidatePool <= 0 {
		c.Corpus.CandidatePool = 100
	}
	if c.Corpus.TopK <= 0 {
		c.Corpus.TopK = 3
	}
	if c.Quota.AnonymousDailyLimit <= 0 {
		c.Quota.AnonymousDailyLimit = 5
	}
	if c.Quota.AuthenticatedDailyLimit <= 0 {
		c.Quota.AuthenticatedDailyLimit = 30
	}
	if c.Quota.UsageBackend == "" {
		c.Quota.UsageBackend = "file"
	}
	if c.Quota.UsageFile == "" {
		c.Quota.UsageFile = "data/usage.json"
	}
	if c.Rerank.Aliases == nil {
		c.Rerank.Aliases = DefaultAliases()
	}
}

// Validate checks the configuration for correctness.
// A missing model API key is fatal: the service must halt before serving.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("model.api_key is required")
	}
	switch c.Quota.UsageBackend {
	case "file", "redis":
		// ok
	default:
		return fmt.Errorf("quota.usage_backend must be \"file\" or \"redis\", got %q",
			c.Quota.UsageBackend)
	}
	if c.Quota.AuthenticatedDailyLimit <= c.Quota.AnonymousDailyLimit {
		return fmt.Errorf(
			"quota.authenticated_daily_limit (%d) must be greater than quota.anonymous_daily_limit (%d)",
			c.Quota.AuthenticatedDailyLimit, c.Quota.AnonymousDailyLimit)
	}
	return nil
}

// DefaultAliases maps colloquial Vietnamese pose names to canonical corpus terms.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"trồng chuối":   {"sirsasana", "headstand"},
		"chào mặt trời": {"surya namaskar", "sun salutation"},
		"thở bụng":      {"pranayama", "diaphragmatic breathing"},
		"ngồi thiền":    {"meditation", "dhyana"},
		"xoạc dọc":      {"hanumanasana", "splits"},
	}
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
