// Package config provides environment-driven configuration for discovery.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Embedding provider names.
const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Scorer strategy names.
const (
	ScorerTags      = "tags"
	ScorerEmbedding = "embedding"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embedding
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	OllamaHost     string
	OpenAIAPIKey   string

	// Remote catalog source
	SourceURL        string
	SourceToken      string
	SourceDatabaseID string

	// Discovery
	Scorer     string
	MinResults int
	TopK       int

	// Vocabulary overrides (optional YAML file)
	VocabFile string

	// Server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "discovery"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "episodes"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("DISCOVERY_EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("DISCOVERY_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("DISCOVERY_EMBED_DIMENSION", 384),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),

		SourceURL:        getEnv("DISCOVERY_SOURCE_URL", "https://api.notion.com"),
		SourceToken:      os.Getenv("DISCOVERY_SOURCE_TOKEN"),
		SourceDatabaseID: os.Getenv("DISCOVERY_SOURCE_DATABASE_ID"),

		Scorer:     getEnv("DISCOVERY_SCORER", ScorerTags),
		MinResults: getEnvInt("DISCOVERY_MIN_RESULTS", 5),
		TopK:       getEnvInt("DISCOVERY_TOP_K", 5),

		VocabFile: os.Getenv("DISCOVERY_VOCAB_FILE"),

		ServerPort: getEnv("DISCOVERY_SERVER_PORT", "8080"),

		LogFile:  getEnv("DISCOVERY_LOG_FILE", "/tmp/discovery.log"),
		LogLevel: parseLogLevel(getEnv("DISCOVERY_LOG_LEVEL", "INFO")),
	}
}

// Validate checks cross-field constraints that Load cannot default away.
func (c Config) Validate() error {
	switch c.EmbedProvider {
	case ProviderOllama, ProviderBedrock:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY required for openai embed provider")
		}
	default:
		return fmt.Errorf("unknown embed provider: %s", c.EmbedProvider)
	}

	switch c.Scorer {
	case ScorerTags, ScorerEmbedding:
	default:
		return fmt.Errorf("unknown scorer strategy: %s", c.Scorer)
	}

	if c.EmbedDimension <= 0 {
		return fmt.Errorf("embed dimension must be positive, got %d", c.EmbedDimension)
	}
	if c.MinResults <= 0 || c.TopK <= 0 {
		return fmt.Errorf("min results and top k must be positive")
	}
	return nil
}

// VocabOverride holds the optional vocabulary file content. Both lists
// replace the built-in defaults entirely when present.
type VocabOverride struct {
	Philosophers []string `yaml:"philosophers"`
	Themes       []string `yaml:"themes"`
}

// LoadVocabFile reads a YAML vocabulary override. Returns nil if path is
// empty (use defaults).
func LoadVocabFile(path string) (*VocabOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab file: %w", err)
	}
	var v VocabOverride
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocab file: %w", err)
	}
	return &v, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
