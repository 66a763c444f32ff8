package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Vector      VectorConfig     `toml:"vector"`
	LLM         LLMConfig        `toml:"llm"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	Processing  ProcessingConfig `toml:"processing"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Logging     LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// VectorConfig contains the Qdrant similarity index configuration
type VectorConfig struct {
	URL        string `toml:"url" validate:"required"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection" validate:"required"`
	Dimension  int    `toml:"dimension" validate:"gt=0"`
	Timeout    string `toml:"timeout"` // HTTP timeout as duration string (default: "15s")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for AI providers
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=gemini claude"` // Provider for answer generation
}

// GeminiConfig contains Google Gemini API configuration. Gemini also serves
// as the embedding endpoint regardless of the generation provider.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Generation model (default: "gemini-2.5-flash")
	EmbedModel  string  `toml:"embed_model"` // Embedding model (default: "gemini-embedding-001")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Generation model (default: "claude-sonnet-4-20250514")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// CrawlerConfig contains web crawler configuration
type CrawlerConfig struct {
	UserAgent       string `toml:"user_agent"`         // User agent string sent with page fetches
	MaxDepth        int    `toml:"max_depth"`          // Default crawl depth when a request omits one (default: 3)
	MaxLinksPerPage int    `toml:"max_links_per_page"` // Per-page link cap, first-N in document order (default: 20)
	RequestDelay    string `toml:"request_delay"`      // Minimum delay between requests to the same host (default: "500ms")
	RequestTimeout  string `toml:"request_timeout"`    // Per-fetch HTTP timeout (default: "10s")
	MaxBodySize     int64  `toml:"max_body_size"`      // Maximum response body size in bytes (default: 10 MB)
}

// ProcessingConfig contains ingestion pipeline configuration
type ProcessingConfig struct {
	ChunkSize     int    `toml:"chunk_size" validate:"gt=0"`     // Target chunk size in characters (default: 1000)
	ChunkOverlap  int    `toml:"chunk_overlap" validate:"gte=0"` // Overlap between consecutive chunks (default: 200)
	Concurrency   int    `toml:"concurrency"`                    // Cross-document ingestion parallelism (default: 4)
	StaleAfter    string `toml:"stale_after"`                    // Age after which an orphaned processing document is failed (default: "15m")
	SweepSchedule string `toml:"sweep_schedule"`                 // Cron schedule for the stale-processing sweep (default: every minute)
}

// RetrievalConfig contains query pipeline configuration
type RetrievalConfig struct {
	Candidates    int `toml:"candidates" validate:"gt=0"` // Similarity search candidate count (default: 20)
	TopK          int `toml:"top_k" validate:"gt=0"`      // Rerank output size, must be < Candidates (default: 5)
	ContextBudget int `toml:"context_budget"`             // Assembled context character budget (default: 8000)
	SnippetLength int `toml:"snippet_length"`             // Source snippet length in query results (default: 200)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults. Processing and retrieval
// defaults mirror the deployed service: 1000/200 chunking, 20 candidates
// reranked to 5.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/gnosis",
			},
		},
		Vector: VectorConfig{
			URL:        "http://localhost:6333",
			Collection: "gnosis",
			Dimension:  768,
			Timeout:    "15s",
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			EmbedModel:  "gemini-embedding-001",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Crawler: CrawlerConfig{
			UserAgent:       "Mozilla/5.0 (compatible; GnosisBot/1.0)",
			MaxDepth:        3,
			MaxLinksPerPage: 20,
			RequestDelay:    "500ms",
			RequestTimeout:  "10s",
			MaxBodySize:     10 * 1024 * 1024,
		},
		Processing: ProcessingConfig{
			ChunkSize:     1000,
			ChunkOverlap:  200,
			Concurrency:   4,
			StaleAfter:    "15m",
			SweepSchedule: "* * * * *",
		},
		Retrieval: RetrievalConfig{
			Candidates:    20,
			TopK:          5,
			ContextBudget: 8000,
			SnippetLength: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig loads configuration from an optional TOML file over the
// defaults, applies environment overrides for secrets, and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides resolves API keys and endpoints from the environment.
// Environment values take precedence over file values so secrets can stay
// out of config files.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		config.Vector.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		config.Vector.APIKey = v
	}
}

// Validate checks structural constraints plus the cross-field invariants the
// struct tags cannot express: overlap < chunk size and top-K < candidates.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)",
			c.Processing.ChunkOverlap, c.Processing.ChunkSize)
	}
	if c.Retrieval.TopK >= c.Retrieval.Candidates {
		return fmt.Errorf("retrieval top_k (%d) must be less than candidates (%d)",
			c.Retrieval.TopK, c.Retrieval.Candidates)
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"vector.timeout", c.Vector.Timeout},
		{"gemini.timeout", c.Gemini.Timeout},
		{"claude.timeout", c.Claude.Timeout},
		{"crawler.request_delay", c.Crawler.RequestDelay},
		{"crawler.request_timeout", c.Crawler.RequestTimeout},
		{"processing.stale_after", c.Processing.StaleAfter},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}

	return nil
}
