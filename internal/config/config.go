// Package config loads application settings from defaults, an optional YAML
// file and RAG_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anjanaaa29/rag-reader/internal/conversation"
	"github.com/anjanaaa29/rag-reader/internal/domain"
	"github.com/anjanaaa29/rag-reader/internal/retriever"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RAG"

// Config is the full application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Synthesis  SynthesisConfig  `mapstructure:"synthesis"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Index      IndexConfig      `mapstructure:"index"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Redis      RedisConfig      `mapstructure:"redis"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

type AppConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
}

type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// RetrievalConfig holds the defaults applied to every ask.
type RetrievalConfig struct {
	Strategy            string  `mapstructure:"strategy"`
	TopK                int     `mapstructure:"top_k"`
	FetchK              int     `mapstructure:"fetch_k"`
	Lambda              float64 `mapstructure:"lambda"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	RelevanceMinScore   float64 `mapstructure:"relevance_min_score"` // 0 disables the post-filter
}

type SynthesisConfig struct {
	MaxSources        int           `mapstructure:"max_sources"`
	ExcerptLength     int           `mapstructure:"excerpt_length"`
	HistoryTurns      int           `mapstructure:"history_turns"`
	MaxAnswerLength   int           `mapstructure:"max_answer_length"`
	Timeout           time.Duration `mapstructure:"timeout"`
	SensitiveKeywords []string      `mapstructure:"sensitive_keywords"` // empty keeps the built-in list
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig selects the embedding provider. "hash" needs no network
// access and is meant for tests and offline use.
type EmbeddingConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	BatchSize   int    `mapstructure:"batch_size"`
	Concurrency int    `mapstructure:"concurrency"`
	Dimension   int    `mapstructure:"dimension"`
}

type EnrichmentConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type IndexConfig struct {
	Path string `mapstructure:"path"`
	Name string `mapstructure:"name"`
}

// QdrantConfig enables mirroring the index into Qdrant and searching there.
type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig enables the Redis conversation store.
type RedisConfig struct {
	Enabled                  bool `mapstructure:"enabled"`
	conversation.RedisConfig `mapstructure:",squash"`
}

type GitHubConfig struct {
	Token  string `mapstructure:"token"`
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Path   string `mapstructure:"path"`
	Branch string `mapstructure:"branch"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"app.name":   "Knowledge Base Bot",
	"app.domain": "general",

	"chunking.size":    1024,
	"chunking.overlap": 128,

	"retrieval.strategy":             "mmr",
	"retrieval.top_k":                5,
	"retrieval.fetch_k":              20,
	"retrieval.lambda":               0.5,
	"retrieval.similarity_threshold": 0.65,
	"retrieval.relevance_min_score":  0.0,

	"synthesis.max_sources":       3,
	"synthesis.excerpt_length":    250,
	"synthesis.history_turns":     6,
	"synthesis.max_answer_length": 4000,
	"synthesis.timeout":           60 * time.Second,

	"llm.api_key":     "",
	"llm.base_url":    "https://api.groq.com/openai/v1",
	"llm.model":       "llama3-70b-8192",
	"llm.temperature": 0.7,
	"llm.max_tokens":  1024,

	"embedding.provider":    "openai",
	"embedding.api_key":     "",
	"embedding.base_url":    "",
	"embedding.model":       "text-embedding-3-small",
	"embedding.batch_size":  64,
	"embedding.concurrency": 4,
	"embedding.dimension":   384,

	"enrichment.enabled":    false,
	"enrichment.model":      "gpt-4o-mini",
	"enrichment.max_tokens": 4000,

	"index.path": "index",
	"index.name": "documents",

	"qdrant.enabled":    false,
	"qdrant.host":       "localhost",
	"qdrant.port":       6334,
	"qdrant.collection": "documents",

	"redis.enabled":    false,
	"redis.address":    "localhost:6379",
	"redis.password":   "",
	"redis.database":   0,
	"redis.key_prefix": conversation.DefaultKeyPrefix,
	"redis.ttl":        24 * time.Hour,

	"github.token":  "",
	"github.owner":  "",
	"github.repo":   "",
	"github.path":   "",
	"github.branch": "main",

	"server.address": ":8080",

	"log.level":  "info",
	"log.format": "text",
}

// Keys that also read a conventional, unprefixed variable.
var envAliases = map[string]string{
	"llm.api_key":       "GROQ_API_KEY",
	"embedding.api_key": "OPENAI_API_KEY",
	"github.token":      "GITHUB_TOKEN",
}

// Load builds a Config. path may be empty; a named file that does not exist
// is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and combinations. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...))
	}

	if c.Chunking.Overlap < 0 || c.Chunking.Size <= c.Chunking.Overlap {
		fail("chunking.size (%d) must be greater than chunking.overlap (%d) and overlap must be non-negative",
			c.Chunking.Size, c.Chunking.Overlap)
	}

	strategy, err := retriever.ParseStrategy(c.Retrieval.Strategy)
	if err != nil {
		errs = append(errs, err)
	}
	if c.Retrieval.TopK < 1 {
		fail("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if strategy == retriever.StrategyMMR && c.Retrieval.FetchK < c.Retrieval.TopK {
		fail("retrieval.fetch_k (%d) must be at least retrieval.top_k (%d)", c.Retrieval.FetchK, c.Retrieval.TopK)
	}
	if c.Retrieval.Lambda < 0 || c.Retrieval.Lambda > 1 {
		fail("retrieval.lambda must be within [0, 1], got %g", c.Retrieval.Lambda)
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		fail("retrieval.similarity_threshold must be within [0, 1], got %g", c.Retrieval.SimilarityThreshold)
	}

	if c.Retrieval.RelevanceMinScore < 0 || c.Retrieval.RelevanceMinScore > 1 {
		fail("retrieval.relevance_min_score must be within [0, 1], got %g", c.Retrieval.RelevanceMinScore)
	}

	if c.Synthesis.MaxSources < 1 {
		fail("synthesis.max_sources must be at least 1, got %d", c.Synthesis.MaxSources)
	}
	if c.Synthesis.ExcerptLength < 1 {
		fail("synthesis.excerpt_length must be at least 1, got %d", c.Synthesis.ExcerptLength)
	}
	if c.Synthesis.HistoryTurns < 0 {
		fail("synthesis.history_turns must not be negative, got %d", c.Synthesis.HistoryTurns)
	}

	switch c.Embedding.Provider {
	case "openai":
	case "hash":
		if c.Embedding.Dimension < 1 {
			fail("embedding.dimension must be at least 1, got %d", c.Embedding.Dimension)
		}
	default:
		fail("embedding.provider must be openai or hash, got %q", c.Embedding.Provider)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		fail("log.format must be text or json, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// RetrievalDefaults converts the retrieval section. The threshold is only
// attached for the threshold strategy.
func (c *Config) RetrievalDefaults() (retriever.Strategy, *float64) {
	strategy, err := retriever.ParseStrategy(c.Retrieval.Strategy)
	if err != nil {
		strategy = retriever.StrategyMMR
	}
	if strategy != retriever.StrategyThreshold {
		return strategy, nil
	}
	threshold := c.Retrieval.SimilarityThreshold
	return strategy, &threshold
}
