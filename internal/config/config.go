// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Embedding service configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Index configuration
	Index IndexConfig `yaml:"index"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Dataset configuration
	Dataset DatasetConfig `yaml:"dataset"`

	// Strategies under comparison
	Strategies []StrategyConfig `yaml:"strategies"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host             string `envconfig:"QDRANT_HOST" yaml:"host"`
	Port             int    `envconfig:"QDRANT_PORT" yaml:"port"`
	APIKey           string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	UseTLS           bool   `envconfig:"QDRANT_USE_TLS" yaml:"use_tls"`
	CollectionPrefix string `envconfig:"QDRANT_COLLECTION_PREFIX" yaml:"collection_prefix"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	URL               string  `envconfig:"BENCH_EMBED_URL" yaml:"url"`
	Dim               int     `envconfig:"BENCH_EMBED_DIM" yaml:"dim"`
	BatchSize         int     `envconfig:"BENCH_EMBED_BATCH_SIZE" yaml:"batch_size"`
	RequestsPerSecond float64 `envconfig:"BENCH_EMBED_RPS" yaml:"requests_per_second"` // 0 = unlimited
	TimeoutSeconds    int     `envconfig:"BENCH_EMBED_TIMEOUT" yaml:"timeout_seconds"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Type     string `envconfig:"BENCH_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"BENCH_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"BENCH_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"BENCH_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"BENCH_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"BENCH_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"BENCH_KAFKA_GROUP" yaml:"kafka_group"`
}

// IndexConfig holds indexing settings.
type IndexConfig struct {
	EmbedBatchSize  int `envconfig:"BENCH_INDEX_EMBED_BATCH" yaml:"embed_batch_size"`
	UpsertBatchSize int `envconfig:"BENCH_INDEX_UPSERT_BATCH" yaml:"upsert_batch_size"`
	Workers         int `envconfig:"BENCH_INDEX_WORKERS" yaml:"workers"`
}

// EvalConfig holds evaluation settings.
type EvalConfig struct {
	K        int    `envconfig:"BENCH_EVAL_K" yaml:"k"`
	Workers  int    `envconfig:"BENCH_EVAL_WORKERS" yaml:"workers"`
	Baseline string `envconfig:"BENCH_EVAL_BASELINE" yaml:"baseline"`
}

// DatasetConfig holds dataset file locations.
type DatasetConfig struct {
	Dir         string `envconfig:"BENCH_DATASET_DIR" yaml:"dir"`
	CorpusFile  string `envconfig:"BENCH_CORPUS_FILE" yaml:"corpus_file"`
	QueriesFile string `envconfig:"BENCH_QUERIES_FILE" yaml:"queries_file"`
	QrelsFile   string `envconfig:"BENCH_QRELS_FILE" yaml:"qrels_file"`
}

// StrategyConfig describes one embedding strategy under comparison.
// The model is an opaque name resolved by the external embedding service;
// how it was trained (pre-trained, adapter fine-tuned, nudged) is invisible here.
type StrategyConfig struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	Collection string `yaml:"collection"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"BENCH_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"BENCH_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Qdrant = QdrantConfig{
		Host:             "localhost",
		Port:             6334,
		CollectionPrefix: "bench_",
	}

	cfg.Embedding = EmbeddingConfig{
		URL:            "http://localhost:8091",
		Dim:            768,
		BatchSize:      32,
		TimeoutSeconds: 60,
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     10000,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Index = IndexConfig{
		EmbedBatchSize:  32,
		UpsertBatchSize: 100,
		Workers:         4,
	}

	cfg.Eval = EvalConfig{
		K:        10,
		Workers:  1,
		Baseline: "baseline",
	}

	cfg.Dataset = DatasetConfig{
		Dir:         "./data",
		CorpusFile:  "corpus.jsonl",
		QueriesFile: "queries.jsonl",
		QrelsFile:   "qrels.tsv",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Qdrant validation
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		errs = append(errs, "qdrant port must be between 1 and 65535")
	}

	// Embedding validation
	if c.Embedding.Dim < 1 {
		errs = append(errs, "embedding dim must be positive")
	}

	if c.Embedding.BatchSize < 1 {
		errs = append(errs, "embedding batch_size must be positive")
	}

	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, "embedding requests_per_second must not be negative")
	}

	// Cache validation
	validCacheTypes := map[string]bool{"memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory or redis)", c.Cache.Type))
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	// Index validation
	if c.Index.EmbedBatchSize < 1 {
		errs = append(errs, "index embed_batch_size must be positive")
	}

	if c.Index.UpsertBatchSize < 1 {
		errs = append(errs, "index upsert_batch_size must be positive")
	}

	if c.Index.Workers < 1 {
		errs = append(errs, "index workers must be positive")
	}

	// Eval validation
	if c.Eval.K < 1 {
		errs = append(errs, "eval k must be positive")
	}

	if c.Eval.Workers < 1 {
		errs = append(errs, "eval workers must be positive")
	}

	// Strategy validation
	seen := map[string]bool{}
	for i, s := range c.Strategies {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("strategy %d has no name", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("duplicate strategy name: %s", s.Name))
		}
		seen[s.Name] = true
		if s.Model == "" {
			errs = append(errs, fmt.Sprintf("strategy %s has no model", s.Name))
		}
		if s.Collection == "" {
			errs = append(errs, fmt.Sprintf("strategy %s has no collection", s.Name))
		}
	}

	if len(c.Strategies) > 0 && c.Eval.Baseline != "" && !seen[c.Eval.Baseline] {
		errs = append(errs, fmt.Sprintf("baseline strategy %q is not configured", c.Eval.Baseline))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Strategy returns the strategy configuration with the given name.
func (c *Config) Strategy(name string) (StrategyConfig, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return StrategyConfig{}, false
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
