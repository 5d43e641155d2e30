// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Cache, Corpus, Redis, Postgres, Kafka).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexerConfig controls the batch index build: parallelism, shard layout,
// boundary sampling, and stop-word selection.
type IndexerConfig struct {
	DataDir         string  `yaml:"dataDir"`
	NumShards       int     `yaml:"numShards"`
	Workers         int     `yaml:"workers"`
	Partitions      int     `yaml:"partitions"`
	StopWordCount   int     `yaml:"stopWordCount"`
	FilterStopWords bool    `yaml:"filterStopWords"`
	SampleRate      float64 `yaml:"sampleRate"`
	MaxSamples      int     `yaml:"maxSamples"`
	SampleSeed      int64   `yaml:"sampleSeed"`
}

// SearchConfig controls query evaluation and result presentation.
type SearchConfig struct {
	IndexDir         string `yaml:"indexDir"`
	StopWordsPath    string `yaml:"stopWordsPath"`
	PostingCacheSize int    `yaml:"postingCacheSize"`
	SnippetLength    int    `yaml:"snippetLength"`
}

// CacheConfig selects the query-result cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlitePath"`
}

// CorpusConfig selects where raw documents are stored for snippet fetching.
type CorpusConfig struct {
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlitePath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters. A zero CacheTTL
// keeps entries until they are invalidated.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for the query pipeline.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:       "data/index",
			NumShards:     10,
			Workers:       4,
			Partitions:    8,
			StopWordCount: 100,
			SampleRate:    0.1,
			MaxSamples:    200,
			SampleSeed:    30,
		},
		Search: SearchConfig{
			IndexDir:         "data/index",
			PostingCacheSize: 4096,
			SnippetLength:    300,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			SQLitePath: "data/querycache.db",
		},
		Corpus: CorpusConfig{
			Store:      "sqlite",
			SQLitePath: "data/corpus.db",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wikisearch",
			User:            "wikisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wikisearch-searcher",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects configurations the indexer or searcher cannot run with.
func (c *Config) Validate() error {
	if c.Indexer.NumShards < 1 {
		return fmt.Errorf("indexer.numShards must be >= 1, got %d", c.Indexer.NumShards)
	}
	if c.Indexer.Workers < 1 {
		return fmt.Errorf("indexer.workers must be >= 1, got %d", c.Indexer.Workers)
	}
	if c.Indexer.Partitions < 1 {
		return fmt.Errorf("indexer.partitions must be >= 1, got %d", c.Indexer.Partitions)
	}
	if c.Indexer.SampleRate <= 0 || c.Indexer.SampleRate > 1 {
		return fmt.Errorf("indexer.sampleRate must be in (0, 1], got %v", c.Indexer.SampleRate)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "sqlite", "none":
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis, sqlite, none", c.Cache.Backend)
	}
	switch c.Corpus.Store {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("corpus.store %q is not one of sqlite, postgres", c.Corpus.Store)
	}
	return nil
}

// applyEnvOverrides reads WS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WS_INDEX_DIR"); v != "" {
		cfg.Indexer.DataDir = v
		cfg.Search.IndexDir = v
	}
	if v := os.Getenv("WS_INDEXER_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.NumShards = n
		}
	}
	if v := os.Getenv("WS_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("WS_STOPWORDS_PATH"); v != "" {
		cfg.Search.StopWordsPath = v
	}
	if v := os.Getenv("WS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("WS_CORPUS_STORE"); v != "" {
		cfg.Corpus.Store = v
	}
	if v := os.Getenv("WS_CORPUS_SQLITE_PATH"); v != "" {
		cfg.Corpus.SQLitePath = v
	}
	if v := os.Getenv("WS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("WS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
