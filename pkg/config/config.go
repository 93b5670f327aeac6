// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem and the immutable language and synonym tables the engine is
// built from.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Storage   StorageConfig             `yaml:"storage"`
	Postgres  PostgresConfig            `yaml:"postgres"`
	SQLite    SQLiteConfig              `yaml:"sqlite"`
	Kafka     KafkaConfig               `yaml:"kafka"`
	Redis     RedisConfig               `yaml:"redis"`
	Cache     CacheConfig               `yaml:"cache"`
	Indexer   IndexerConfig             `yaml:"indexer"`
	Search    SearchConfig              `yaml:"search"`
	Fetcher   FetcherConfig             `yaml:"fetcher"`
	Languages map[string]LanguageConfig `yaml:"languages"`
	Synonyms  map[string][]string       `yaml:"synonyms"`
	Logging   LoggingConfig             `yaml:"logging"`
	Metrics   MetricsConfig             `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig caps ingestion requests per client address. Requests <= 0
// disables the limit.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// StorageConfig selects the durable sink for documents, tokens and scores.
// Driver is one of "none", "postgres" or "sqlite".
type StorageConfig struct {
	Driver string `yaml:"driver"`
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

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings. When Enabled, the
// searcher consumes ingest events and the ingestion API can enqueue batches.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexComplete  string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// CacheConfig selects where boolean query results are kept. Backend is
// "memory" or "redis". Entries never expire on their own.
type CacheConfig struct {
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// IndexerConfig controls ingestion. Workers caps the number of documents
// tokenized at once by parallel ingestion; zero means one goroutine per
// document.
type IndexerConfig struct {
	Workers         int    `yaml:"workers"`
	DefaultLanguage string `yaml:"defaultLanguage"`
	RetainCorpus    bool   `yaml:"retainCorpus"`
}

// SearchConfig controls ranked result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
}

// FetcherConfig controls remote content acquisition.
type FetcherConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	InitialDelay     time.Duration `yaml:"initialDelay"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
	MaxBodyBytes     int64         `yaml:"maxBodyBytes"`
	UserAgent        string        `yaml:"userAgent"`
}

// LanguageConfig registers one language tag: the Snowball stemmer to use and
// its stopword list.
type LanguageConfig struct {
	Stemmer   string   `yaml:"stemmer"`
	Stopwords []string `yaml:"stopwords"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), loads a .env file from the
// working directory when present, and applies environment-variable overrides.
// Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Languages) == 0 {
		errs = append(errs, errors.New("at least one language must be registered"))
	}
	if _, ok := c.Languages[c.Indexer.DefaultLanguage]; !ok {
		errs = append(errs, fmt.Errorf("default language %q is not registered", c.Indexer.DefaultLanguage))
	}
	for tag, lang := range c.Languages {
		if strings.TrimSpace(lang.Stemmer) == "" {
			errs = append(errs, fmt.Errorf("language %q has no stemmer", tag))
		}
	}
	switch c.Storage.Driver {
	case "", "none", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka is enabled but no brokers are configured"))
	}
	if c.Server.RateLimit.Requests > 0 && c.Server.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("server.rateLimit.window must be positive"))
	}
	if c.Indexer.Workers < 0 {
		errs = append(errs, errors.New("indexer.workers must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 120,
				Window:   time.Minute,
			},
		},
		Storage: StorageConfig{
			Driver: "none",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "docsearch.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-indexer",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
				IndexComplete:  "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			KeyPrefix: "docsearch:query:",
		},
		Indexer: IndexerConfig{
			DefaultLanguage: "en",
			RetainCorpus:    true,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
		},
		Fetcher: FetcherConfig{
			Timeout:          10 * time.Second,
			MaxAttempts:      3,
			InitialDelay:     200 * time.Millisecond,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			MaxBodyBytes:     10 << 20,
			UserAgent:        "docsearch-fetcher/1.0",
		},
		Languages: map[string]LanguageConfig{
			"en": {
				Stemmer: "english",
				Stopwords: []string{
					"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
					"has", "he", "in", "is", "it", "its", "of", "on", "or", "that",
					"the", "to", "was", "were", "will", "with", "this", "but", "they",
				},
			},
		},
		Synonyms: map[string][]string{},
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

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SP_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("SP_INDEXER_DEFAULT_LANGUAGE"); v != "" {
		cfg.Indexer.DefaultLanguage = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
