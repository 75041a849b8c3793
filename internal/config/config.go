package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Vector     VectorConfig     `mapstructure:"vector"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Campaign   CampaignConfig   `mapstructure:"campaign"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the relational store holding joke records.
// Driver is "postgres" or "sqlite"; DSN is a connection string or file path.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	InstallSearchFunctions bool   `mapstructure:"install_search_functions"`
}

// VectorConfig picks where similarity search runs.
type VectorConfig struct {
	Backend string `mapstructure:"backend"` // postgres | qdrant
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type CampaignConfig struct {
	DefaultCount      int           `mapstructure:"default_count"`
	MaxCount          int           `mapstructure:"max_count"`
	Workers           int           `mapstructure:"workers"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	RateLimit         float64       `mapstructure:"rate_limit"` // transplant calls per second, 0 disables
	FallbackThreshold float32       `mapstructure:"fallback_threshold"`
	SearchCount       int           `mapstructure:"search_count"`
	SearchThreshold   float32       `mapstructure:"search_threshold"`
	PreviewChars      int           `mapstructure:"preview_chars"`
	Archive           bool          `mapstructure:"archive"`
}

type EnrichmentConfig struct {
	Workers   int     `mapstructure:"workers"`
	BatchSize int     `mapstructure:"batch_size"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

// ExtractionConfig controls how transcripts are split before segment extraction.
type ExtractionConfig struct {
	ChunkSize   int     `mapstructure:"chunk_size"`
	Overlap     int     `mapstructure:"overlap"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	// StagingDir holds reviewed <source>/segments.jsonl manifests.
	StagingDir  string  `mapstructure:"staging_dir"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // s3 | minio
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ServiceName string `mapstructure:"service_name"`
	File        string `mapstructure:"file"`
	FileOnly    bool   `mapstructure:"file_only"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5025)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=jokes port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.install_search_functions", false)

	v.SetDefault("vector.backend", "postgres")
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "comic_segments")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.theme_max_tokens", 100)
	v.SetDefault("llm.bridge_max_tokens", 200)
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("generator.model", "gemini-2.0-flash")
	v.SetDefault("generator.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("generator.temperature", 0.5)
	v.SetDefault("generator.max_output_tokens", 8192)

	v.SetDefault("campaign.default_count", 10)
	v.SetDefault("campaign.max_count", 50)
	v.SetDefault("campaign.workers", 4)
	v.SetDefault("campaign.call_timeout", 60*time.Second)
	v.SetDefault("campaign.rate_limit", 0.0)
	v.SetDefault("campaign.fallback_threshold", 0.10)
	v.SetDefault("campaign.search_count", 15)
	v.SetDefault("campaign.search_threshold", 0.15)
	v.SetDefault("campaign.preview_chars", 150)
	v.SetDefault("campaign.archive", false)

	v.SetDefault("enrichment.workers", 3)
	v.SetDefault("enrichment.batch_size", 10)
	v.SetDefault("enrichment.rate_limit", 2.0)

	v.SetDefault("extraction.chunk_size", 6000)
	v.SetDefault("extraction.overlap", 2000)
	v.SetDefault("extraction.model", "gpt-4o")
	v.SetDefault("extraction.temperature", 0.4)
	v.SetDefault("extraction.staging_dir", "./data/staging")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "joke-campaigns")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.prefix", "campaigns")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.service_name", "joke-manager")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Well-known variable names used by deployments
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("vector.backend", "VECTOR_BACKEND")
	_ = v.BindEnv("qdrant.host", "QDRANT_HOST")
	_ = v.BindEnv("qdrant.port", "QDRANT_PORT")
	_ = v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	_ = v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("generator.temperature", "GENERATOR_TEMPERATURE")
	_ = v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	_ = v.BindEnv("storage.bucket", "S3_BUCKET")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()
	cfg.LLM.ResolveEnvVars()
	cfg.Generator.ResolveEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural settings. Missing API keys are not reported here;
// components that need a key fail with a configuration error when constructed.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	switch c.Vector.Backend {
	case "postgres":
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("vector backend postgres requires database.driver=postgres, got %q", c.Database.Driver)
		}
	case "qdrant":
	default:
		return fmt.Errorf("vector: unknown backend %q", c.Vector.Backend)
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if c.Campaign.Workers <= 0 {
		return fmt.Errorf("campaign: workers must be positive")
	}
	if c.Campaign.FallbackThreshold <= 0 || c.Campaign.FallbackThreshold >= 1 {
		return fmt.Errorf("campaign: fallback_threshold must be in (0, 1)")
	}
	if c.Extraction.Overlap >= c.Extraction.ChunkSize {
		return fmt.Errorf("extraction: overlap %d must be smaller than chunk_size %d",
			c.Extraction.Overlap, c.Extraction.ChunkSize)
	}
	return nil
}
