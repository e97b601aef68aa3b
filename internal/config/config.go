package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/workspace-agent/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string        `env:"SERVER_ADDR" envDefault:":5000"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`

	// Database configuration. An empty URL switches to the in-memory chunk store.
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	MigrationsPath      string        `env:"MIGRATIONS_PATH" envDefault:"file://internal/repository/migrations"`

	// Optional Redis for the shared file mapping store
	RedisCfg RedisConfig `envPrefix:"REDIS_"`

	// Generation providers, tried in this order
	OpenAICfg   OpenAICompatibleConfig `envPrefix:"OPENAI_"`
	GroqCfg     OpenAICompatibleConfig `envPrefix:"GROQ_"`
	TogetherCfg OpenAICompatibleConfig `envPrefix:"TOGETHER_"`
	OllamaCfg   OllamaConfig           `envPrefix:"OLLAMA_"`

	SMTPCfg   SMTPConfig   `envPrefix:"SMTP_"`
	UploadCfg UploadConfig `envPrefix:"UPLOAD_"`
	StreamCfg StreamConfig `envPrefix:"STREAM_"`

	// Telegram chat channel, enabled by a bot token
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// OpenAICompatibleConfig configures a provider speaking the OpenAI chat and
// embeddings API. The provider is skipped when Token is empty.
type OpenAICompatibleConfig struct {
	HTTPClientConfig
	ChatModel      string               `env:"CHAT_MODEL"`
	EmbeddingModel string               `env:"EMBEDDING_MODEL"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type OllamaConfig struct {
	Host           string               `env:"HOST" envDefault:"http://localhost:11434"`
	ChatModel      string               `env:"CHAT_MODEL" envDefault:"llama3.2"`
	EmbeddingModel string               `env:"EMBEDDING_MODEL" envDefault:"mxbai-embed-large"`
	Timeout        time.Duration        `env:"TIMEOUT" envDefault:"120s"`
	Enabled        bool                 `env:"ENABLED" envDefault:"true"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"API_KEY"`
	Url                   string        `env:"BASE_URL"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// UploadConfig holds file upload limits
type UploadConfig struct {
	Dir           string `env:"DIR" envDefault:"uploads"`
	MaxUploadSize int64  `env:"MAX_SIZE" envDefault:"52428800"` // 50 MiB
	EmbedBatch    int    `env:"EMBED_BATCH" envDefault:"5"`
}

type StreamConfig struct {
	KeepAlive  time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	BufferSize int           `env:"BUFFER_SIZE" envDefault:"64"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string        `env:"BOT_TOKEN"`
	UpdateTimeout      int           `env:"UPDATE_TIMEOUT" envDefault:"60"` // seconds, long polling
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	ProgressInterval   time.Duration `env:"PROGRESS_INTERVAL" envDefault:"1s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

var providerDefaults = []struct {
	cfg            func(*Config) *OpenAICompatibleConfig
	url            string
	chatModel      string
	embeddingModel string
}{
	{func(c *Config) *OpenAICompatibleConfig { return &c.OpenAICfg }, "https://api.openai.com/v1", "gpt-4.1-nano", "text-embedding-3-small"},
	{func(c *Config) *OpenAICompatibleConfig { return &c.GroqCfg }, "https://api.groq.com/openai/v1", "llama3-8b-8192", ""},
	{func(c *Config) *OpenAICompatibleConfig { return &c.TogetherCfg }, "https://api.together.xyz/v1", "meta-llama/Llama-3.2-3B-Instruct-Turbo", "togethercomputer/m2-bert-80M-8k-retrieval"},
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	applyProviderDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyProviderDefaults(cfg *Config) {
	for _, d := range providerDefaults {
		p := d.cfg(cfg)
		if p.Url == "" {
			p.Url = d.url
		}
		if p.ChatModel == "" {
			p.ChatModel = d.chatModel
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = d.embeddingModel
		}
	}
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.DatabaseURL != "" {
		if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
			errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
		}

		if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
			errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
		}
	}

	if cfg.UploadCfg.MaxUploadSize < 1 {
		errors = append(errors, fmt.Sprintf("UPLOAD_MAX_SIZE must be positive, got %d", cfg.UploadCfg.MaxUploadSize))
	}

	if cfg.UploadCfg.EmbedBatch < 1 || cfg.UploadCfg.EmbedBatch > 64 {
		errors = append(errors, fmt.Sprintf("UPLOAD_EMBED_BATCH must be between 1 and 64, got %d", cfg.UploadCfg.EmbedBatch))
	}

	if cfg.StreamCfg.KeepAlive < time.Second {
		errors = append(errors, fmt.Sprintf("STREAM_KEEP_ALIVE must be at least 1s, got %s", cfg.StreamCfg.KeepAlive))
	}

	if cfg.StreamCfg.BufferSize < 1 {
		errors = append(errors, fmt.Sprintf("STREAM_BUFFER_SIZE must be positive, got %d", cfg.StreamCfg.BufferSize))
	}

	if cfg.TelegramCfg.Enabled() {
		if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
			errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
		}

		if cfg.TelegramCfg.UpdateTimeout < 1 {
			errors = append(errors, fmt.Sprintf("TELEGRAM_UPDATE_TIMEOUT must be positive, got %d", cfg.TelegramCfg.UpdateTimeout))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
