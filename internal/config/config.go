package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AI       AIConfig       `mapstructure:"ai"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port                     int    `mapstructure:"port"`
	AllowedOrigins           string `mapstructure:"allowed_origins"`
	DefaultCredits           int    `mapstructure:"default_credits"`
	GenerateRateLimitPerHour int    `mapstructure:"generate_rate_limit_per_hour"`
}

// Origins splits the comma separated allow-list.
func (a APIConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(a.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains the Redis endpoint shared by rate limiting, pub/sub and asynq.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig selects how bearer tokens are verified.
// "jwt" checks the hosted auth service's HS256 signature locally,
// "gotrue" asks the auth service for the user on every request.
type AuthConfig struct {
	Mode               string `mapstructure:"mode"`
	JWTSecret          string `mapstructure:"jwt_secret"`
	SupabaseURL        string `mapstructure:"supabase_url"`
	SupabaseServiceKey string `mapstructure:"supabase_service_key"`
}

// AIConfig holds provider credentials for the enhancement and generation phases.
type AIConfig struct {
	EnhanceProvider   string        `mapstructure:"enhance_provider"`
	GroqAPIKey        string        `mapstructure:"groq_api_key"`
	GroqBaseURL       string        `mapstructure:"groq_base_url"`
	GroqModel         string        `mapstructure:"groq_model"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model"`
	DeepSeekAPIKey    string        `mapstructure:"deepseek_api_key"`
	DeepSeekBaseURL   string        `mapstructure:"deepseek_base_url"`
	DeepSeekModel     string        `mapstructure:"deepseek_model"`
	EnhanceMaxTokens  int           `mapstructure:"enhance_max_tokens"`
	GenerateMaxTokens int           `mapstructure:"generate_max_tokens"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// ClamdConfig points at an optional clamd daemon used before publishing projects.
type ClamdConfig struct {
	Address string `mapstructure:"address"`
}

// WorkerConfig contains asynq server settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 3001)
	v.SetDefault("api.allowed_origins", "http://localhost:3000")
	v.SetDefault("api.default_credits", 10)
	v.SetDefault("api.generate_rate_limit_per_hour", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "thumbnails")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("ai.enhance_provider", "groq")
	v.SetDefault("ai.groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	v.SetDefault("ai.gemini_model", "gemini-2.0-flash")
	v.SetDefault("ai.deepseek_base_url", "https://api.deepseek.com")
	v.SetDefault("ai.deepseek_model", "deepseek-chat")
	v.SetDefault("ai.enhance_max_tokens", 2000)
	v.SetDefault("ai.generate_max_tokens", 8192)
	v.SetDefault("ai.request_timeout", 5*time.Minute)
	v.SetDefault("worker.concurrency", 4)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                         "PORT",
		"api.allowed_origins":              "FRONTEND_URL",
		"api.default_credits":              "DEFAULT_CREDITS",
		"api.generate_rate_limit_per_hour": "GENERATE_RATE_LIMIT_PER_HOUR",
		"database.host":                    "DATABASE_HOST",
		"database.port":                    "DATABASE_PORT",
		"database.name":                    "POSTGRES_DB",
		"database.user":                    "POSTGRES_USER",
		"database.password":                "POSTGRES_PASSWORD",
		"database.sslmode":                 "DATABASE_SSLMODE",
		"redis.host":                       "REDIS_HOST",
		"redis.port":                       "REDIS_PORT",
		"minio.endpoint":                   "MINIO_ENDPOINT",
		"minio.public_endpoint":            "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":              "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":          "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                    "MINIO_USE_SSL",
		"minio.bucket":                     "MINIO_BUCKET",
		"minio.region":                     "MINIO_REGION",
		"minio.bucket_lookup":              "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":         "MINIO_AUTO_CREATE_BUCKET",
		"auth.mode":                        "AUTH_MODE",
		"auth.jwt_secret":                  "SUPABASE_JWT_SECRET",
		"auth.supabase_url":                "SUPABASE_URL",
		"auth.supabase_service_key":        "SUPABASE_SERVICE_ROLE_KEY",
		"ai.enhance_provider":              "ENHANCE_PROVIDER",
		"ai.groq_api_key":                  "GROQ_API_KEY",
		"ai.groq_base_url":                 "GROQ_BASE_URL",
		"ai.groq_model":                    "GROQ_MODEL",
		"ai.gemini_api_key":                "GEMINI_API_KEY",
		"ai.gemini_model":                  "GEMINI_MODEL",
		"ai.deepseek_api_key":              "DEEPSEEK_API_KEY",
		"ai.deepseek_base_url":             "DEEPSEEK_BASE_URL",
		"ai.deepseek_model":                "DEEPSEEK_MODEL",
		"ai.enhance_max_tokens":            "ENHANCE_MAX_TOKENS",
		"ai.generate_max_tokens":           "GENERATE_MAX_TOKENS",
		"ai.request_timeout":               "AI_REQUEST_TIMEOUT",
		"clamd.address":                    "CLAMD_ADDRESS",
		"worker.concurrency":               "WORKER_CONCURRENCY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.DefaultCredits < 0 {
		return errors.New("default credits must not be negative")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}

	switch cfg.Auth.Mode {
	case "jwt":
		if cfg.Auth.JWTSecret == "" {
			return errors.New("supabase jwt secret is required in jwt auth mode")
		}
	case "gotrue":
		if cfg.Auth.SupabaseURL == "" || cfg.Auth.SupabaseServiceKey == "" {
			return errors.New("supabase url and service role key are required in gotrue auth mode")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}

	switch cfg.AI.EnhanceProvider {
	case "groq":
		if cfg.AI.GroqAPIKey == "" {
			return errors.New("groq api key is required")
		}
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return errors.New("gemini api key is required")
		}
	default:
		return fmt.Errorf("unknown enhance provider %q", cfg.AI.EnhanceProvider)
	}
	if cfg.AI.DeepSeekAPIKey == "" {
		return errors.New("deepseek api key is required")
	}
	if cfg.AI.RequestTimeout <= 0 {
		return errors.New("ai request timeout must be positive")
	}
	return nil
}
