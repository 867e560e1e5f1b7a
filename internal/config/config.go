package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	CORSOrigins   []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Search   SearchConfig
	Upload   UploadConfig
	S3       S3Config
	AWS      AWSConfig
	Groq     GroqConfig
	Telegram TelegramConfig
	Worker   WorkerConfig
	Admin    AdminConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// CatalogTTL bounds how long the cached product list may be served.
	CatalogTTL time.Duration
}

// SessionConfig controls session lifetime and transport.
type SessionConfig struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// SearchConfig exposes the fuzzy matching thresholds.
type SearchConfig struct {
	MaxDistance int
}

// UploadConfig controls product image uploads.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// S3Config contains AWS S3 configuration. An empty Bucket means images are
// kept on local disk under Upload.Dir.
type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

// AWSConfig contains AWS general configuration
type AWSConfig struct {
	RekognitionRegion string
	MinConfidence     float64
	MaxLabels         int
}

// GroqConfig contains the LLM endpoint used for product enrichment and
// marketing copy.
type GroqConfig struct {
	APIKey string
	Model  string
}

// TelegramConfig contains the promotional channel credentials.
type TelegramConfig struct {
	BotToken   string
	ChannelID  string
	ShopHandle string
	Website    string
}

// WorkerConfig contains schedule configuration for background jobs.
type WorkerConfig struct {
	PostSchedule string
	AutoPost     bool
}

// AdminConfig seeds the first administrator account.
type AdminConfig struct {
	Username string
	Password string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "5000")
	cfg.Env = getEnv("ENV", "development")
	cfg.PublicBaseURL = strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:5000"), "/")
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxOpen:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdle:  getEnvInt("DB_MAX_IDLE_CONNS", 5),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Session = SessionConfig{
		CookieName:   getEnv("SESSION_COOKIE", "lumina_session"),
		CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
	}

	cfg.Search = SearchConfig{
		MaxDistance: getEnvInt("SEARCH_MAX_DISTANCE", 2),
	}

	cfg.Upload = UploadConfig{
		Dir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
	}

	cfg.S3 = S3Config{
		Region: getEnv("S3_REGION", "ap-southeast-1"),
		Bucket: getEnv("S3_BUCKET", ""),
		Prefix: getEnv("S3_PREFIX", "products"),
	}

	// AWS Rekognition (label detection for uploaded product photos)
	cfg.AWS = AWSConfig{
		RekognitionRegion: getEnv("AWS_REKOGNITION_REGION", "ap-southeast-1"),
		MaxLabels:         getEnvInt("AWS_REKOGNITION_MAX_LABELS", 10),
	}
	minConf, err := strconv.ParseFloat(getEnv("AWS_REKOGNITION_MIN_CONFIDENCE", "70"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AWS_REKOGNITION_MIN_CONFIDENCE: %w", err)
	}
	cfg.AWS.MinConfidence = minConf

	cfg.Groq = GroqConfig{
		APIKey: getEnv("GROQ_API_KEY", ""),
		Model:  getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChannelID:  getEnv("TELEGRAM_CHANNEL_ID", ""),
		ShopHandle: getEnv("TELEGRAM_SHOP_HANDLE", "@LuminaShop_bot"),
		Website:    getEnv("SHOP_WEBSITE", "lumina.shop"),
	}

	cfg.Worker = WorkerConfig{
		PostSchedule: getEnv("CHANNEL_POST_SCHEDULE", "@every 1h"),
		AutoPost:     getEnvBool("CHANNEL_AUTOPOST", false),
	}

	cfg.Admin = AdminConfig{
		Username: getEnv("ADMIN_USERNAME", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
	}

	// Durations
	if cfg.Session.TTL, err = parseDurationEnv("SESSION_TTL", "168h"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.Redis.CatalogTTL, err = parseDurationEnv("CATALOG_CACHE_TTL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
		return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be greater than zero")
	}
	if c.Search.MaxDistance < 0 {
		return errors.New("SEARCH_MAX_DISTANCE must be >= 0")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be greater than zero")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
