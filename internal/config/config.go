// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	AWS         AWSConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Log         LogConfig
	I18n        I18nConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Database       string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    int
	ConnectRetries int
	RetryDelay     int // in seconds
	TxTimeout      int // in seconds
	LogLevel       string
}

type StorageConfig struct {
	UploadDir       string
	MaxFileSize     int64 // in bytes
	MaxFiles        int
	MaxRequestBytes int64
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

type RateLimitConfig struct {
	UploadsPerMinute int
	UploadBurst      int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "agency_onboarding"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:   getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:    getEnvAsInt("DB_MAX_LIFETIME", 300),
			ConnectRetries: getEnvAsInt("DB_CONNECT_RETRIES", 5),
			RetryDelay:     getEnvAsInt("DB_RETRY_DELAY", 5),
			TxTimeout:      getEnvAsInt("DB_TX_TIMEOUT", 60),
			LogLevel:       getEnv("DB_LOG_LEVEL", "warn"),
		},
		Storage: StorageConfig{
			UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:     int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)), // 10MB
			MaxFiles:        getEnvAsInt("UPLOAD_MAX_FILES", 20),
			MaxRequestBytes: int64(getEnvAsInt("UPLOAD_MAX_REQUEST_BYTES", 0)),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-south-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		},
		RateLimit: RateLimitConfig{
			UploadsPerMinute: getEnvAsInt("RATE_LIMIT_UPLOADS_PER_MINUTE", 60),
			UploadBurst:      getEnvAsInt("RATE_LIMIT_UPLOAD_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
	}

	if config.Storage.MaxRequestBytes <= 0 {
		config.Storage.MaxRequestBytes = config.Storage.DefaultRequestBytes()
	}

	return config, config.Validate()
}

// formOverhead covers the non-file multipart parts of a step request.
const formOverhead = 1024 * 1024

// DefaultRequestBytes is the largest multipart body that a request within
// both file limits can produce.
func (s StorageConfig) DefaultRequestBytes() int64 {
	return int64(s.MaxFiles)*s.MaxFileSize + formOverhead
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Storage.MaxFileSize <= 0 || c.Storage.MaxFiles <= 0 {
		return fmt.Errorf("upload limits must be positive")
	}

	if c.AWS.AccessKeyID != "" && c.AWS.S3Bucket == "" {
		return fmt.Errorf("AWS_S3_BUCKET is required when AWS credentials are set")
	}

	if c.Database.ConnectRetries < 1 {
		return fmt.Errorf("DB_CONNECT_RETRIES must be at least 1")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
