package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers for payment proof images
const (
	StorageDriverNone  = ""
	StorageDriverS3    = "s3"
	StorageDriverMinIO = "minio"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Billing rules
	Billing BillingConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Payment proof storage
	Storage StorageConfig
}

// BillingConfig holds the installment schedule constants
type BillingConfig struct {
	CutoffDay int
	DueDay    int
	Precision int32
}

// RateLimitConfig holds the per-client request budget
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// StorageConfig selects and configures the proof image backend
type StorageConfig struct {
	Driver string
	S3     S3Config
	MinIO  MinIOConfig
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for LocalStack local dev
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),
		Billing: BillingConfig{
			CutoffDay: getEnvInt("SCHEDULE_CUTOFF_DAY", 20),
			DueDay:    getEnvInt("SCHEDULE_DUE_DAY", 10),
			Precision: int32(getEnvInt("CURRENCY_PRECISION", 0)),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverNone)),
			S3: S3Config{
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", "academia-payment-proofs"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS
			},
			MinIO: MinIOConfig{
				Endpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKeyID:     getEnv("MINIO_ACCESS_KEY", ""),
				SecretAccessKey: getEnv("MINIO_SECRET_KEY", ""),
				BucketName:      getEnv("MINIO_BUCKET", "academia-payment-proofs"),
				UseSSL:          getEnvBool("MINIO_USE_SSL", false),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Billing.CutoffDay < 1 || c.Billing.CutoffDay > 31 {
		return fmt.Errorf("SCHEDULE_CUTOFF_DAY must be between 1 and 31")
	}
	if c.Billing.DueDay < 1 || c.Billing.DueDay > 31 {
		return fmt.Errorf("SCHEDULE_DUE_DAY must be between 1 and 31")
	}
	// Money columns are NUMERIC(14,2)
	if c.Billing.Precision < 0 || c.Billing.Precision > 2 {
		return fmt.Errorf("CURRENCY_PRECISION must be between 0 and 2")
	}
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	switch c.Storage.Driver {
	case StorageDriverNone, StorageDriverS3:
	case StorageDriverMinIO:
		if c.Storage.MinIO.AccessKeyID == "" || c.Storage.MinIO.SecretAccessKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
