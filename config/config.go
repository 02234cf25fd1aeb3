package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreKVRest   = "kvrest"
	StoreBadger   = "badger"
)

// Image backends
const (
	ImageLocal = "local"
	ImageS3    = "s3"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	KVRest   KVRestConfig
	Badger   BadgerConfig
	Image    ImageConfig
	S3       S3Config
	Auth     AuthConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type StoreConfig struct {
	Backend   string
	DataDir   string // used by the file backend
	KeyPrefix string // used by the redis and kvrest backends
	SeedTags  []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KVRestConfig struct {
	URL       string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

type BadgerConfig struct {
	Path string
}

type ImageConfig struct {
	Backend      string
	Dir          string
	PublicPrefix string
	Quality      int
	MaxDimension int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
	Endpoint        string // S3-compatible endpoint override
	UsePathStyle    bool
}

type AuthConfig struct {
	JWTSecret string // empty disables authentication on mutating routes
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Store: StoreConfig{
			Backend:   strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
			DataDir:   getEnv("STORE_DATA_DIR", "./data"),
			KeyPrefix: getEnv("STORE_KEY_PREFIX", "inventory:"),
			SeedTags:  parseSlice(getEnv("STORE_SEED_TAGS", "")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "inventory"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		KVRest: KVRestConfig{
			URL:       getEnv("KV_REST_API_URL", ""),
			Token:     getEnv("KV_REST_API_TOKEN", ""),
			Timeout:   parseDuration(getEnv("KV_REST_TIMEOUT", "5s"), 5*time.Second),
			RateLimit: parseFloat(getEnv("KV_REST_RATE_LIMIT", "0"), 0),
		},
		Badger: BadgerConfig{
			Path: getEnv("BADGER_PATH", "./data/badger"),
		},
		Image: ImageConfig{
			Backend:      strings.ToLower(getEnv("IMAGE_BACKEND", ImageLocal)),
			Dir:          getEnv("IMAGE_DIR", "./uploads"),
			PublicPrefix: getEnv("IMAGE_PUBLIC_PREFIX", "/uploads"),
			Quality:      parseInt(getEnv("IMAGE_QUALITY", "50"), 50),
			MaxDimension: parseInt(getEnv("IMAGE_MAX_DIMENSION", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			UsePathStyle:    getEnv("AWS_S3_PATH_STYLE", "false") == "true",
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first configuration value that cannot be used.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreFile, StorePostgres, StoreRedis, StoreKVRest, StoreBadger:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreKVRest && c.KVRest.URL == "" {
		return fmt.Errorf("KV_REST_API_URL is required for the kvrest backend")
	}

	switch c.Image.Backend {
	case ImageLocal:
	case ImageS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for the s3 image backend")
		}
	default:
		return fmt.Errorf("unknown IMAGE_BACKEND %q", c.Image.Backend)
	}

	if c.Image.Quality < 0 || c.Image.Quality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be between 0 and 100, got %d", c.Image.Quality)
	}
	if c.Image.MaxDimension < 0 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION cannot be negative")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		log.Printf("Invalid number %s, using default %v", s, fallback)
		return fallback
	}
	return f
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
