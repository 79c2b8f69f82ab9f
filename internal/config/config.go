package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	AWS      AWSConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Scanner  ScannerConfig
}

// DatabaseConfig holds the optional reading index database
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string `validate:"required,numeric"`
	Env            string
	AllowedOrigins []string
	PublicURL      string `validate:"required,url"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level   string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	Console bool
}

// StorageConfig selects where uploaded readings are written
type StorageConfig struct {
	Backend   string `validate:"oneof=fs s3"`
	UploadDir string `validate:"required"`
}

// AWSConfig holds AWS/S3 configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
}

// CacheConfig holds suggestion cache snapshot configuration
type CacheConfig struct {
	Sink             string        `validate:"oneof=file redis"`
	SnapshotPath     string        `validate:"required"`
	SnapshotInterval time.Duration `validate:"gt=0"`
}

// RedisConfig holds the redis snapshot sink configuration
type RedisConfig struct {
	Addr string
	Key  string `validate:"required"`
}

// ScannerConfig holds the scanning agent configuration
type ScannerConfig struct {
	ServerURL string        `validate:"required,url"`
	Interval  time.Duration `validate:"gt=0"`
	Interface string
	Locale    string
}

var validate = validator.New()

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("PORT", "9999")
	viper.SetDefault("ENVIRONMENT", "dev")
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("PUBLIC_URL", "http://0.0.0.0:9999")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_CONSOLE", true)
	viper.SetDefault("STORAGE_BACKEND", "fs")
	viper.SetDefault("UPLOAD_DIR", "upload")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ACCESS_KEY_ID", "")
	viper.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("CACHE_SINK", "file")
	viper.SetDefault("CACHE_SNAPSHOT_PATH", "upload/cache")
	viper.SetDefault("CACHE_SNAPSHOT_INTERVAL", "30s")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_KEY", "apscanner:cache")
	viper.SetDefault("SERVER_URL", "http://0.0.0.0:9999")
	viper.SetDefault("SCAN_INTERVAL", "5m")
	viper.SetDefault("SCAN_INTERFACE", "")
	viper.SetDefault("LOCALE", "")

	// Read from .env files based on environment
	env := viper.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// file may not exist
	_ = viper.ReadInConfig()

	// Environment variables override .env file values
	viper.AutomaticEnv()

	var config Config
	config.Database.URL = viper.GetString("DATABASE_URL")
	config.Server.Port = viper.GetString("PORT")
	config.Server.Env = viper.GetString("ENVIRONMENT")
	config.Server.AllowedOrigins = splitList(viper.GetString("ALLOWED_ORIGINS"))
	config.Server.PublicURL = strings.TrimRight(viper.GetString("PUBLIC_URL"), "/")
	config.Log.Level = strings.ToLower(viper.GetString("LOG_LEVEL"))
	config.Log.Console = viper.GetBool("LOG_CONSOLE")
	config.Storage.Backend = strings.ToLower(viper.GetString("STORAGE_BACKEND"))
	config.Storage.UploadDir = viper.GetString("UPLOAD_DIR")
	config.AWS.Region = viper.GetString("AWS_REGION")
	config.AWS.AccessKeyID = viper.GetString("AWS_ACCESS_KEY_ID")
	config.AWS.SecretAccessKey = viper.GetString("AWS_SECRET_ACCESS_KEY")
	config.AWS.S3Bucket = viper.GetString("S3_BUCKET")
	config.AWS.S3Endpoint = viper.GetString("S3_ENDPOINT")
	config.Cache.Sink = strings.ToLower(viper.GetString("CACHE_SINK"))
	config.Cache.SnapshotPath = viper.GetString("CACHE_SNAPSHOT_PATH")
	config.Cache.SnapshotInterval = viper.GetDuration("CACHE_SNAPSHOT_INTERVAL")
	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Key = viper.GetString("REDIS_KEY")
	config.Scanner.ServerURL = strings.TrimRight(viper.GetString("SERVER_URL"), "/")
	config.Scanner.Interval = viper.GetDuration("SCAN_INTERVAL")
	config.Scanner.Interface = viper.GetString("SCAN_INTERFACE")
	config.Scanner.Locale = viper.GetString("LOCALE")

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Storage.Backend == "s3" && config.AWS.S3Bucket == "" {
		return nil, fmt.Errorf("invalid configuration: S3_BUCKET is required when STORAGE_BACKEND is s3")
	}

	log.Debug().
		Str("environment", config.Server.Env).
		Str("storage_backend", config.Storage.Backend).
		Str("cache_sink", config.Cache.Sink).
		Bool("database", config.Database.URL != "").
		Msg("Configuration loaded")

	return &config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
