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
// It is the single source of truth for runtime parameters of both binaries.
type Config struct {
	Port string
	Env  string

	DB     DatabaseConfig
	Redis  RedisConfig
	Crawl  CrawlConfig
	Line   LineConfig
	ECS    ECSConfig
	Worker WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CrawlConfig contains parameters for one crawl run.
type CrawlConfig struct {
	StartURL     string
	FetchTimeout time.Duration
	Workers      int
	Headless     bool
	BrowserBin   string
}

// LineConfig contains credentials for the LINE Messaging API.
type LineConfig struct {
	ChannelToken string
}

// ECSConfig contains parameters for launching crawl runs on Fargate.
type ECSConfig struct {
	Region         string
	Cluster        string
	TaskFamily     string
	Subnets        []string
	SecurityGroups []string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	CrawlInterval time.Duration
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
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Crawl
	cfg.Crawl = CrawlConfig{
		StartURL:   getEnv("CRAWL_START_URL", "https://www.dell.com/ja-jp/shop/dell-laptops/scr/laptops"),
		Workers:    getEnvInt("CRAWL_WORKERS", 4),
		Headless:   getEnv("CRAWL_HEADLESS", "true") == "true",
		BrowserBin: getEnv("CRAWL_BROWSER_BIN", ""),
	}

	// LINE Messaging API
	cfg.Line = LineConfig{
		ChannelToken: getEnv("LINE_CHANNEL_TOKEN", ""),
	}

	// ECS (crawl run launcher)
	cfg.ECS = ECSConfig{
		Region:         getEnv("AWS_REGION", "ap-northeast-1"),
		Cluster:        getEnv("ECS_CLUSTER", ""),
		TaskFamily:     getEnv("ECS_TASK_FAMILY", ""),
		Subnets:        splitCSV(getEnv("ECS_SUBNETS", "")),
		SecurityGroups: splitCSV(getEnv("ECS_SECURITY_GROUPS", "")),
	}

	// Durations
	var err error
	if cfg.Crawl.FetchTimeout, err = parseDurationEnv("CRAWL_FETCH_TIMEOUT", "45s"); err != nil {
		return nil, fmt.Errorf("invalid CRAWL_FETCH_TIMEOUT: %w", err)
	}
	if cfg.Worker.CrawlInterval, err = parseDurationEnv("CRAWL_INTERVAL", "0s"); err != nil {
		return nil, fmt.Errorf("invalid CRAWL_INTERVAL: %w", err)
	}

	if cfg.Crawl.Workers <= 0 {
		cfg.Crawl.Workers = 1
	}

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	return cfg, nil
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

// splitCSV splits a comma-separated list, dropping empty entries.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
