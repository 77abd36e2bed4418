package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AnalysisConfig holds settings for the external analysis service
type AnalysisConfig struct {
	BaseURL         string        `json:"baseUrl"`
	SubmitTimeout   time.Duration `json:"submitTimeout"`
	HealthTimeout   time.Duration `json:"healthTimeout"`
	ProgressCadence time.Duration `json:"progressCadence"`
}

// Config holds all process configuration
type Config struct {
	Port         string        `json:"port"`
	LogMode      string        `json:"logMode"`
	MongoURI     string        `json:"-"`
	MongoDB      string        `json:"mongoDb"`
	RedisAddr    string        `json:"redisAddr"`
	JWTSecret    string        `json:"-"` // Never serialize
	SessionTTL   time.Duration `json:"sessionTtl"`
	SessionSweep time.Duration `json:"sessionSweep"` // idle eviction interval

	Analysis AnalysisConfig `json:"analysis"`
}

// Load reads an optional .env file and then the environment. Variables already set in the
// environment take precedence over the file.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the environment only
func FromEnv() *Config {
	def := DefaultAnalysisConfig()
	return &Config{
		Port:         getEnvOrDefault("PORT", "8080"),
		LogMode:      getEnvOrDefault("LOG_MODE", "dev"),
		MongoURI:     getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnvOrDefault("MONGO_DB", "okrdrift"),
		RedisAddr:    redisAddr(getEnvOrDefault("REDIS_URI", "localhost:6379")),
		JWTSecret:    getEnvOrDefault("JWT_SECRET", "super-secret-key-change-in-production"),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionSweep: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		Analysis: AnalysisConfig{
			BaseURL:         strings.TrimRight(getEnvOrDefault("ANALYSIS_BASE_URL", def.BaseURL), "/"),
			SubmitTimeout:   getEnvDuration("ANALYSIS_SUBMIT_TIMEOUT", def.SubmitTimeout),
			HealthTimeout:   getEnvDuration("ANALYSIS_HEALTH_TIMEOUT", def.HealthTimeout),
			ProgressCadence: getEnvDuration("ANALYSIS_PROGRESS_CADENCE", def.ProgressCadence),
		},
	}
}

// DefaultAnalysisConfig returns the analysis settings with no environment applied
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		BaseURL:         "http://localhost:8000",
		SubmitTimeout:   15 * time.Second,
		HealthTimeout:   5 * time.Second,
		ProgressCadence: 350 * time.Millisecond,
	}
}

// redisAddr strips the redis:// scheme go-redis Options.Addr does not accept
func redisAddr(uri string) string {
	return strings.TrimPrefix(uri, "redis://")
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

// getEnvDuration accepts a Go duration ("15s") or a bare integer of milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms := getEnvInt(key, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
