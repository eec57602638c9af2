package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Primary chat-completion provider.
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Secondary provider, tried when the primary reports quota exhaustion.
	// Must speak the same chat-completion protocol.
	FallbackLLMAPIKey  string
	FallbackLLMBaseURL string
	FallbackLLMModel   string

	LLMTimeout    time.Duration
	MaxToolRounds int

	// Availability scan parameters.
	AvailabilityHorizonDays int
	MaxOpenDates            int
	MaxTimesPerDay          int

	// Transcript cache retention for phone-keyed conversations.
	TranscriptTTL time.Duration

	// Per-IP throttle on the assistant endpoint, requests per second.
	// Zero disables it.
	AssistantRateLimit int
	AssistantBurst     int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		FallbackLLMAPIKey:  getEnv("FALLBACK_LLM_API_KEY", ""),
		FallbackLLMBaseURL: getEnv("FALLBACK_LLM_BASE_URL", ""),
		FallbackLLMModel:   getEnv("FALLBACK_LLM_MODEL", ""),

		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		MaxToolRounds: getEnvAsInt("MAX_TOOL_ROUNDS", 5),

		AvailabilityHorizonDays: getEnvAsInt("AVAILABILITY_HORIZON_DAYS", 30),
		MaxOpenDates:            getEnvAsInt("MAX_OPEN_DATES", 5),
		MaxTimesPerDay:          getEnvAsInt("MAX_TIMES_PER_DAY", 20),

		TranscriptTTL: getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),

		AssistantRateLimit: getEnvAsInt("ASSISTANT_RATE_LIMIT", 5),
		AssistantBurst:     getEnvAsInt("ASSISTANT_BURST", 10),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
