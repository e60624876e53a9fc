// Package config provides environment configuration for the chat gateway.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Default agent deployment identifiers.
const (
	DefaultAgentEndpoint = "https://brief-thousands-sunset-9fcb1c78-485f-4967-ac04-2759a8fa1462.mastra.cloud/api/agents/weatherAgent/stream"
	DefaultAgentID       = "weatherAgent"
	DefaultThreadID      = "TU3F2122167"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Agent settings, fixed per deployment
	AgentEndpoint    string
	AgentRunID       string
	AgentResourceID  string
	AgentThreadID    string
	AgentMaxRetries  int
	AgentMaxSteps    int
	AgentTemperature float64
	AgentTopP        float64
	AgentLabel       string

	// Export
	ExportTimezone string

	// NATS settings, publishing is disabled when NATSURL is empty
	NATSURL           string
	NATSSubjectPrefix string
	NATSCAFile        string
	NATSCertFile      string
	NATSKeyFile       string
	NATSToken         string

	// CORS origins, empty allows any http(s) origin
	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:        getEnv("PORT", "8080"),
		ServerReadTimeout: getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		// Responses are long-lived streams; zero disables the write deadline.
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),

		// Agent
		AgentEndpoint:    getEnv("AGENT_ENDPOINT", DefaultAgentEndpoint),
		AgentRunID:       getEnv("AGENT_RUN_ID", DefaultAgentID),
		AgentResourceID:  getEnv("AGENT_RESOURCE_ID", DefaultAgentID),
		AgentThreadID:    getEnv("AGENT_THREAD_ID", DefaultThreadID),
		AgentMaxRetries:  getIntEnv("AGENT_MAX_RETRIES", 2),
		AgentMaxSteps:    getIntEnv("AGENT_MAX_STEPS", 5),
		AgentTemperature: getFloatEnv("AGENT_TEMPERATURE", 0.5),
		AgentTopP:        getFloatEnv("AGENT_TOP_P", 1),
		AgentLabel:       getEnv("AGENT_LABEL", "Agent"),

		// Export
		ExportTimezone: getEnv("EXPORT_TIMEZONE", "Local"),

		// NATS
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chat"),
		NATSCAFile:        getEnv("NATS_CA_FILE", ""),
		NATSCertFile:      getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:       getEnv("NATS_KEY_FILE", ""),
		NATSToken:         getEnv("NATS_TOKEN", ""),

		// CORS
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// ExportLocation resolves ExportTimezone, falling back to the local zone.
func (c *Config) ExportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ExportTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
