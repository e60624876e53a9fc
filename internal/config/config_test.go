package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "AGENT_ENDPOINT", "AGENT_THREAD_ID", "AGENT_TEMPERATURE", "NATS_URL", "SERVER_WRITE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DefaultAgentEndpoint, cfg.AgentEndpoint)
	assert.Equal(t, DefaultAgentID, cfg.AgentRunID)
	assert.Equal(t, DefaultAgentID, cfg.AgentResourceID)
	assert.Equal(t, DefaultThreadID, cfg.AgentThreadID)
	assert.Equal(t, 2, cfg.AgentMaxRetries)
	assert.Equal(t, 5, cfg.AgentMaxSteps)
	assert.Equal(t, 0.5, cfg.AgentTemperature)
	assert.Equal(t, 1.0, cfg.AgentTopP)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, time.Duration(0), cfg.ServerWriteTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AGENT_THREAD_ID", "thread-42")
	t.Setenv("AGENT_TEMPERATURE", "0.9")
	t.Setenv("AGENT_MAX_STEPS", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "thread-42", cfg.AgentThreadID)
	assert.Equal(t, 0.9, cfg.AgentTemperature)
	assert.Equal(t, 5, cfg.AgentMaxSteps)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestExportLocation(t *testing.T) {
	cfg := &Config{ExportTimezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.ExportLocation())

	cfg.ExportTimezone = "Nowhere/Invalid"
	assert.Equal(t, time.Local, cfg.ExportLocation())
}
