package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// DefaultHandoffMessage is returned to the employer while the candidate is consulted.
const DefaultHandoffMessage = "Mesajınız için teşekkür ederim. Bu konu, benim asistan olarak yetki alanımın " +
	"dışında kalıyor ve adayın kendisinin doğrudan yanıtlaması gereken detaylar " +
	"içeriyor. Konuyu kendisine iletiyorum; en kısa sürede size dönüş yapacaktır."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			EvaluationThreshold: 70,
			MaxRevisionAttempts: 3,
			ProfilePath:         "profile.json",
			HandoffMessage:      DefaultHandoffMessage,
			TimeoutSec:          60,
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				PollIntervalMs: 2000,
				PollTimeoutSec: 10,
				StopTimeoutSec: 5,
				SendTimeoutSec: 10,
			},
		},
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			MaxMessageChars: 8000,
			RateLimitRPM:    20,
		},
		Journal: JournalConfig{
			Path:       "careerclaw.db",
			BufferSize: 256,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "careerclaw",
		},
	}
}

// Load reads config from a JSON5 file, then overlays .env and environment variables.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

// loadDotEnv populates the process environment from a .env file next to the
// config. Variables already set in the environment win.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "path", path, "error", err)
	}
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	envStr("CAREERCLAW_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("CAREERCLAW_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("CAREERCLAW_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	c.assignLLMKey(os.Getenv("CAREERCLAW_LLM_API_KEY"))

	envStr("CAREERCLAW_PROVIDER", &c.Agent.Provider)
	envStr("CAREERCLAW_MODEL", &c.Agent.Model)
	envStr("CAREERCLAW_PROFILE", &c.Agent.ProfilePath)
	envInt("CAREERCLAW_EVALUATION_THRESHOLD", &c.Agent.EvaluationThreshold)
	envInt("CAREERCLAW_MAX_REVISION_ATTEMPTS", &c.Agent.MaxRevisionAttempts)

	envStr("CAREERCLAW_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("CAREERCLAW_TELEGRAM_CHAT_ID", &c.Channels.Telegram.ChatID)
	envStr("CAREERCLAW_TELEGRAM_PROXY", &c.Channels.Telegram.Proxy)
	// Auto-enable the channel if credentials are provided via env
	if os.Getenv("CAREERCLAW_TELEGRAM_TOKEN") != "" && c.Channels.Telegram.ChatID != "" {
		c.Channels.Telegram.Enabled = true
	}

	envStr("CAREERCLAW_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("CAREERCLAW_HOST", &c.Gateway.Host)
	if v := os.Getenv("CAREERCLAW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("CAREERCLAW_JOURNAL_DRIVER", &c.Journal.Driver)
	envStr("CAREERCLAW_JOURNAL_PATH", &c.Journal.Path)
	envStr("CAREERCLAW_POSTGRES_DSN", &c.Journal.PostgresDSN)

	envBool("CAREERCLAW_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envStr("CAREERCLAW_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("CAREERCLAW_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("CAREERCLAW_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("CAREERCLAW_TELEMETRY_INSECURE", &c.Telemetry.Insecure)
}

// normalize clamps values the pipeline cannot run with.
func (c *Config) normalize() {
	if c.Agent.MaxRevisionAttempts < 1 {
		c.Agent.MaxRevisionAttempts = 1
	}
	if c.Agent.EvaluationThreshold < 0 {
		c.Agent.EvaluationThreshold = 0
	}
	if c.Agent.EvaluationThreshold > 100 {
		c.Agent.EvaluationThreshold = 100
	}
	if c.Agent.HandoffMessage == "" {
		c.Agent.HandoffMessage = DefaultHandoffMessage
	}
	if c.Journal.Driver == "postgres" && c.Journal.PostgresDSN == "" {
		slog.Warn("journal driver is postgres but CAREERCLAW_POSTGRES_DSN is not set; journal disabled")
		c.Journal.Driver = ""
	}
}
