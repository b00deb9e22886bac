package config

import (
	"time"
)

// Config is the root configuration for the careerclaw service.
type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// AgentConfig controls the reply pipeline.
type AgentConfig struct {
	EvaluationThreshold int    `json:"evaluation_threshold"`            // minimum total score for approval (default 70)
	MaxRevisionAttempts int    `json:"max_revision_attempts"`           // generate/evaluate rounds (default 3, min 1)
	ProfilePath         string `json:"profile_path"`                    // candidate profile JSON (default "profile.json")
	HandoffMessage      string `json:"handoff_message,omitempty"`       // placeholder returned to the employer on escalation
	Provider            string `json:"provider,omitempty"`              // "openrouter", "gemini", "openai"; empty = auto
	Model               string `json:"model,omitempty"`                 // overrides the provider default
	TimeoutSec          int    `json:"timeout_sec,omitempty"`           // per oracle call (default 60)
	WatchProfile        bool   `json:"watch_profile,omitempty"`         // reload profile on file change
	NotifyNewMessages   *bool  `json:"notify_new_messages,omitempty"`   // ping the human for every inbound message (default true)
}

// Timeout returns the per-call oracle timeout.
func (a AgentConfig) Timeout() time.Duration {
	if a.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSec) * time.Second
}

// NotifyNew reports whether new-message notifications are enabled.
func (a AgentConfig) NotifyNew() bool {
	return a.NotifyNewMessages == nil || *a.NotifyNewMessages
}

// JournalConfig configures the optional escalation audit journal.
// PostgresDSN is never read from the config file, only from CAREERCLAW_POSTGRES_DSN.
type JournalConfig struct {
	Driver      string `json:"driver,omitempty"` // "", "sqlite" or "postgres"; empty disables the journal
	Path        string `json:"path,omitempty"`   // sqlite database file (default "careerclaw.db")
	PostgresDSN string `json:"-"`
	BufferSize  int    `json:"buffer_size,omitempty"` // async write queue (default 256)
}

// Enabled reports whether a journal driver is configured.
func (j JournalConfig) Enabled() bool {
	return j.Driver != ""
}

// TelemetryConfig configures OpenTelemetry export for traces and spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "careerclaw"
	Headers     map[string]string `json:"headers,omitempty"`
}

// MaskedCopy returns a copy with secrets replaced, for display.
func (c *Config) MaskedCopy() *Config {
	cp := *c
	cp.Providers.OpenRouter.APIKey = maskSecret(c.Providers.OpenRouter.APIKey)
	cp.Providers.OpenAI.APIKey = maskSecret(c.Providers.OpenAI.APIKey)
	cp.Providers.Gemini.APIKey = maskSecret(c.Providers.Gemini.APIKey)
	cp.Channels.Telegram.Token = maskSecret(c.Channels.Telegram.Token)
	cp.Gateway.Token = maskSecret(c.Gateway.Token)
	cp.Journal.PostgresDSN = maskSecret(c.Journal.PostgresDSN)
	return &cp
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****" + s[len(s)-2:]
	}
}
