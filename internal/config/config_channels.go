package config

import (
	"strings"
	"time"
)

// ChannelsConfig holds the notification channel settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled        bool   `json:"enabled"`
	Token          string `json:"token"`
	ChatID         string `json:"chat_id"`                    // the human's chat; replies from other chats are ignored
	Proxy          string `json:"proxy,omitempty"`
	APIServer      string `json:"api_server,omitempty"`       // Bot API base URL override (self-hosted server, tests)
	PollIntervalMs int    `json:"poll_interval_ms,omitempty"` // pause between poll cycles (default 2000)
	PollTimeoutSec int    `json:"poll_timeout_sec,omitempty"` // long-poll wait per request (default 10)
	StopTimeoutSec int    `json:"stop_timeout_sec,omitempty"` // max wait for the poller on shutdown (default 5)
	SendTimeoutSec int    `json:"send_timeout_sec,omitempty"` // per outbound message (default 10)
}

func (t TelegramConfig) PollInterval() time.Duration {
	if t.PollIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

func (t TelegramConfig) PollTimeout() time.Duration {
	if t.PollTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(t.PollTimeoutSec) * time.Second
}

func (t TelegramConfig) StopTimeout() time.Duration {
	if t.StopTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.StopTimeoutSec) * time.Second
}

func (t TelegramConfig) SendTimeout() time.Duration {
	if t.SendTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(t.SendTimeoutSec) * time.Second
}

// Configured reports whether the channel has enough settings to run.
func (t TelegramConfig) Configured() bool {
	return t.Enabled && t.Token != "" && t.ChatID != ""
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig `json:"openrouter"`
	OpenAI     ProviderConfig `json:"openai"`
	Gemini     ProviderConfig `json:"gemini"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base,omitempty"`
}

// HasAnyProvider returns true if at least one provider has an API key configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.OpenRouter.APIKey != "" ||
		p.OpenAI.APIKey != "" ||
		p.Gemini.APIKey != ""
}

// assignLLMKey routes a single shared key to the provider its prefix identifies.
// OpenRouter keys start with "sk-or"; anything else is treated as a Gemini key.
func (c *Config) assignLLMKey(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	if strings.HasPrefix(key, "sk-or") {
		if c.Providers.OpenRouter.APIKey == "" {
			c.Providers.OpenRouter.APIKey = key
		}
		return
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = key
	}
}

// GatewayConfig controls the HTTP surface.
type GatewayConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Token           string `json:"token,omitempty"`             // bearer token for HTTP auth (empty = open)
	MaxMessageChars int    `json:"max_message_chars,omitempty"` // max employer message characters (default 8000)
	RateLimitRPM    int    `json:"rate_limit_rpm,omitempty"`    // requests per minute per sender (default 20, 0 = disabled)
}
