package providers

import "context"

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Chat sends messages to the LLM and returns a response.
	// req.Model overrides the default model when set.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "openrouter", "gemini").
	Name() string
}

// Option keys understood by every provider.
const (
	OptTemperature = "temperature"
	OptMaxTokens   = "max_tokens"
)

// ChatRequest contains the input for a Chat call.
type ChatRequest struct {
	Messages       []Message              `json:"messages"`
	Model          string                 `json:"model,omitempty"`
	Options        map[string]interface{} `json:"options,omitempty"`
	ResponseFormat *ResponseFormat        `json:"response_format,omitempty"`
}

// ResponseFormat asks the provider for JSON output matching Schema.
// Providers without structured-output support fall back to plain JSON mode.
type ResponseFormat struct {
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
}

// ChatResponse is the result from an LLM call.
type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"` // "stop", "length", "safety"
	Usage        *Usage `json:"usage,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// temperatureOption extracts the temperature option as float64.
func temperatureOption(opts map[string]interface{}) (float64, bool) {
	switch v := opts[OptTemperature].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
