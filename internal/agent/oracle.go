package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

const tracerName = "github.com/nextlevelbuilder/careerclaw/internal/agent"

// Stage names the pipeline step an oracle call belongs to.
type Stage string

const (
	StageGate            Stage = "gate"
	StageRespond         Stage = "respond"
	StageEvaluate        Stage = "evaluate"
	StageProfessionalize Stage = "professionalize"
)

// GenerateRequest is one text generation call.
type GenerateRequest struct {
	Stage       Stage
	System      string
	Prompt      string
	Temperature float64
	// JSON requests structured output; nil means free text.
	JSON *providers.ResponseFormat
}

// Oracle produces text for a prompt. Implementations must honor ctx.
type Oracle interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f OracleFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// ProviderOracle runs oracle calls on an LLM provider with a per-call timeout.
type ProviderOracle struct {
	provider providers.Provider
	model    string
	timeout  time.Duration
	tracer   trace.Tracer
}

func NewProviderOracle(p providers.Provider, model string, timeout time.Duration) *ProviderOracle {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ProviderOracle{
		provider: p,
		model:    model,
		timeout:  timeout,
		tracer:   otel.Tracer(tracerName),
	}
}

func (o *ProviderOracle) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	model := o.model
	if model == "" {
		model = o.provider.DefaultModel()
	}
	ctx, span := o.tracer.Start(ctx, "llm."+string(req.Stage), trace.WithAttributes(
		attribute.String("llm.provider", o.provider.Name()),
		attribute.String("llm.model", model),
		attribute.Float64("llm.temperature", req.Temperature),
	))
	defer span.End()

	var msgs []providers.Message
	if req.System != "" {
		msgs = append(msgs, providers.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, providers.Message{Role: "user", Content: req.Prompt})

	start := time.Now()
	resp, err := o.provider.Chat(ctx, providers.ChatRequest{
		Messages:       msgs,
		Model:          o.model,
		Options:        map[string]interface{}{providers.OptTemperature: req.Temperature},
		ResponseFormat: req.JSON,
	})
	if err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("%s: %w", req.Stage, err)
	}

	if resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
			attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	slog.DebugContext(ctx, "llm call completed",
		"stage", req.Stage,
		"provider", o.provider.Name(),
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", resp.FinishReason)

	return resp.Content, nil
}
