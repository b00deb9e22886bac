package providers

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider on the native Gemini API.
type GeminiProvider struct {
	models       *genai.Models
	defaultModel string
	retryConfig  RetryConfig
}

func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if defaultModel == "" {
		defaultModel = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{
		models:       client.Models,
		defaultModel: defaultModel,
		retryConfig:  DefaultRetryConfig(),
	}, nil
}

func (p *GeminiProvider) Name() string         { return "gemini" }
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	contents, cfg := buildGeminiRequest(req)

	return RetryDo(ctx, p.retryConfig, func() (*ChatResponse, error) {
		resp, err := p.models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return nil, classifyGeminiError(err)
		}

		result := &ChatResponse{Content: resp.Text(), FinishReason: "stop"}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
			result.FinishReason = "length"
		}
		if u := resp.UsageMetadata; u != nil {
			result.Usage = &Usage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}
		return result, nil
	})
}

// buildGeminiRequest folds system messages into SystemInstruction and maps
// assistant turns to the "model" role.
func buildGeminiRequest(req ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	var system []*genai.Part
	var contents []*genai.Content

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, &genai.Part{Text: m.Content})
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	if t, ok := temperatureOption(req.Options); ok {
		cfg.Temperature = genai.Ptr(float32(t))
	}
	if v, ok := req.Options[OptMaxTokens].(int); ok && v > 0 {
		cfg.MaxOutputTokens = int32(v)
	}
	if req.ResponseFormat != nil {
		cfg.ResponseMIMEType = "application/json"
		if req.ResponseFormat.Schema != nil {
			cfg.ResponseJsonSchema = req.ResponseFormat.Schema
		}
	}
	return contents, cfg
}

// classifyGeminiError turns SDK errors into HTTPError so RetryDo and
// ErrUpstreamUnavailable behave the same as for the HTTP providers.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.Code, Body: "gemini: " + apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &HTTPError{Status: apiErrPtr.Code, Body: "gemini: " + apiErrPtr.Message}
	}
	return fmt.Errorf("gemini: %w: %w", errTransport, err)
}
