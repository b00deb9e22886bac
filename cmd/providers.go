package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/careerclaw/internal/agent"
	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

func registerProviders(ctx context.Context, registry *providers.Registry, cfg *config.Config) {
	if cfg.Providers.OpenRouter.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("openrouter", cfg.Providers.OpenRouter.APIKey, "https://openrouter.ai/api/v1", "google/gemini-2.5-flash"))
		slog.Info("registered provider", "name", "openrouter")
	}

	if cfg.Providers.Gemini.APIKey != "" {
		gemini, err := providers.NewGeminiProvider(ctx, cfg.Providers.Gemini.APIKey, "")
		if err != nil {
			slog.Warn("gemini provider unavailable", "error", err)
		} else {
			registry.Register(gemini)
			slog.Info("registered provider", "name", "gemini")
		}
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		registry.Register(providers.NewOpenAIProvider("openai", cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, "gpt-4o-mini"))
		slog.Info("registered provider", "name", "openai")
	}
}

// buildOracle selects the configured provider and wraps it for the pipeline.
func buildOracle(ctx context.Context, cfg *config.Config) (*agent.ProviderOracle, error) {
	registry := providers.NewRegistry()
	registerProviders(ctx, registry, cfg)

	p, err := registry.Select(cfg.Agent.Provider)
	if err != nil {
		return nil, fmt.Errorf("select provider: %w", err)
	}
	slog.Info("using provider", "name", p.Name(), "model", modelOrDefault(cfg.Agent.Model, p.DefaultModel()))
	return agent.NewProviderOracle(p, cfg.Agent.Model, cfg.Agent.Timeout()), nil
}

func modelOrDefault(model, def string) string {
	if model != "" {
		return model
	}
	return def
}
