package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/careerclaw/internal/agent"
	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/correlator"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	httpapi "github.com/nextlevelbuilder/careerclaw/internal/http"
	"github.com/nextlevelbuilder/careerclaw/internal/journal"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
	"github.com/nextlevelbuilder/careerclaw/internal/tracing"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram reply correlator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// services is everything a request needs, shared by serve and ask.
type services struct {
	cfg       *config.Config
	oracle    agent.Oracle
	profiles  *profile.Holder
	store     *escalation.Store
	journal   *journal.Journal
	telegram  *telegram.Channel
	notifier  *channels.Notifier
	pipeline  *agent.Pipeline
	telemetry *tracing.Telemetry
}

func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	s := &services{cfg: cfg}

	tel, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	s.telemetry = tel

	s.profiles, err = profile.NewHolder(cfg.Agent.ProfilePath)
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	oracle, err := buildOracle(ctx, cfg)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	s.oracle = oracle

	var storeOpts []escalation.Option
	if cfg.Journal.Enabled() {
		s.journal, err = journal.Open(ctx, cfg.Journal)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("journal: %w", err)
		}
		storeOpts = append(storeOpts, escalation.WithObserver(s.journal))
		slog.Info("escalation journal enabled", "driver", s.journal.Driver())
	}
	s.store = escalation.NewStore(storeOpts...)

	if tg := cfg.Channels.Telegram; tg.Configured() {
		s.telegram, err = telegram.New(tg)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("telegram: %w", err)
		}
		s.notifier = channels.NewNotifier(s.telegram, tg.SendTimeout())
	} else {
		slog.Warn("telegram not configured: escalations are recorded but nobody is notified")
	}

	s.pipeline = agent.NewPipeline(s.oracle, s.store, s.notifier, s.profiles, agent.Options{
		Threshold:         cfg.Agent.EvaluationThreshold,
		MaxAttempts:       cfg.Agent.MaxRevisionAttempts,
		HandoffMessage:    cfg.Agent.HandoffMessage,
		NotifyNewMessages: cfg.Agent.NotifyNew(),
	})
	return s, nil
}

// close flushes the journal and exporter. Safe on a partially built value.
func (s *services) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if s.journal != nil {
		if err := s.journal.Close(ctx); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}
}

func runServe(ctx context.Context) error {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasAnyProvider() {
		return fmt.Errorf("no LLM provider configured: set CAREERCLAW_LLM_API_KEY or a provider api_key in %s", resolveConfigPath())
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.close(ctx)

	server := httpapi.NewServer(cfg.Gateway, svc.pipeline, svc.store, svc.profiles, Version)
	if svc.journal != nil {
		server.SetJournal(svc.journal)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx)
	})

	if cfg.Agent.WatchProfile {
		g.Go(func() error {
			// A broken watcher only costs hot reload.
			if err := svc.profiles.Watch(gctx); err != nil {
				slog.Warn("profile watcher stopped", "error", err)
			}
			return nil
		})
	}

	if svc.telegram != nil {
		tg := cfg.Channels.Telegram
		corr := correlator.New(svc.telegram, svc.telegram.ChatID(), svc.store,
			agent.NewProfessionalizer(svc.oracle), svc.notifier, correlator.Options{
				PollInterval: tg.PollInterval(),
				PollTimeout:  tg.PollTimeout(),
				StopTimeout:  tg.StopTimeout(),
			})
		if err := corr.Start(gctx); err != nil {
			return fmt.Errorf("start correlator: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			if err := corr.Stop(context.Background()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}

	slog.Info("careerclaw starting",
		"version", Version,
		"profile", svc.profiles.Current().Name(),
		"threshold", cfg.Agent.EvaluationThreshold,
		"max_attempts", cfg.Agent.MaxRevisionAttempts,
		"telegram", svc.telegram != nil,
	)

	err = g.Wait()
	slog.Info("careerclaw stopped", "stats", svc.store.Stats())
	return err
}
