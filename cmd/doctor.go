package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/journal"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
)

var (
	okLabel   = color.New(color.FgGreen).SprintFunc()
	warnLabel = color.New(color.FgYellow).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) {
	fmt.Println("careerclaw doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(warnLabel(" (NOT FOUND, using defaults + env)"))
	} else {
		fmt.Println(okLabel(" (OK)"))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", failLabel(err))
		return
	}
	masked := cfg.MaskedCopy()

	fmt.Println()
	fmt.Println("  Providers:")
	checkProvider("OpenRouter", masked.Providers.OpenRouter.APIKey)
	checkProvider("Gemini", masked.Providers.Gemini.APIKey)
	checkProvider("OpenAI", masked.Providers.OpenAI.APIKey)
	if !cfg.HasAnyProvider() {
		fmt.Printf("    %s\n", failLabel("no provider configured: the pipeline cannot run"))
	}

	fmt.Println()
	fmt.Println("  Channels:")
	tg := cfg.Channels.Telegram
	checkChannel("Telegram", tg.Enabled, tg.Token != "" && tg.ChatID != "")

	fmt.Println()
	fmt.Println("  Profile:")
	p, err := profile.Load(cfg.Agent.ProfilePath)
	if err != nil {
		fmt.Printf("    %-12s %s\n", "Path:", failLabel(err))
	} else {
		fmt.Printf("    %-12s %s %s\n", "Path:", cfg.Agent.ProfilePath, okLabel("(OK)"))
		fmt.Printf("    %-12s %s\n", "Candidate:", p.Name())
		fmt.Printf("    %-12s %d\n", "Triggers:", len(p.Agent.EscalationTriggers))
	}

	fmt.Println()
	fmt.Println("  Pipeline:")
	fmt.Printf("    %-12s %d\n", "Threshold:", cfg.Agent.EvaluationThreshold)
	fmt.Printf("    %-12s %d\n", "Attempts:", cfg.Agent.MaxRevisionAttempts)
	fmt.Printf("    %-12s %s:%d (auth %v)\n", "Gateway:", cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.Token != "")

	fmt.Println()
	fmt.Println("  Journal:")
	checkJournal(ctx, cfg.Journal)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkProvider(name, maskedKey string) {
	if maskedKey != "" {
		fmt.Printf("    %-12s %s\n", name+":", okLabel(maskedKey))
	} else {
		fmt.Printf("    %-12s (not configured)\n", name+":")
	}
}

func checkChannel(name string, enabled, hasCredentials bool) {
	status := "disabled"
	if enabled && hasCredentials {
		status = okLabel("enabled")
	} else if enabled {
		status = warnLabel("enabled (missing token or chat_id)")
	}
	fmt.Printf("    %-12s %s\n", name+":", status)
}

func checkJournal(ctx context.Context, cfg config.JournalConfig) {
	if !cfg.Enabled() {
		fmt.Printf("    %-12s disabled\n", "Driver:")
		return
	}
	fmt.Printf("    %-12s %s\n", "Driver:", cfg.Driver)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	j, err := journal.Open(ctx, cfg)
	if err != nil {
		fmt.Printf("    %-12s %s\n", "Status:", failLabel("OPEN FAILED ("+err.Error()+")"))
		return
	}
	defer j.Close(ctx)

	entries, err := j.Recent(ctx, 1)
	switch {
	case err != nil:
		fmt.Printf("    %-12s %s\n", "Status:", failLabel("QUERY FAILED ("+err.Error()+")"))
	case len(entries) == 0:
		fmt.Printf("    %-12s %s (no events yet)\n", "Status:", okLabel("OK"))
	default:
		fmt.Printf("    %-12s %s (last event %s)\n", "Status:", okLabel("OK"), entries[0].At.Format(time.RFC3339))
	}
}
