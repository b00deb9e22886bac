package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/careerclaw/internal/config"
)

func askCmd() *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run one employer message through the pipeline and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx := cmd.Context()

			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			svc, err := buildServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			res, err := svc.pipeline.Process(ctx, strings.Join(args, " "), sender)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "who sent the message (default: Unknown)")
	return cmd
}
