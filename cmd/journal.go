package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/careerclaw/internal/journal"
)

func journalCmd() *cobra.Command {
	var (
		limit        int
		escalationID string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent escalation events from the audit journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			jcfg, err := resolveJournalConfig()
			if err != nil {
				return err
			}
			j, err := journal.Open(ctx, jcfg)
			if err != nil {
				return err
			}
			defer j.Close(ctx)

			var entries []journal.Entry
			if escalationID != "" {
				entries, err = j.History(ctx, escalationID)
			} else {
				entries, err = j.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Println("no events")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tESCALATION\tEVENT\tSTATUS\tCATEGORY\tSOURCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.At.Local().Format(time.DateTime), e.EscalationID, e.Type, e.Status, e.Category, e.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of events to show")
	cmd.Flags().StringVar(&escalationID, "id", "", "show the full history of one escalation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}
