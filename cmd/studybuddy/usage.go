package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bowerhall/studybuddy/internal/budget"
	"github.com/bowerhall/studybuddy/internal/config"
	"github.com/bowerhall/studybuddy/internal/operational"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show model token usage and estimated cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := operational.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			store, err := budget.NewStore(db.DB(), cfg.Location())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			today, err := store.Today(ctx)
			if err != nil {
				return err
			}
			month, err := store.ThisMonth(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Today: %d requests, %d tokens, $%.4f\n", today.TotalRequests, today.TotalTokens(), today.TotalCostUSD)
			if cfg.Budget.Enabled {
				fmt.Fprintf(out, "Daily limit: %d tokens\n", cfg.Budget.DailyLimit)
			}
			fmt.Fprintf(out, "This month: %d requests, %d tokens, $%.4f\n", month.TotalRequests, month.TotalTokens(), month.TotalCostUSD)

			now := time.Now().In(cfg.Location())
			from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
			breakdown, err := store.BreakdownByModel(ctx, from, now)
			if err != nil {
				return err
			}
			if len(breakdown) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tINPUT\tOUTPUT\tCOST")
			for _, b := range breakdown {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t$%.4f\n", b.Model, b.Requests, b.InputTokens, b.OutputTokens, b.CostUSD)
			}
			return w.Flush()
		},
	}
}
