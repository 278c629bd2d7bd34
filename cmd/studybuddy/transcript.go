package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bowerhall/studybuddy/internal/config"
	"github.com/bowerhall/studybuddy/internal/operational"
	"github.com/bowerhall/studybuddy/internal/conversation"
)

func newTranscriptCmd() *cobra.Command {
	var (
		limit int
		del   bool
	)

	cmd := &cobra.Command{
		Use:   "transcript [session]",
		Short: "List archived sessions, or show one session's turns",
		Args:  cobra.MaximumNArgs(1),
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

			store, err := conversation.NewStore(db.DB())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				sessions, err := store.Sessions(ctx)
				if err != nil {
					return err
				}
				printSessions(out, sessions, cfg.Location())
				return nil
			}

			if del {
				if err := store.Clear(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted transcript for %s\n", args[0])
				return nil
			}

			entries, err := store.Recent(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printEntries(out, entries, cfg.Location())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of messages to show")
	cmd.Flags().BoolVar(&del, "delete", false, "delete the session's transcript")
	return cmd
}

func printSessions(out io.Writer, sessions []conversation.SessionInfo, loc *time.Location) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no archived sessions")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tMESSAGES\tLAST")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.SessionID, s.Messages, s.LastAt.In(loc).Format(time.DateTime))
	}
	w.Flush()
}

func printEntries(out io.Writer, entries []conversation.Entry, loc *time.Location) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "no messages")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(out, "[%s] %s (%s)\n%s\n\n", e.CreatedAt.In(loc).Format(time.DateTime), e.Role, e.Mode, e.Content)
	}
}
