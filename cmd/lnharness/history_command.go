package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lnharness/internal/history"
)

type historyRow struct {
	ID         int64     `json:"id"`
	LaunchID   string    `json:"launch_id"`
	Attempt    int       `json:"attempt"`
	Kind       string    `json:"kind"`
	PID        int       `json:"pid"`
	Status     string    `json:"status,omitempty"`
	WorkDir    string    `json:"work_dir,omitempty"`
	Persistent bool      `json:"persistent"`
	Polls      int       `json:"polls"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		launchID   string
		pruneAfter time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launch events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open launch history: %w", err)
			}
			defer store.Close()

			if pruneAfter > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-pruneAfter))
				if err != nil {
					return err
				}
				if !jsonOutput {
					fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d event(s) older than %s\n", removed, pruneAfter)
				}
			}

			var records []history.Record
			if launchID != "" {
				records, err = store.Launch(cmd.Context(), launchID)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			rows := make([]historyRow, 0, len(records))
			for _, r := range records {
				rows = append(rows, historyRow{
					ID:         r.ID,
					LaunchID:   r.LaunchID,
					Attempt:    r.Attempt,
					Kind:       r.Kind,
					PID:        r.PID,
					Status:     r.Status(),
					WorkDir:    r.WorkDir,
					Persistent: r.Persistent,
					Polls:      r.Polls,
					ElapsedMS:  r.Elapsed.Milliseconds(),
					Error:      r.Error,
					CreatedAt:  r.CreatedAt,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No launch events recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(rows))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&limit, "limit", "n", 20, "Number of events to show (0 for all)")
	flags.StringVar(&launchID, "launch", "", "Show every event of one launch, oldest first")
	flags.DurationVar(&pruneAfter, "prune-older-than", 0, "Delete events older than this before listing")
	flags.BoolVar(&jsonOutput, "json", false, "Print events as JSON")
	return cmd
}

func renderHistoryTable(rows []historyRow) string {
	headers := []string{"Time", "Launch", "Attempt", "Event", "PID", "Status", "Polls", "Elapsed"}
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		body = append(body, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			shortLaunchID(r.LaunchID),
			strconv.Itoa(r.Attempt),
			r.Kind,
			strconv.Itoa(r.PID),
			r.Status,
			strconv.Itoa(r.Polls),
			(time.Duration(r.ElapsedMS) * time.Millisecond).String(),
		})
	}
	return renderTable(headers, body, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight})
}

func shortLaunchID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
