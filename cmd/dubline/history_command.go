package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dubline/internal/job"
	"dubline/internal/queue"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, or the jobs of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if strings.TrimSpace(runID) == "" && strings.TrimSpace(status) == "" {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Jobs", "Succeeded", "Failed", "Started", "Updated"},
					runRows(runs),
					1, 2, 3,
				))
				return nil
			}

			entries, err := store.List(cmd.Context(), queue.Filter{
				RunID:  strings.TrimSpace(runID),
				Status: job.Status(strings.TrimSpace(status)),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs match")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Job", "Title", "Status", "Stage", "Progress", "Attempts", "Output / Error"},
				entryRows(entries),
				5, 6,
			))
			return nil
		},
	}

	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.Flags().StringVar(&runID, "run", "", "Show the jobs of this run")
	cmd.Flags().StringVar(&status, "status", "", "Only jobs with this status (pending, running, success, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history rows older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history rows\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Remove rows last updated before this age")
	return cmd
}

func runRows(runs []queue.RunSummary) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			strconv.Itoa(r.Jobs),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			formatTimestamp(r.StartedAt),
			formatTimestamp(r.UpdatedAt),
		})
	}
	return rows
}

func entryRows(entries []queue.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.OutputPath
		if e.Failed() && e.ErrorMessage != "" {
			detail = e.ErrorMessage
			if e.ErrorCategory != "" {
				detail = fmt.Sprintf("[%s] %s", e.ErrorCategory, e.ErrorMessage)
			}
		}
		rows = append(rows, []string{
			shortRunID(e.RunID),
			e.JobKey,
			e.Title,
			string(e.Status),
			e.Stage,
			fmt.Sprintf("%d%%", e.ProgressPercent),
			strconv.Itoa(e.Attempts),
			detail,
		})
	}
	return rows
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
