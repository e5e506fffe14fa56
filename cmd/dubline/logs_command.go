package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dubline/internal/logging"
	"dubline/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the dubline log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := logging.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			if opts.FilePath == "" {
				return errors.New("no log file configured; set logging.file or paths.log_dir")
			}

			var matchers []logs.Matcher
			if id := strings.TrimSpace(runID); id != "" {
				matchers = append(matchers, logs.FieldEquals(logging.FieldRunID, id))
			}
			if id := strings.TrimSpace(jobID); id != "" {
				matchers = append(matchers, logs.FieldEquals(logging.FieldJobID, id))
			}
			var match logs.Matcher
			if len(matchers) > 0 {
				match = logs.All(matchers...)
			}

			runCtx := cmd.Context()
			if follow {
				var cancel context.CancelFunc
				runCtx, cancel = signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			result, err := logs.Tail(runCtx, opts.FilePath, logs.TailOptions{Offset: -1, Limit: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			for follow {
				result, err = logs.Tail(runCtx, opts.FilePath, logs.TailOptions{
					Offset: result.Offset,
					Follow: true,
					Wait:   2 * time.Second,
					Match:  match,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only lines from this run")
	cmd.Flags().StringVar(&jobID, "job", "", "Only lines from this job")
	return cmd
}
