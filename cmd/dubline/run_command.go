package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/models"
	"dubline/internal/notifications"
	"dubline/internal/preflight"
	"dubline/internal/queue"
	"dubline/internal/stages"
	"dubline/internal/workflow"
)

type runOptions struct {
	file         string
	urls         []string
	count        int
	workDir      string
	plain        bool
	skipLLMCheck bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [SOURCE...]",
		Short: "Dub a local video or remote videos",
		Long: "Process sources through download, separation, transcription, translation,\n" +
			"synthesis and assembly. A SOURCE naming an existing file runs one local job;\n" +
			"anything else is treated as remote locators separated by commas.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := buildRunRequest(args, opts)
			if err != nil {
				return err
			}
			return runDubbing(cmd, ctx, cfg, req, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Local video file to dub")
	cmd.Flags().StringArrayVarP(&opts.urls, "url", "u", nil, "Remote video, playlist or channel locator (repeatable)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Maximum videos to expand remote locators to (default: download.video_count)")
	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "Override the job working root")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Print progress lines instead of a progress bar")
	cmd.Flags().BoolVar(&opts.skipLLMCheck, "skip-llm-check", false, "Skip the translation backend health probe")
	return cmd
}

// buildRunRequest turns flags and positional arguments into a request.
// Explicit flags become tagged sources; positional arguments go through
// the free-form parser one at a time.
func buildRunRequest(args []string, opts runOptions) (workflow.Request, error) {
	req := workflow.Request{Count: opts.count}
	if strings.TrimSpace(opts.workDir) != "" {
		root, err := config.ExpandPath(strings.TrimSpace(opts.workDir))
		if err != nil {
			return workflow.Request{}, fmt.Errorf("resolve work dir: %w", err)
		}
		req.WorkRoot = root
	}

	var sources []job.Source
	if file := strings.TrimSpace(opts.file); file != "" {
		path, err := config.ExpandPath(file)
		if err != nil {
			return workflow.Request{}, fmt.Errorf("resolve file: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return workflow.Request{}, fmt.Errorf("inspect file %q: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return workflow.Request{}, fmt.Errorf("%s is not a regular file", path)
		}
		sources = append(sources, job.Local(path))
	}
	for _, u := range opts.urls {
		if strings.TrimSpace(u) != "" {
			sources = append(sources, job.Remote(u))
		}
	}

	switch {
	case len(sources) == 0 && len(args) == 0:
		return workflow.Request{}, errors.New("no source given; pass a file, a locator, --file or --url")
	case len(sources) == 0 && len(args) == 1:
		req.Spec = args[0]
	default:
		// Each argument is classified on its own so existing files stay local.
		for _, arg := range args {
			parsed, err := job.ParseSources(arg)
			if err != nil {
				return workflow.Request{}, err
			}
			sources = append(sources, parsed...)
		}
		req.Sources = sources
	}
	return req, nil
}

func runDubbing(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, req workflow.Request, opts runOptions) error {
	results := preflight.RunAll(cmd.Context(), cfg, !opts.skipLLMCheck)
	if failed := preflight.Failed(results); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed: %s; run `dubline deps` for details", strings.Join(parts, ", "))
	}

	stderr := cmd.ErrOrStderr()
	interactive := !opts.plain && logging.IsTerminal(stderr)
	logger, err := ctx.logger(interactive)
	if err != nil {
		return err
	}

	toolchain, err := stages.NewToolchain(cfg)
	if err != nil {
		return err
	}
	manager := models.New(toolchain.Loaders(), logger)
	handlers := stages.NewSet(toolchain.Dependencies(cfg, manager, logger))

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	orchestrator, err := workflow.New(cfg, handlers, manager, toolchain.YtDlp,
		workflow.WithLogger(logger),
		workflow.WithRecorder(store),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := orchestrator.Close(); err != nil {
			logger.Warn("model release failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "model_release_failed"),
				logging.String(logging.FieldErrorHint, "check for leftover model processes"),
			)
		}
	}()

	session := workflow.Start(cmd.Context(), orchestrator, req)
	stopSignals := watchInterrupts(session, stderr, logger)
	defer stopSignals()

	view := newProgressView(stderr, interactive)
	for update := range session.Progress() {
		view.Update(update)
	}
	view.Close()
	result := <-session.Done()

	printRunResult(cmd.OutOrStdout(), result)
	notifyRun(cmd.Context(), notifications.NewService(cfg), result, logger)
	if result.OK() {
		return nil
	}
	if result.Err != nil {
		return result.Err
	}
	return errors.New("no video was produced")
}

// watchInterrupts stops the session after the stage in flight on the first
// interrupt and exits immediately on the second.
func watchInterrupts(session *workflow.Session, w io.Writer, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		fmt.Fprintln(w, "\nStopping after the current stage; interrupt again to exit now")
		logger.Warn("stop requested",
			logging.String(logging.FieldEventType, "stop_requested"),
			logging.String(logging.FieldImpact, "remaining stages and jobs will be skipped"),
		)
		session.Stop()
		select {
		case <-sigCh:
			os.Exit(130)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// notifyRun publishes the run outcome. Delivery failures are logged only.
func notifyRun(ctx context.Context, svc notifications.Service, result workflow.RunResult, logger *slog.Logger) {
	warn := func(err error) {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
	for _, jr := range result.Succeeded() {
		if err := svc.NotifyJobCompleted(ctx, jr.Title, jr.Output); err != nil {
			warn(err)
		}
	}
	if result.Err != nil && len(result.Jobs) == 0 {
		if err := svc.NotifyError(ctx, result.Err, "run"); err != nil {
			warn(err)
		}
		return
	}
	duration := result.FinishedAt.Sub(result.StartedAt)
	if err := svc.NotifyRunCompleted(ctx, len(result.Succeeded()), len(result.Failed()), duration); err != nil {
		warn(err)
	}
}

func printRunResult(w io.Writer, result workflow.RunResult) {
	if len(result.Jobs) > 0 {
		rows := make([][]string, 0, len(result.Jobs))
		for _, jr := range result.Jobs {
			detail := jr.Output
			if jr.Err != nil {
				detail = jr.Error()
			}
			rows = append(rows, []string{
				jr.ID,
				jr.Title,
				string(jr.Status),
				jr.Stage,
				strconv.Itoa(jr.Attempts),
				detail,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Job", "Title", "Status", "Failed Stage", "Attempts", "Output / Error"},
			rows,
			4,
		))
	}
	fmt.Fprintf(w, "Run %s\n%s\n", result.RunID, result.Summary)
	if result.Output != "" {
		fmt.Fprintf(w, "Output: %s\n", result.Output)
	}
}
