package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"dubline/internal/fileutil"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/services"
	"dubline/internal/services/llm"
	"dubline/internal/stage"
	"dubline/internal/transcript"
	"dubline/internal/translation"
)

// Translate summarizes the video and translates every transcript line.
type Translate struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports whether a translation backend is configured.
func (t *Translate) HealthCheck(ctx context.Context) stage.Health {
	if hc, ok := t.deps.Completer.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return stage.Unhealthy("translate", err.Error())
		}
		return stage.Healthy("translate")
	}
	return health(ctx, "translate", t.deps.Completer)
}

func (t *Translate) translator() *translation.Translator {
	cfg := t.deps.Config.Translation
	return translation.NewTranslator(t.deps.Completer, translation.Options{
		TargetLanguage: cfg.TargetLanguage,
		Conversational: llm.Conversational(cfg.Method),
		HistorySize:    cfg.HistorySize,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     time.Duration(cfg.RetryDelayMS) * time.Millisecond,
		Logger:         t.logger,
		Sleep:          t.deps.Sleep,
	})
}

// Run implements stage.Handler.
func (t *Translate) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Translate); ok {
		return res, nil
	}
	if t.deps.Completer == nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "translate", "setup", "no translation backend configured", nil)
	}
	logger := logging.WithContext(ctx, t.logger)
	lines, err := transcript.Load(stage.MarkerPath(j.Dir, stage.Transcribe))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "translate", "load transcript", "", err)
	}
	tr := t.translator()

	summaryPath := filepath.Join(j.Dir, stage.FileSummary)
	summary, err := translation.LoadSummary(summaryPath)
	if err != nil {
		summary = tr.Summarize(ctx, loadInfo(j), filepath.Base(j.Dir), lines)
		data, encErr := translation.EncodeSummary(summary)
		if encErr != nil {
			return stage.Result{}, encErr
		}
		if err := fileutil.WriteFileAtomic(summaryPath, data, 0o644); err != nil {
			return stage.Result{}, fmt.Errorf("write summary: %w", err)
		}
		logger.Info("summary written", logging.String("title", summary.Title))
	}

	records, stats, err := tr.TranslateLines(ctx, summary, lines)
	if err != nil {
		return stage.Result{}, err
	}
	records = translation.SplitSentences(records)
	data, err := translation.Encode(records)
	if err != nil {
		return stage.Result{}, err
	}
	final := stage.MarkerPath(j.Dir, stage.Translate)
	if err := commitBytes(final, data); err != nil {
		return stage.Result{}, err
	}
	logger.Info("translation completed",
		logging.Int("accepted", stats.Accepted),
		logging.Int("untranslated", stats.Untranslated),
		logging.Int("rejections", stats.Rejections),
		logging.Int("backend_errors", stats.BackendErrors),
		logging.Int("records", len(records)),
	)
	return stage.Result{
		Summary: fmt.Sprintf("translated %d of %d lines", stats.Accepted, len(lines)),
		Output:  final,
	}, nil
}
