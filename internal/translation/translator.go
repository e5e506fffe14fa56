package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dubline/internal/language"
	"dubline/internal/logging"
	"dubline/internal/services"
	"dubline/internal/services/llm"
	"dubline/internal/transcript"
)

const (
	defaultHistorySize = 30
	defaultMaxRetries  = 10
)

// Options configures a Translator.
type Options struct {
	TargetLanguage string
	// Conversational backends receive the few-shot prompt and rolling history;
	// machine translators get the bare sentence.
	Conversational bool
	HistorySize    int
	MaxRetries     int
	RetryDelay     time.Duration
	Judge          Judge
	Logger         *slog.Logger
	Sleep          func(time.Duration)
}

// Translator runs the validate-and-retry loop against a language model.
type Translator struct {
	backend llm.Completer
	opts    Options
	judge   Judge
	logger  *slog.Logger
}

// Stats summarizes one TranslateLines call.
type Stats struct {
	Accepted      int
	Untranslated  int
	Rejections    int
	BackendErrors int
}

// NewTranslator builds a Translator for backend.
func NewTranslator(backend llm.Completer, opts Options) *Translator {
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	judge := opts.Judge
	if judge == nil {
		judge = NewValidator(opts.TargetLanguage)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{
		backend: backend,
		opts:    opts,
		judge:   judge,
		logger:  logging.NewComponentLogger(logger, "translator"),
	}
}

// TranslateLines translates every line in order. A sentence that cannot be
// validated within the retry ceiling degrades to the placeholder. An error
// is returned only when nothing was accepted and the backend itself failed,
// which points at a broken backend rather than a difficult sentence.
func (t *Translator) TranslateLines(ctx context.Context, summary Summary, lines []transcript.Line) ([]Record, Stats, error) {
	var stats Stats
	fixed := fewShot(summary, t.opts.TargetLanguage)
	var history []llm.Message
	records := make([]Record, 0, len(lines))
	var lastBackendErr error

	for i, line := range lines {
		rec := Record{Start: line.Start, End: line.End, Speaker: line.Speaker, Text: line.Text}
		text := strings.TrimSpace(line.Text)
		if text == "" {
			rec.Translation = Placeholder
			rec.Outcome = OutcomeUntranslated
			stats.Untranslated++
			records = append(records, rec)
			continue
		}

		translated, ok, err := t.translateOne(ctx, text, fixed, history, &stats)
		if err != nil {
			lastBackendErr = err
		}
		if !ok {
			rec.Translation = Placeholder
			rec.Outcome = OutcomeUntranslated
			stats.Untranslated++
			logging.WarnWithContext(t.logger, "sentence left untranslated", "translation_fallback",
				logging.Int("line", i),
				logging.String("source_text", text),
				logging.String(logging.FieldErrorHint, "check the translation model and prompt history"),
				logging.String(logging.FieldImpact, "subtitle shows the placeholder"),
			)
			records = append(records, rec)
			continue
		}
		rec.Translation = translated
		rec.Outcome = OutcomeAccepted
		stats.Accepted++
		records = append(records, rec)

		if t.opts.Conversational {
			history = append(history,
				llm.User(userPrompt(text, "")),
				llm.Assistant(`Translation: "`+translated+`"`),
			)
			if len(history) > t.opts.HistorySize {
				history = history[len(history)-t.opts.HistorySize:]
			}
		}
	}

	if stats.Accepted == 0 && stats.BackendErrors > 0 && lastBackendErr != nil {
		return records, stats, services.Wrap(services.ErrExternalTool, "translate", "complete",
			"translation backend failed for every sentence", lastBackendErr)
	}
	return records, stats, nil
}

func (t *Translator) translateOne(ctx context.Context, text string, fixed, history []llm.Message, stats *Stats) (string, bool, error) {
	corrective := ""
	var lastErr error
	for attempt := 1; attempt <= t.opts.MaxRetries; attempt++ {
		if attempt > 1 && t.opts.RetryDelay > 0 {
			t.opts.Sleep(t.opts.RetryDelay)
		}
		var messages []llm.Message
		if t.opts.Conversational {
			messages = make([]llm.Message, 0, len(fixed)+len(history)+1)
			messages = append(messages, fixed...)
			messages = append(messages, history...)
		}
		if t.opts.Conversational {
			messages = append(messages, llm.User(userPrompt(text, corrective)))
		} else {
			messages = append(messages, llm.User(userPrompt(text, "")))
		}

		reply, err := t.backend.Complete(ctx, messages)
		if err != nil {
			stats.BackendErrors++
			lastErr = err
			t.logger.Warn("translation request failed",
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldEventType, "translation_request_failed"),
				logging.String(logging.FieldErrorHint, "backend will be retried"),
				logging.String(logging.FieldImpact, "sentence translation delayed"),
			)
			continue
		}
		ok, result := t.judge.Validate(text, reply)
		if ok {
			t.logger.Debug("translation accepted",
				logging.String("source_text", text),
				logging.String("translation", result),
				logging.Int("attempt", attempt),
			)
			return result, true, nil
		}
		stats.Rejections++
		corrective = result
		t.logger.Debug("translation rejected",
			logging.String("source_text", text),
			logging.String("reply", reply),
			logging.String("corrective", result),
			logging.Int("attempt", attempt),
		)
	}
	return "", false, lastErr
}

func userPrompt(text, corrective string) string {
	prompt := `Translate:"` + text + `"`
	if corrective != "" {
		prompt += "\n" + corrective
	}
	return prompt
}

// fewShot builds the fixed system prompt and example exchanges.
func fewShot(summary Summary, target string) []llm.Message {
	if language.ToISO2(target) == "zh" {
		info := fmt.Sprintf("This is a video called %q. %s.", summary.Title, summary.Summary)
		return []llm.Message{
			llm.System(fmt.Sprintf("You are an expert in the field of this video.\n%s\nTranslate the sentence into %s. "+
				"Below, I will ask you to act as a translator, your goal is to translate any language into %s, "+
				"please translate naturally, fluently and idiomatically, using beautiful and elegant expressions. "+
				"Please translate \"agent\" in artificial intelligence as \"intelligent body\", and in reinforcement learning, "+
				"it is `Q-Learning` instead of `Queue Learning`. Mathematical formulas are written in plain text, do not use latex. "+
				"Ensure the translation is accurate and concise. Pay attention to faithfulness, expressiveness, and elegance.",
				info, target, target)),
			llm.User(fmt.Sprintf("Use idiomatic %s to translate: \"Knowledge is power.\"", target)),
			llm.Assistant("Translation: \"知识就是力量。\""),
			llm.User(fmt.Sprintf("Use idiomatic %s to translate: \"To be or not to be, that is the question.\"", target)),
			llm.Assistant("Translation: \"生存还是毁灭，这是一个值得考虑的问题。\""),
		}
	}
	return []llm.Message{
		llm.System(fmt.Sprintf("You are a language expert specializing in translating content from various fields. "+
			"The current task involves translating the transcript of a video titled %q. The summary of the video is: %s. "+
			"Your goal is to translate the following sentences into %s. Please ensure that the translations are accurate, "+
			"maintain the original meaning and tone, and are expressed in a clear and fluent manner.",
			summary.Title, summary.Summary, target)),
		llm.User("Please translate the following text: \"Original Text\""),
		llm.Assistant("Translated text: \"Translated Text\""),
		llm.User("Translate the following text: \"Another Original Text\""),
		llm.Assistant("Translated text: \"Another Translated Text\""),
	}
}
