package llm

import (
	"fmt"
	"time"

	"dubline/internal/config"
	"dubline/internal/services"
)

// New returns the Completer selected by the configured translation method.
func New(cfg config.Translation, opts ...Option) (Completer, error) {
	switch cfg.Method {
	case config.TranslationOpenRouter:
		return NewClient(Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}, append([]Option{WithTemperature(0.3)}, opts...)...), nil
	case config.TranslationOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case config.TranslationOllama:
		return NewOllama(cfg.Model, cfg.BaseURL)
	case config.TranslationAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.Model)
	case config.TranslationLibreTranslate:
		return NewMachineTranslator(cfg.BaseURL, cfg.APIKey, cfg.TargetLanguage, time.Duration(cfg.TimeoutSeconds)*time.Second)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "translate", "select backend",
			fmt.Sprintf("unsupported translation method %q", cfg.Method), nil)
	}
}

// Conversational reports whether the method keeps chat context. Machine
// translation ignores history and summaries.
func Conversational(method string) bool {
	return method != config.TranslationLibreTranslate
}
