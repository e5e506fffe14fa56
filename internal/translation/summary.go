package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/services/llm"
	"dubline/internal/transcript"
)

const summaryTranscriptLimit = 2000

// Summary describes the video for prompt context and metadata.
type Summary struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Language string   `json:"language"`
}

// LoadSummary reads summary.json.
func LoadSummary(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read summary: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode summary: %w", err)
	}
	return s, nil
}

// EncodeSummary renders s as indented JSON.
func EncodeSummary(s Summary) ([]byte, error) {
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// FallbackSummary builds a summary from resolver metadata alone.
func FallbackSummary(info job.Descriptor, dirName, target string) Summary {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = dirName
	}
	author := strings.TrimSpace(info.Uploader)
	if author == "" {
		author = "Unknown"
	}
	return Summary{
		Title:    title,
		Author:   author,
		Summary:  strings.TrimSpace(info.Description),
		Tags:     info.Tags,
		Language: target,
	}
}

// Summarize asks the model for a JSON title and summary, retrying with a
// format reminder. It never fails: on exhaustion, or for backends that are not
// conversational, it falls back to the resolver metadata.
func (t *Translator) Summarize(ctx context.Context, info job.Descriptor, dirName string, lines []transcript.Line) Summary {
	fallback := FallbackSummary(info, dirName, t.opts.TargetLanguage)
	if !t.opts.Conversational {
		return fallback
	}

	meta := fmt.Sprintf("Title: %q Author: %q. ", fallback.Title, fallback.Author)
	body := clipMiddle(transcript.Text(lines), summaryTranscriptLimit)
	prompt := "The following is the full content of the video:\n" + meta + "\n" + body + "\n" + meta +
		"\nAccording to the above content, detailedly Summarize the video in JSON format:\n```json\n{\"title\": \"\", \"summary\": \"\"}\n```"
	system := "You are a expert in the field of this video. Please summarize the video in JSON format.\n" +
		"```json\n{\"title\": \"the title of the video\", \"summary\": \"the summary of the video\"}\n```"

	reminder := ""
	var lastErr error
	for attempt := 1; attempt <= t.opts.MaxRetries; attempt++ {
		if attempt > 1 && t.opts.RetryDelay > 0 {
			t.opts.Sleep(t.opts.RetryDelay)
		}
		reply, err := t.backend.Complete(ctx, []llm.Message{llm.System(system), llm.User(prompt + reminder)})
		if err == nil {
			var parsed Summary
			parsed, err = parseSummary(reply)
			if err == nil {
				parsed.Author = fallback.Author
				parsed.Tags = fallback.Tags
				parsed.Language = t.opts.TargetLanguage
				return parsed
			}
		}
		lastErr = err
		reminder += "\nSummarize the video in JSON format:\n```json\n{\"title\": \"\", \"summary\": \"\"}\n```"
		t.logger.Debug("summary attempt rejected", logging.Int("attempt", attempt), logging.Error(err))
	}
	logging.WarnWithContext(t.logger, "video summary unavailable; using metadata", "summary_fallback",
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "check the translation model output format"),
		logging.String(logging.FieldImpact, "translation prompt uses the source title only"),
	)
	return fallback
}

func parseSummary(reply string) (Summary, error) {
	flat := strings.ReplaceAll(reply, "\n", "")
	if strings.Contains(flat, "视频标题") {
		return Summary{}, errors.New("summary echoes the title label")
	}
	var raw struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := llm.DecodeLLMJSON(flat, &raw); err != nil {
		return Summary{}, err
	}
	title := strings.TrimSpace(strings.ReplaceAll(raw.Title, "title:", ""))
	body := strings.TrimSpace(strings.ReplaceAll(raw.Summary, "summary:", ""))
	if title == "" || body == "" {
		return Summary{}, errors.New("summary title or body is empty")
	}
	if strings.Contains(title, "title") {
		return Summary{}, errors.New("summary title is a template echo")
	}
	return Summary{Title: stripTitleQuotes(title), Summary: body}, nil
}

func stripTitleQuotes(title string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}, {"‘", "’"}, {"'", "'"}, {"《", "》"}} {
		if len(title) > len(pair[0])+len(pair[1]) && strings.HasPrefix(title, pair[0]) && strings.HasSuffix(title, pair[1]) {
			return title[len(pair[0]) : len(title)-len(pair[1])]
		}
	}
	return title
}

// clipMiddle keeps the first and last limit/2 runes of each half of text.
func clipMiddle(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	mid := len(runes) / 2
	before, after := runes[:mid], runes[mid:]
	half := limit / 2
	if len(before) > half {
		before = before[:half]
	}
	if len(after) > half {
		after = after[len(after)-half:]
	}
	return string(before) + string(after)
}
