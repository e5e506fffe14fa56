package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"dubline/internal/language"
)

// MachineTranslator calls a LibreTranslate-compatible HTTP service. It is not
// conversational: it translates the quoted sentence from the last user message
// and answers in the quoted form `"<translation>"` so callers can validate it
// exactly like a language-model reply.
type MachineTranslator struct {
	baseURL    string
	apiKey     string
	target     string
	httpClient *http.Client
}

// NewMachineTranslator constructs a machine translation backend.
func NewMachineTranslator(baseURL, apiKey, targetLanguage string, timeout time.Duration) (*MachineTranslator, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("machine translator: base url required")
	}
	target := language.ToISO2(targetLanguage)
	if target == "" {
		return nil, fmt.Errorf("machine translator: unsupported target language %q", targetLanguage)
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &MachineTranslator{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		target:     target,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

var quotedSentence = regexp.MustCompile(`(?s)"(.*)"\s*$`)

// Complete implements Completer.
func (m *MachineTranslator) Complete(ctx context.Context, messages []Message) (string, error) {
	text := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			text = messages[i].Content
			break
		}
	}
	text = strings.TrimSpace(text)
	if match := quotedSentence.FindStringSubmatch(text); match != nil {
		text = match[1]
	}
	if text == "" {
		return "", errors.New("machine translator: nothing to translate")
	}
	translated, err := m.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	return `"` + translated + `"`, nil
}

// Translate translates a single text fragment.
func (m *MachineTranslator) Translate(ctx context.Context, text string) (string, error) {
	payload := map[string]string{
		"q":      text,
		"source": "auto",
		"target": m.target,
		"format": "text",
	}
	if m.apiKey != "" {
		payload["api_key"] = m.apiKey
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("machine translator: encode body: %w", err)
	}
	endpoint, err := url.JoinPath(m.baseURL, "translate")
	if err != nil {
		return "", fmt.Errorf("machine translator: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("machine translator: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("machine translator: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("machine translator: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{Op: "machine translator", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var decoded struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("machine translator: decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("machine translator: api error: %s", decoded.Error)
	}
	return strings.TrimSpace(decoded.TranslatedText), nil
}
