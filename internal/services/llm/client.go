package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubline/internal/services"
)

const (
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 15 * time.Second
)

// Config captures the settings for an OpenAI-compatible chat endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client sends chat completions to OpenRouter or any endpoint speaking the
// same wire format. Transient failures are retried with backoff.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	retry       backoff
	temperature float64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts bounds the attempts per request (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first retry delay and the cap.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithTemperature sets the sampling temperature used by Complete.
func WithTemperature(value float64) Option {
	return func(c *Client) { c.temperature = value }
}

// WithSleeper replaces the retry timer; tests record delays with it.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleeper = sleeper }
}

// NewClient constructs a client for cfg. An empty BaseURL targets OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultEndpoint
	}
	return c
}

// Complete sends the conversation as-is and returns the model's text reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm complete: messages required")
	}
	req := chatRequest{Model: c.cfg.Model, Temperature: c.temperature}
	for _, msg := range messages {
		req.Messages = append(req.Messages, wireMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return c.send(ctx, "llm complete", req)
}

// CompleteJSON asks for a JSON-only reply to one system and one user prompt
// and returns the raw payload.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", errors.New("llm complete: system and user prompts required")
	}
	return c.send(ctx, "llm complete", jsonRequest(c.cfg.Model, systemPrompt, userPrompt))
}

// HealthCheck verifies the key and model with a tiny JSON round trip.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.send(ctx, "llm health",
		jsonRequest(c.cfg.Model, "You must respond with JSON only.", `Respond with {"ok":true}`))
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func jsonRequest(model, system, user string) chatRequest {
	return chatRequest{
		Model: model,
		Messages: []wireMessage{
			{Role: string(RoleSystem), Content: system},
			{Role: string(RoleUser), Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
}

// send posts req, retrying per the backoff policy, and returns the first
// non-empty reply.
func (c *Client) send(ctx context.Context, op string, req chatRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "translate", op, "api key required", nil)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", op, err)
	}

	attempts := c.retry.limit()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		var content string
		content, lastErr = c.post(ctx, op, body)
		if lastErr == nil {
			return content, nil
		}
		delay, retry := c.retry.next(ctx, lastErr, attempt)
		if !retry {
			if attempt == 1 {
				return "", lastErr
			}
			break
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) post(ctx context.Context, op string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: http error (timeout=%s): %w", op, c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &statusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw)), RetryAfter: retryAfter}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%s: api error: %s", op, strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", &emptyReplyError{Op: op, Snippet: summarizePayloadSnippet(string(raw))}
	}
	if content := parsed.content(); content != "" {
		return content, nil
	}
	return "", &emptyReplyError{
		Op:           op,
		FinishReason: parsed.finishReason(),
		Refusal:      parsed.refusal(),
		Snippet:      summarizePayloadSnippet(string(raw)),
	}
}

// statusError is a non-2xx reply. It unwraps to ErrConfiguration for
// rejected credentials and ErrTransient for throttling and server faults.
type statusError struct {
	Op         string
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Code, e.Body)
}

func (e *statusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return services.ErrConfiguration
	case e.retryable():
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

func (e *statusError) retryable() bool {
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// emptyReplyError is a 2xx reply without usable content.
type emptyReplyError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

func (e *emptyReplyError) Unwrap() error { return services.ErrTransient }
