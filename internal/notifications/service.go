package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubline/internal/config"
	"dubline/internal/services"
)

const userAgent = "dubline/0.1.0"

// Service is the set of events the CLI announces.
type Service interface {
	NotifyJobCompleted(ctx context.Context, title, output string) error
	NotifyRunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy publisher for cfg.Notifications.NtfyTopic, or a
// Service that does nothing when no topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		topicURL: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
	}
}

// notice is one ntfy message. Body goes out as plain text; the rest map to
// ntfy's Title, Tags and Priority headers.
type notice struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

type ntfyService struct {
	topicURL string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title, output string) error {
	body := "Dubbed: " + strings.TrimSpace(title)
	if output = strings.TrimSpace(output); output != "" {
		body += "\nFile: " + output
	}
	return n.publish(ctx, notice{
		Title: "dubline - Video Ready",
		Body:  body,
		Tags:  []string{"dubline", "job", "completed"},
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	elapsed := max(duration.Round(time.Second), 0)
	msg := notice{
		Title: "dubline - Run Complete",
		Body:  fmt.Sprintf("Run complete: %d videos dubbed in %s", succeeded, elapsed),
		Tags:  []string{"dubline", "run", "completed"},
	}
	if failed > 0 {
		msg.Title += " (with errors)"
		msg.Body = fmt.Sprintf("Run complete: %d succeeded, %d failed in %s", succeeded, failed, elapsed)
		msg.Priority = "high"
	}
	return n.publish(ctx, msg)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	subject := "Error"
	if label = strings.TrimSpace(label); label != "" {
		subject += " with " + label
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return n.publish(ctx, notice{
		Title:    "dubline - Error",
		Body:     subject + ": " + detail,
		Tags:     []string{"dubline", "error", "alert"},
		Priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.publish(ctx, notice{
		Title:    "dubline - Test",
		Body:     "Notification system test",
		Tags:     []string{"dubline", "test"},
		Priority: "low",
	})
}

func (n *ntfyService) publish(ctx context.Context, msg notice) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(msg.Body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notify", "ntfy", "build request", err)
	}
	header := req.Header
	header.Set("User-Agent", userAgent)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" {
		header.Set("Priority", msg.Priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notify", "ntfy", "send", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		reply, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrExternalTool, "notify", "ntfy",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(reply))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error          { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
