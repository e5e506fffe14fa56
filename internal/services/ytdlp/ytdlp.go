package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/services"
	"dubline/internal/stage"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs yt-dlp.
type Client struct {
	binary       string
	cookies      string
	height       int
	infoTimeout  time.Duration
	fetchTimeout time.Duration
	exec         services.Executor
}

// New constructs a client from download settings.
func New(cfg config.Download, opts ...Option) *Client {
	binary := strings.TrimSpace(cfg.YtDlpBinary)
	if binary == "" {
		binary = "yt-dlp"
	}
	height, err := config.ParseResolution(cfg.Resolution)
	if err != nil {
		height = 1080
	}
	c := &Client{
		binary:       binary,
		cookies:      strings.TrimSpace(cfg.CookiesFile),
		height:       height,
		infoTimeout:  time.Duration(cfg.InfoTimeout) * time.Second,
		fetchTimeout: time.Duration(cfg.FetchTimeout) * time.Second,
		exec:         services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HealthCheck reports whether yt-dlp is installed.
func (c *Client) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(c.binary); err != nil {
		return stage.Unhealthy("yt-dlp", err.Error())
	}
	return stage.Healthy("yt-dlp")
}

type flatEntry struct {
	Type       string      `json:"_type"`
	ID         string      `json:"id"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Entries    []flatEntry `json:"entries"`
}

func (e flatEntry) locator() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}

// Resolve expands each locator into video descriptors, in order, returning
// at most max entries. Locators that cannot be inspected are skipped once at
// least one descriptor has been resolved; otherwise the error is returned.
func (c *Client) Resolve(ctx context.Context, locators []string, max int) ([]job.Descriptor, error) {
	if max <= 0 {
		max = 1
	}
	var (
		out  []job.Descriptor
		errs []error
	)
	for _, locator := range locators {
		if len(out) >= max {
			break
		}
		urls, err := c.expand(ctx, locator, max-len(out))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, url := range urls {
			if len(out) >= max {
				break
			}
			desc, err := c.Info(ctx, url)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, desc)
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (c *Client) expand(ctx context.Context, locator string, limit int) ([]string, error) {
	args := c.commonArgs("--flat-playlist", "--dump-single-json", "--playlist-end", strconv.Itoa(limit), locator)
	output, err := c.run(ctx, c.infoTimeout, args)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "download", "resolve", locator, err)
	}
	var root flatEntry
	if err := json.Unmarshal(output, &root); err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "resolve", "parse yt-dlp json", err)
	}
	return flatten(root, locator, limit), nil
}

func flatten(entry flatEntry, fallback string, limit int) []string {
	if len(entry.Entries) == 0 {
		if entry.Type == "playlist" {
			return nil
		}
		if url := entry.locator(); url != "" {
			return []string{url}
		}
		return []string{fallback}
	}
	var urls []string
	for _, child := range entry.Entries {
		for _, url := range flatten(child, "", limit-len(urls)) {
			if url == "" {
				continue
			}
			urls = append(urls, url)
			if len(urls) >= limit {
				return urls
			}
		}
	}
	return urls
}

// Info returns the metadata for one video.
func (c *Client) Info(ctx context.Context, url string) (job.Descriptor, error) {
	args := c.commonArgs("--dump-json", "--skip-download", "--no-playlist", url)
	output, err := c.run(ctx, c.infoTimeout, args)
	if err != nil {
		return job.Descriptor{}, services.Wrap(services.ErrExternalTool, "download", "info", url, err)
	}
	var desc job.Descriptor
	if err := json.Unmarshal(output, &desc); err != nil {
		return job.Descriptor{}, services.Wrap(services.ErrValidation, "download", "info", "parse yt-dlp json", err)
	}
	if desc.URL == "" {
		desc.URL = url
	}
	return desc, nil
}

// Download fetches url into dir as <base>.mp4 with <base>.info.json beside
// it, returning the video path.
func (c *Client) Download(ctx context.Context, url, dir, base string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("download: ensure dir: %w", err)
	}
	format := fmt.Sprintf("bestvideo[ext=mp4][height<=%d]+bestaudio[ext=m4a]/best[ext=mp4]/best", c.height)
	args := c.commonArgs(
		"-f", format,
		"--merge-output-format", "mp4",
		"--write-info-json",
		"--no-playlist",
		"-o", filepath.Join(dir, base+".%(ext)s"),
		url,
	)
	if _, err := c.run(ctx, c.fetchTimeout, args); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", url, err)
	}
	video := filepath.Join(dir, base+".mp4")
	if _, err := os.Stat(video); err != nil {
		return "", services.Wrap(services.ErrValidation, "download", "fetch", "yt-dlp produced no mp4", err)
	}
	return video, nil
}

// InfoPath is the info JSON written next to a download with base name base.
func InfoPath(dir, base string) string {
	return filepath.Join(dir, base+".info.json")
}

func (c *Client) commonArgs(args ...string) []string {
	out := []string{"--no-warnings", "--no-progress"}
	if c.cookies != "" {
		out = append(out, "--cookies", c.cookies)
	}
	return append(out, args...)
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args []string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.exec.Run(ctx, c.binary, args, nil)
}
