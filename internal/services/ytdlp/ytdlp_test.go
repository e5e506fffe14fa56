package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dubline/internal/config"
	"dubline/internal/services"
)

type fakeYtDlp struct {
	calls   [][]string
	payload map[string]string
	fail    map[string]bool
}

func (f *fakeYtDlp) Run(_ context.Context, _ string, args []string, _ []string) ([]byte, error) {
	f.calls = append(f.calls, args)
	url := args[len(args)-1]
	if f.fail[url] {
		return nil, errors.New("unavailable")
	}
	if slices.Contains(args, "--flat-playlist") {
		return []byte(f.payload["flat:"+url]), nil
	}
	return []byte(f.payload["info:"+url]), nil
}

func newClient(f *fakeYtDlp) *Client {
	return New(config.Download{YtDlpBinary: "yt-dlp", Resolution: "720p"}, WithExecutor(f))
}

func TestResolvePlaylistStopsAtMax(t *testing.T) {
	fake := &fakeYtDlp{payload: map[string]string{
		"flat:https://example.com/channel": `{"_type":"playlist","entries":[
			{"_type":"url","url":"https://example.com/v/1"},
			{"_type":"url","url":"https://example.com/v/2"},
			{"_type":"url","url":"https://example.com/v/3"}]}`,
		"info:https://example.com/v/1": `{"id":"1","title":"One","uploader":"Chan","upload_date":"20240101","webpage_url":"https://example.com/v/1"}`,
		"info:https://example.com/v/2": `{"id":"2","title":"Two","uploader":"Chan","upload_date":"20240102"}`,
	}}
	descs, err := newClient(fake).Resolve(context.Background(), []string{"https://example.com/channel"}, 2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(descs) != 2 || descs[0].Title != "One" || descs[1].Title != "Two" {
		t.Fatalf("unexpected descriptors %+v", descs)
	}
	if descs[1].URL != "https://example.com/v/2" {
		t.Fatalf("expected URL fallback, got %q", descs[1].URL)
	}
	for _, call := range fake.calls {
		if call[len(call)-1] == "https://example.com/v/3" {
			t.Fatal("resolver must stop once max is reached")
		}
	}
	if !slices.Contains(fake.calls[0], "--playlist-end") {
		t.Fatalf("expected playlist limit, got %v", fake.calls[0])
	}
}

func TestResolveSingleVideoAndErrors(t *testing.T) {
	fake := &fakeYtDlp{
		payload: map[string]string{
			"flat:https://example.com/v/9": `{"_type":"video","id":"9","webpage_url":"https://example.com/v/9"}`,
			"info:https://example.com/v/9": `{"id":"9","title":"Nine"}`,
		},
		fail: map[string]bool{"https://example.com/broken": true},
	}
	descs, err := newClient(fake).Resolve(context.Background(), []string{"https://example.com/broken", "https://example.com/v/9"}, 5)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(descs) != 1 || descs[0].ID != "9" {
		t.Fatalf("unexpected descriptors %+v", descs)
	}

	_, err = newClient(fake).Resolve(context.Background(), []string{"https://example.com/broken"}, 5)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDownloadArgs(t *testing.T) {
	dir := t.TempDir()
	var got []string
	exec := services.ExecutorFunc(func(_ context.Context, _ string, args []string, _ []string) ([]byte, error) {
		got = args
		return nil, os.WriteFile(filepath.Join(dir, ".partial-download.mp4"), []byte("video"), 0o644)
	})
	client := New(config.Download{Resolution: "720p", CookiesFile: "/tmp/cookies.txt"}, WithExecutor(exec))
	path, err := client.Download(context.Background(), "https://example.com/v/1", dir, ".partial-download")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, ".partial-download.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	joined := strings.Join(got, " ")
	for _, want := range []string{"height<=720", "--write-info-json", "--merge-output-format mp4", "--cookies /tmp/cookies.txt"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestDownloadWithoutOutputFails(t *testing.T) {
	exec := services.ExecutorFunc(func(context.Context, string, []string, []string) ([]byte, error) { return nil, nil })
	_, err := New(config.Download{}, WithExecutor(exec)).Download(context.Background(), "u", t.TempDir(), "x")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
