package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dubline/internal/fileutil"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/services"
	"dubline/internal/services/ytdlp"
	"dubline/internal/stage"
)

// Download places the source video in the job directory. Remote sources go
// through yt-dlp; local files are copied and verified.
type Download struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports the downloader's readiness.
func (d *Download) HealthCheck(ctx context.Context) stage.Health {
	return health(ctx, "download", d.deps.Downloader)
}

// Run implements stage.Handler.
func (d *Download) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Download); ok {
		return res, nil
	}
	logger := logging.WithContext(ctx, d.logger)
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "download", "ensure job dir", j.Dir, err)
	}
	final := stage.MarkerPath(j.Dir, stage.Download)
	tmp := stage.TempPath(final)

	if j.Source.IsLocal() {
		logger.Info("copying local source", logging.String("source", j.Source.Locator))
		if err := fileutil.CopyFileVerified(j.Source.Locator, tmp); err != nil {
			return stage.Result{}, services.Wrap(services.ErrValidation, "download", "copy local file", j.Source.Locator, err)
		}
		if err := d.writeInfo(j); err != nil {
			return stage.Result{}, err
		}
	} else {
		if d.deps.Downloader == nil {
			return stage.Result{}, services.Wrap(services.ErrConfiguration, "download", "fetch", "no downloader configured", nil)
		}
		url := strings.TrimSpace(j.Descriptor.URL)
		if url == "" {
			url = j.Source.Locator
		}
		logger.Info("downloading remote source", logging.String("url", url))
		base := strings.TrimSuffix(filepath.Base(tmp), filepath.Ext(tmp))
		if _, err := d.deps.Downloader.Download(ctx, url, j.Dir, base); err != nil {
			return stage.Result{}, err
		}
		partialInfo := ytdlp.InfoPath(j.Dir, base)
		if err := os.Rename(partialInfo, filepath.Join(j.Dir, stage.FileInfo)); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return stage.Result{}, fmt.Errorf("move info json: %w", err)
			}
			if err := d.writeInfo(j); err != nil {
				return stage.Result{}, err
			}
		}
	}

	if err := stage.Commit(tmp, final); err != nil {
		return stage.Result{}, err
	}
	logger.Info("source ready", logging.String("video", final))
	return stage.Result{Summary: "downloaded " + j.Title(), Output: final}, nil
}

func (d *Download) writeInfo(j *job.Job) error {
	path := filepath.Join(j.Dir, stage.FileInfo)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(j.Descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode info: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write info: %w", err)
	}
	return nil
}

// loadInfo reads download.info.json, falling back to the job descriptor.
func loadInfo(j *job.Job) job.Descriptor {
	data, err := os.ReadFile(filepath.Join(j.Dir, stage.FileInfo))
	if err != nil {
		return j.Descriptor
	}
	var info job.Descriptor
	if err := json.Unmarshal(data, &info); err != nil {
		return j.Descriptor
	}
	return info
}
