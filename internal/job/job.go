package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubline/internal/textutil"
)

// SourceKind distinguishes remote locators from local files.
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// Source is an explicit tagged reference to a job's input.
type Source struct {
	Kind    SourceKind `json:"kind" validate:"required,oneof=remote local"`
	Locator string     `json:"locator" validate:"required"`
}

// Remote builds a remote source.
func Remote(locator string) Source {
	return Source{Kind: SourceRemote, Locator: strings.TrimSpace(locator)}
}

// Local builds a local file source.
func Local(path string) Source {
	return Source{Kind: SourceLocal, Locator: strings.TrimSpace(path)}
}

// IsLocal reports whether the source names a file on disk.
func (s Source) IsLocal() bool { return s.Kind == SourceLocal }

func (s Source) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Locator)
}

// Validate checks that the source is well formed.
func (s Source) Validate() error {
	switch s.Kind {
	case SourceRemote, SourceLocal:
	default:
		return fmt.Errorf("source kind %q is not supported", s.Kind)
	}
	if s.Locator == "" {
		return errors.New("source locator is empty")
	}
	return nil
}

// Descriptor is the metadata the list resolver reports for one remote video.
type Descriptor struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	URL         string   `json:"webpage_url"`
	Duration    float64  `json:"duration"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Status is the terminal state of a job within one run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Job is one source video tracked through all six stages.
type Job struct {
	ID         string
	Source     Source
	Descriptor Descriptor
	Dir        string

	StageIndex int
	Progress   int
	Message    string
	Attempt    int
	Status     Status
	Output     string
	Err        error

	StartedAt  time.Time
	FinishedAt time.Time
}

// New creates a pending job.
func New(id string, source Source, descriptor Descriptor, dir string) *Job {
	return &Job{
		ID:         id,
		Source:     source,
		Descriptor: descriptor,
		Dir:        dir,
		Status:     StatusPending,
	}
}

// Title returns the best human label for the job.
func (j *Job) Title() string {
	if j == nil {
		return ""
	}
	if title := strings.TrimSpace(j.Descriptor.Title); title != "" {
		return title
	}
	if j.Dir != "" {
		return filepath.Base(j.Dir)
	}
	return j.ID
}

// Succeeded reports whether the job completed every stage.
func (j *Job) Succeeded() bool { return j != nil && j.Status == StatusSuccess }

// ParseSources normalizes a free-form source specification. A specification
// naming an existing regular file yields one local source; anything else is
// treated as a list of remote locators separated by commas (ASCII or
// full-width) or newlines, with all spaces removed.
func ParseSources(spec string) ([]Source, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, errors.New("source specification is empty")
	}
	if info, err := os.Stat(trimmed); err == nil && info.Mode().IsRegular() {
		return []Source{Local(trimmed)}, nil
	}
	normalized := strings.ReplaceAll(trimmed, " ", "")
	normalized = strings.NewReplacer("，", "\n", ",", "\n").Replace(normalized)
	var sources []Source
	for _, part := range strings.Split(normalized, "\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sources = append(sources, Remote(part))
	}
	if len(sources) == 0 {
		return nil, errors.New("source specification has no locators")
	}
	return sources, nil
}

// RemoteDir derives the working directory for a resolved remote video:
// <root>/<uploader>/<upload_date> <title>, each segment sanitized.
func RemoteDir(root string, d Descriptor) (string, error) {
	title := textutil.SanitizeFileName(d.Title)
	if title == "" {
		title = textutil.SanitizeFileName(d.ID)
	}
	if title == "" {
		return "", errors.New("descriptor has neither title nor id")
	}
	uploader := textutil.SanitizeFileName(d.Uploader)
	if uploader == "" {
		uploader = "Unknown"
	}
	name := title
	if date := textutil.SanitizeFileName(d.UploadDate); date != "" {
		name = date + " " + title
	}
	return filepath.Join(root, uploader, name), nil
}

// LocalDir derives the working directory for a local file: the file's base
// name without extension, under root.
func LocalDir(root, path string) (string, error) {
	base := filepath.Base(strings.TrimSpace(path))
	name := textutil.SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." {
		return "", fmt.Errorf("cannot derive job directory from %q", path)
	}
	return filepath.Join(root, name), nil
}
