package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dubline/internal/logging"
)

// Kind names a class of shared model.
type Kind string

const (
	Separation    Kind = "separation"
	Transcription Kind = "transcription"
	Diarization   Kind = "diarization"
	Synthesis     Kind = "synthesis"
)

// Config is the structural identity of a loaded model.
type Config struct {
	Method string
	Model  string
	Device string
	Params map[string]string
}

// Equal compares configurations structurally.
func (c Config) Equal(other Config) bool {
	return c.Method == other.Method &&
		c.Model == other.Model &&
		c.Device == other.Device &&
		maps.Equal(c.Params, other.Params)
}

// Resource is a loaded model that can be freed.
type Resource interface {
	Release() error
}

// Loader loads a model for one kind.
type Loader interface {
	Load(context.Context, Config) (Resource, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(context.Context, Config) (Resource, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, cfg Config) (Resource, error) { return f(ctx, cfg) }

// Handle is one resident model.
type Handle struct {
	Kind     Kind
	Config   Config
	Resource Resource
	LoadedAt time.Time
}

// Request asks for a kind to be resident with cfg.
type Request struct {
	Kind   Kind
	Config Config
}

type slot struct {
	mu     sync.Mutex
	handle *Handle
}

// Manager tracks resident models. The zero value is not usable; use New.
type Manager struct {
	loaders map[Kind]Loader
	logger  *slog.Logger

	mu    sync.Mutex
	slots map[Kind]*slot
}

// New creates a Manager with one loader per kind.
func New(loaders map[Kind]Loader, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	copied := make(map[Kind]Loader, len(loaders))
	maps.Copy(copied, loaders)
	return &Manager{
		loaders: copied,
		logger:  logging.NewComponentLogger(logger, "models"),
		slots:   make(map[Kind]*slot),
	}
}

func (m *Manager) slot(kind Kind) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[kind]
	if !ok {
		s = &slot{}
		m.slots[kind] = s
	}
	return s
}

// Acquire returns a resident handle for kind with cfg, loading it (and
// releasing a mismatched resident one) when needed.
func (m *Manager) Acquire(ctx context.Context, kind Kind, cfg Config) (*Handle, error) {
	loader, ok := m.loaders[kind]
	if !ok || loader == nil {
		return nil, fmt.Errorf("models: no loader registered for %s", kind)
	}
	s := m.slot(kind)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		if s.handle.Config.Equal(cfg) {
			m.logger.Debug("model reused",
				logging.String("model_kind", string(kind)),
				logging.String("model", cfg.Model),
			)
			return s.handle, nil
		}
		m.logger.Info("model configuration changed; releasing resident model",
			logging.String("model_kind", string(kind)),
			logging.String("resident_model", s.handle.Config.Model),
			logging.String("requested_model", cfg.Model),
		)
		if err := m.releaseLocked(kind, s); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	res, err := loader.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("models: load %s (%s): %w", kind, cfg.Model, err)
	}
	s.handle = &Handle{Kind: kind, Config: cfg, Resource: res, LoadedAt: time.Now()}
	m.logger.Info("model loaded",
		logging.String(logging.FieldEventType, "model_loaded"),
		logging.String("model_kind", string(kind)),
		logging.String("model_method", cfg.Method),
		logging.String("model", cfg.Model),
		logging.String("device", cfg.Device),
		logging.Duration("elapsed", time.Since(started)),
	)
	return s.handle, nil
}

// Initialize makes every requested model resident. Kinds load concurrently.
// Any failure releases every resident model before the error is returned.
func (m *Manager) Initialize(ctx context.Context, reqs ...Request) error {
	seen := make(map[Kind]bool, len(reqs))
	for _, req := range reqs {
		if seen[req.Kind] {
			return fmt.Errorf("models: duplicate request for %s", req.Kind)
		}
		seen[req.Kind] = true
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		g.Go(func() error {
			_, err := m.Acquire(gctx, req.Kind, req.Config)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logging.ErrorWithContext(m.logger, "model initialization failed", "model_init_failure",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the model tool installation and device settings"),
		)
		if releaseErr := m.ReleaseAll(); releaseErr != nil {
			return errors.Join(err, releaseErr)
		}
		return err
	}
	return nil
}

// Release frees the resident model of kind, if any.
func (m *Manager) Release(kind Kind) error {
	s := m.slot(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.releaseLocked(kind, s)
}

func (m *Manager) releaseLocked(kind Kind, s *slot) error {
	if s.handle == nil {
		return nil
	}
	h := s.handle
	s.handle = nil
	var err error
	if h.Resource != nil {
		err = h.Resource.Release()
	}
	m.logger.Info("model released",
		logging.String(logging.FieldEventType, "model_released"),
		logging.String("model_kind", string(kind)),
		logging.String("model", h.Config.Model),
	)
	if err != nil {
		return fmt.Errorf("models: release %s: %w", kind, err)
	}
	return nil
}

// ReleaseAll frees every resident model.
func (m *Manager) ReleaseAll() error {
	var errs []error
	for _, kind := range m.kinds() {
		if err := m.Release(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resident returns the handle for kind if one is loaded.
func (m *Manager) Resident(kind Kind) (*Handle, bool) {
	s := m.slot(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.handle != nil
}

// ResidentKinds lists loaded kinds in name order.
func (m *Manager) ResidentKinds() []Kind {
	var out []Kind
	for _, kind := range m.kinds() {
		if _, ok := m.Resident(kind); ok {
			out = append(out, kind)
		}
	}
	return out
}

func (m *Manager) kinds() []Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Kind, 0, len(m.slots))
	for kind := range m.slots {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
