package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dubline/internal/logging"
)

const partialPrefix = ".partial-"

// MarkerPath returns the marker location for s inside dir.
func MarkerPath(dir string, s Stage) string {
	return filepath.Join(dir, s.Marker())
}

// Done reports whether the marker for s is present as a regular file.
func Done(dir string, s Stage) bool {
	info, err := os.Stat(MarkerPath(dir, s))
	return err == nil && info.Mode().IsRegular()
}

// FirstPending returns the earliest stage without a marker. The second value
// is false when every stage is done.
func FirstPending(dir string) (Stage, bool) {
	for _, d := range descriptors {
		if !Done(dir, d.Stage) {
			return d.Stage, true
		}
	}
	return Assemble, false
}

// TempPath returns a sibling path for writing final before Commit. The
// extension is kept so tools that infer formats from names still work.
func TempPath(final string) string {
	return filepath.Join(filepath.Dir(final), partialPrefix+filepath.Base(final))
}

// Commit atomically moves a fully written temporary file onto its final path.
func Commit(tmp, final string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(final), err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("commit %s: %s is not a regular file", filepath.Base(final), tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("commit %s: %w", filepath.Base(final), err)
	}
	return nil
}

// Reconcile restores the marker ordering invariant: any marker that exists
// after the earliest missing one is removed so the stage re-runs. Leftover
// partial files are removed as well. It returns the stages whose markers
// were dropped.
func Reconcile(dir string, logger *slog.Logger) ([]Stage, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := removePartials(dir); err != nil {
		return nil, err
	}
	first, pending := FirstPending(dir)
	if !pending {
		return nil, nil
	}
	var dropped []Stage
	for s := first + 1; s.Valid(); s++ {
		if !Done(dir, s) {
			continue
		}
		if err := os.Remove(MarkerPath(dir, s)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return dropped, fmt.Errorf("remove stale marker %s: %w", s.Marker(), err)
		}
		dropped = append(dropped, s)
		logging.WarnWithContext(logger, "stale stage marker removed", "marker_reconcile",
			logging.String("marker", s.Marker()),
			logging.String("missing_stage", first.String()),
			logging.String(logging.FieldErrorHint, "earlier stage output is missing; the stage will re-run"),
			logging.String(logging.FieldImpact, "stage "+s.String()+" will be recomputed"),
		)
	}
	return dropped, nil
}

func removePartials(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, partialPrefix+"*"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove partial output: %w", err)
		}
	}
	return nil
}
