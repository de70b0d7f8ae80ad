package guard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/express-cli/internal/logger"
)

// DefaultLifetime is the age after which a marker is always considered stale.
const DefaultLifetime = time.Hour

var (
	// ErrAlreadyRunning is returned when another run holds the marker.
	ErrAlreadyRunning = errors.New("another express-cli run is in progress")

	errMalformedMarker = errors.New("marker does not start with a process id")
)

// Marker is an exclusive run marker stored on disk.
type Marker struct {
	path        string
	processName string
	lifetime    time.Duration
	// isRunning reports whether another process with the given executable name exists.
	isRunning func(processName string) (bool, error)
}

// NewMarker creates a marker at path owned by processes named processName.
// An empty processName defaults to the name of the current executable.
func NewMarker(path, processName string) *Marker {
	if processName == "" {
		processName = currentProcessName()
	}

	return &Marker{
		path:        filepath.Clean(path),
		processName: processName,
		lifetime:    DefaultLifetime,
		isRunning:   isOtherProcessRunning,
	}
}

// Acquire creates the marker or returns ErrAlreadyRunning.
func (m *Marker) Acquire(ctx context.Context) error {
	logger.Debug(ctx, "Checking for the presence of a run marker")

	info, err := os.Stat(m.path)

	switch {
	case err == nil:
		if !m.isStale(ctx, info.ModTime()) {
			return m.alreadyRunning()
		}

		logger.WarnKV(ctx, "Removing stale run marker", "path", m.path)

		if err = os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale marker: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read marker: %w", err)
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return m.alreadyRunning()
		}

		return fmt.Errorf("create marker: %w", err)
	}

	_, _ = f.WriteString(detectHolder().marshal())

	return f.Close()
}

// Holder reads the owner recorded in the marker.
func (m *Marker) Holder() (Holder, error) {
	contents, err := os.ReadFile(m.path)
	if err != nil {
		return Holder{}, fmt.Errorf("read marker: %w", err)
	}

	h, ok := parseHolder(string(contents))
	if !ok {
		return Holder{}, fmt.Errorf("%s: %w", m.path, errMalformedMarker)
	}

	return h, nil
}

// alreadyRunning names the owner of the marker when it can be read.
func (m *Marker) alreadyRunning() error {
	h, err := m.Holder()
	if err != nil {
		return fmt.Errorf("%s: %w", m.path, ErrAlreadyRunning)
	}

	return fmt.Errorf("%s held by %s: %w", m.path, h, ErrAlreadyRunning)
}

// Release removes the marker.
func (m *Marker) Release(ctx context.Context) {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "path", m.path, "error", err)
	}
}

// isStale decides whether a marker written at modTime belongs to a dead run.
func (m *Marker) isStale(ctx context.Context, modTime time.Time) bool {
	if time.Since(modTime) > m.lifetime {
		return true
	}

	running, err := m.isRunning(m.processName)
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)

		return false
	}

	return !running
}

// isOtherProcessRunning looks for a process named processName other than this one.
func isOtherProcessRunning(processName string) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == processName {
			return true, nil
		}
	}

	return false, nil
}

func currentProcessName() string {
	executable, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}

	return filepath.Base(executable)
}
