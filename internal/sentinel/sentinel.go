// Package sentinel owns the marker file whose existence means "a workspace
// load started and has not finished yet".
//
// The marker sits next to the workspace descriptor with the descriptor's
// extension replaced, so /ws/app.proj is guarded by /ws/app.tmp. Its content
// is a human-readable stamp for whoever finds the file; nothing reads it back.
package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/peterM/HangFixer/internal/errors"
)

// DefaultExtension is the marker extension used when none is configured.
const DefaultExtension = ".tmp"

// DefaultLabel heads every stamp written by Arm.
const DefaultLabel = "HangFixer"

// Stamp is the diagnostic payload written into a sentinel.
type Stamp struct {
	Label     string
	Workspace string
	AttemptID string
	ArmedAt   time.Time
	PID       int
	Host      string
}

// String renders the stamp as "key: value" lines under the label.
func (s Stamp) String() string {
	var sb strings.Builder
	sb.WriteString(s.Label)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "workspace: %s\n", s.Workspace)
	if s.AttemptID != "" {
		fmt.Fprintf(&sb, "attempt: %s\n", s.AttemptID)
	}
	fmt.Fprintf(&sb, "armed_at: %s\n", s.ArmedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(&sb, "pid: %d\n", s.PID)
	fmt.Fprintf(&sb, "host: %s\n", s.Host)
	return sb.String()
}

// Option configures a Manager.
type Option func(*Manager)

// WithExtension sets the marker extension. It must include the leading dot.
func WithExtension(ext string) Option {
	return func(m *Manager) {
		if ext != "" {
			m.ext = ext
		}
	}
}

// WithLabel sets the first line of every stamp.
func WithLabel(label string) Option {
	return func(m *Manager) {
		if label != "" {
			m.label = label
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager arms, disarms and probes sentinels on a filesystem.
//
// Manager holds no per-workspace state and is safe for concurrent use; the
// caller is responsible for ordering Probe and Arm on the same workspace.
type Manager struct {
	fs    afero.Fs
	ext   string
	label string
	now   func() time.Time
	pid   int
	host  string
}

// NewManager creates a Manager operating on fs.
func NewManager(fs afero.Fs, opts ...Option) *Manager {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	m := &Manager{
		fs:    fs,
		ext:   DefaultExtension,
		label: DefaultLabel,
		now:   time.Now,
		pid:   os.Getpid(),
		host:  host,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extension returns the configured marker extension.
func (m *Manager) Extension() string {
	return m.ext
}

// Path returns the sentinel path for a workspace descriptor. It is a pure
// function of workspaceID and the configured extension. A descriptor that
// already carries the marker extension gets the marker appended instead, so
// the sentinel can never overwrite the descriptor itself.
func (m *Manager) Path(workspaceID string) string {
	clean := filepath.Clean(workspaceID)
	ext := filepath.Ext(clean)
	if strings.EqualFold(ext, m.ext) {
		return clean + m.ext
	}
	return strings.TrimSuffix(clean, ext) + m.ext
}

// Arm writes or overwrites the sentinel for workspaceID with a fresh stamp.
// Failures are returned as *errors.IOError for the caller to log and drop.
func (m *Manager) Arm(workspaceID, attemptID string) error {
	if err := validate(workspaceID); err != nil {
		return err
	}

	path := m.Path(workspaceID)
	stamp := Stamp{
		Label:     m.label,
		Workspace: workspaceID,
		AttemptID: attemptID,
		ArmedAt:   m.now(),
		PID:       m.pid,
		Host:      m.host,
	}

	if err := afero.WriteFile(m.fs, path, []byte(stamp.String()), 0644); err != nil {
		return errors.NewIOError(errors.OpArm, path, err)
	}
	return nil
}

// Disarm deletes the sentinel. An already-absent sentinel is not an error.
func (m *Manager) Disarm(workspaceID string) error {
	if err := validate(workspaceID); err != nil {
		return err
	}

	path := m.Path(workspaceID)
	if err := m.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.OpDisarm, path, err)
	}
	return nil
}

// IsArmed reports whether the sentinel exists. Probe failures read as false.
func (m *Manager) IsArmed(workspaceID string) bool {
	armed, _ := m.Probe(workspaceID)
	return armed
}

// Probe is IsArmed with the underlying failure exposed for logging.
func (m *Manager) Probe(workspaceID string) (bool, error) {
	if err := validate(workspaceID); err != nil {
		return false, err
	}

	path := m.Path(workspaceID)
	armed, err := afero.Exists(m.fs, path)
	if err != nil {
		return false, errors.NewIOError(errors.OpProbe, path, err)
	}
	return armed, nil
}

// Info describes an existing sentinel for display.
type Info struct {
	Path    string
	ModTime time.Time
	Stamp   string
}

// Inspect returns the sentinel's modification time and raw stamp text.
// It is for operators; the detection path only ever uses Probe.
func (m *Manager) Inspect(workspaceID string) (*Info, error) {
	if err := validate(workspaceID); err != nil {
		return nil, err
	}

	path := m.Path(workspaceID)
	fi, err := m.fs.Stat(path)
	if err != nil {
		return nil, errors.NewIOError(errors.OpProbe, path, err)
	}
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return nil, errors.NewIOError(errors.OpProbe, path, err)
	}
	return &Info{Path: path, ModTime: fi.ModTime(), Stamp: string(data)}, nil
}

func validate(workspaceID string) error {
	if strings.TrimSpace(workspaceID) == "" {
		return errors.NewValidationError("must not be empty").
			WithField("workspace").
			WithCause(errors.ErrInvalidWorkspace)
	}
	return nil
}
