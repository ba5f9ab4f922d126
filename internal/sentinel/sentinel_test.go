package sentinel

import (
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/peterM/HangFixer/internal/errors"
	"github.com/peterM/HangFixer/internal/testutil"
)

func TestPath(t *testing.T) {
	m := NewManager(afero.NewMemMapFs())

	tests := []struct {
		workspace string
		want      string
	}{
		{"/ws/app.proj", "/ws/app.tmp"},
		{"/ws/app.sln", "/ws/app.tmp"},
		{"/ws/my.app.sln", "/ws/my.app.tmp"},
		{"/ws/Makefile", "/ws/Makefile.tmp"},
		{"/ws/./sub/../app.proj", "/ws/app.tmp"},
		{"/ws/app.tmp", "/ws/app.tmp.tmp"},
		{"/ws/app.TMP", "/ws/app.TMP.tmp"},
	}

	for _, tt := range tests {
		t.Run(tt.workspace, func(t *testing.T) {
			if got := m.Path(tt.workspace); got != tt.want {
				t.Errorf("Path(%q) = %q, want %q", tt.workspace, got, tt.want)
			}
			if m.Path(tt.workspace) != m.Path(tt.workspace) {
				t.Error("Path is not deterministic")
			}
		})
	}
}

func TestPathCustomExtension(t *testing.T) {
	m := NewManager(afero.NewMemMapFs(), WithExtension(".loading"))
	if got := m.Path("/ws/app.proj"); got != "/ws/app.loading" {
		t.Errorf("Path() = %q, want /ws/app.loading", got)
	}
	if m.Extension() != ".loading" {
		t.Errorf("Extension() = %q", m.Extension())
	}
}

func TestArmDisarmLifecycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	armedAt := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	m := NewManager(fs, WithLabel("Hang Fixer"), WithClock(func() time.Time { return armedAt }))
	const ws = "/ws/app.proj"

	if m.IsArmed(ws) {
		t.Fatal("fresh workspace reported armed")
	}

	if err := m.Arm(ws, "attempt-1"); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if !m.IsArmed(ws) {
		t.Fatal("IsArmed() = false after Arm")
	}

	data, err := afero.ReadFile(fs, "/ws/app.tmp")
	if err != nil {
		t.Fatalf("failed to read sentinel: %v", err)
	}
	stamp := string(data)
	for _, want := range []string{"Hang Fixer\n", "workspace: /ws/app.proj", "attempt: attempt-1", "armed_at: 2026-10-17T09:30:00Z"} {
		if !strings.Contains(stamp, want) {
			t.Errorf("stamp %q missing %q", stamp, want)
		}
	}

	if err := m.Arm(ws, "attempt-2"); err != nil {
		t.Fatalf("re-Arm failed: %v", err)
	}
	data, _ = afero.ReadFile(fs, "/ws/app.tmp")
	if strings.Contains(string(data), "attempt-1") {
		t.Error("re-Arm did not overwrite the previous stamp")
	}

	if err := m.Disarm(ws); err != nil {
		t.Fatalf("Disarm failed: %v", err)
	}
	if m.IsArmed(ws) {
		t.Error("IsArmed() = true after Disarm")
	}

	if err := m.Disarm(ws); err != nil {
		t.Errorf("Disarm of absent sentinel returned %v", err)
	}
}

func TestIsArmedHasNoSideEffects(t *testing.T) {
	fs := testutil.NewFaultFs(afero.NewMemMapFs())
	m := NewManager(fs)

	for i := 0; i < 3; i++ {
		m.IsArmed("/ws/app.proj")
	}
	if ok, _ := afero.Exists(fs, "/ws/app.tmp"); ok {
		t.Error("IsArmed created the sentinel")
	}
	if len(fs.Removed()) != 0 {
		t.Error("IsArmed removed something")
	}
}

func TestFailuresAreClassified(t *testing.T) {
	t.Run("arm permission denied", func(t *testing.T) {
		fs := testutil.NewFaultFs(afero.NewMemMapFs())
		fs.FailWrite("/ws/app.tmp", syscall.EACCES)
		m := NewManager(fs)

		err := m.Arm("/ws/app.proj", "")
		var ioErr *errors.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected *IOError, got %T: %v", err, err)
		}
		if ioErr.Op != errors.OpArm || ioErr.Kind != errors.KindPermission {
			t.Errorf("got op=%s kind=%s", ioErr.Op, ioErr.Kind)
		}
		if m.IsArmed("/ws/app.proj") {
			t.Error("failed Arm left a sentinel behind")
		}
	})

	t.Run("disarm locked file", func(t *testing.T) {
		fs := testutil.NewFaultFs(afero.NewMemMapFs())
		m := NewManager(fs)
		if err := m.Arm("/ws/app.proj", ""); err != nil {
			t.Fatalf("Arm failed: %v", err)
		}
		fs.FailRemove("/ws/app.tmp", syscall.EBUSY)

		err := m.Disarm("/ws/app.proj")
		if !errors.IsIOFailure(err) {
			t.Fatalf("expected IO failure, got %v", err)
		}
		if errors.Classify(err) != errors.KindOther {
			t.Errorf("Classify() = %s, want other", errors.Classify(err))
		}
	})

	t.Run("path too long", func(t *testing.T) {
		fs := testutil.NewFaultFs(afero.NewMemMapFs())
		fs.FailWrite("/ws/app.tmp", syscall.ENAMETOOLONG)
		m := NewManager(fs)

		if err := m.Arm("/ws/app.proj", ""); !errors.Is(err, errors.ErrPathTooLong) {
			t.Errorf("expected ErrPathTooLong, got %v", err)
		}
	})

	t.Run("probe failure reads as not armed", func(t *testing.T) {
		fs := testutil.NewFaultFs(afero.NewMemMapFs())
		m := NewManager(fs)
		_ = m.Arm("/ws/app.proj", "")
		fs.FailStat("/ws/app.tmp", syscall.EACCES)

		armed, err := m.Probe("/ws/app.proj")
		if armed || err == nil {
			t.Errorf("Probe() = %v, %v; want false and an error", armed, err)
		}
		if m.IsArmed("/ws/app.proj") {
			t.Error("IsArmed() should be false when the probe fails")
		}
	})
}

func TestEmptyWorkspaceRejected(t *testing.T) {
	m := NewManager(afero.NewMemMapFs())

	if err := m.Arm("  ", ""); !errors.Is(err, errors.ErrInvalidWorkspace) {
		t.Errorf("Arm(empty) = %v, want ErrInvalidWorkspace", err)
	}
	if err := m.Disarm(""); !errors.Is(err, errors.ErrInvalidWorkspace) {
		t.Errorf("Disarm(empty) = %v, want ErrInvalidWorkspace", err)
	}
	if m.IsArmed("") {
		t.Error("IsArmed(empty) = true")
	}
}

func TestInspect(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManager(fs)

	if _, err := m.Inspect("/ws/app.proj"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Inspect(absent) = %v, want ErrNotFound", err)
	}

	_ = m.Arm("/ws/app.proj", "a-7")
	info, err := m.Inspect("/ws/app.proj")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Path != "/ws/app.tmp" || !strings.Contains(info.Stamp, "a-7") {
		t.Errorf("unexpected info: %+v", info)
	}
}
