package host

import (
	"testing"

	"github.com/peterM/HangFixer/internal/phase"
)

type call struct {
	trigger phase.Trigger
	id      string
}

// recorder is a phase.Listener that records calls.
type recorder struct {
	calls []call
}

func (r *recorder) add(t phase.Trigger, id string) phase.Transition {
	r.calls = append(r.calls, call{t, id})
	return phase.Transition{WorkspaceID: id, Trigger: t}
}

func (r *recorder) BeginPrimary(id string) phase.Transition {
	return r.add(phase.TriggerBeginPrimary, id)
}
func (r *recorder) CompletePrimary(id string) phase.Transition {
	return r.add(phase.TriggerCompletePrimary, id)
}
func (r *recorder) BeginSecondary(id string) phase.Transition {
	return r.add(phase.TriggerBeginSecondary, id)
}
func (r *recorder) CompleteSecondary(id string) phase.Transition {
	return r.add(phase.TriggerCompleteSecondary, id)
}
func (r *recorder) Teardown(id string) phase.Transition {
	return r.add(phase.TriggerTeardown, id)
}

func TestAdapter_MapsBothHostGenerations(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec, nil)

	events := []Notification{
		{Event: BeforeOpenSolution, Path: "/ws/app.proj"},
		{Event: BeforeLoadProjectBatch},
		{Event: AfterOpenProject},
		{Event: AfterLoadProjectBatch},
		{Event: AfterOpenSolution},
		{Event: BeforeBackgroundSolutionLoadBegins},
		{Event: AfterLoadProject},
		{Event: AfterBackgroundSolutionLoadComplete},
		{Event: BeforeCloseSolution},
		{Event: AfterCloseSolution},
	}
	for _, n := range events {
		if reply := a.Handle(n); !reply.OK {
			t.Fatalf("Handle(%s) not OK", n.Event)
		}
	}

	want := []call{
		{phase.TriggerBeginPrimary, "/ws/app.proj"},
		{phase.TriggerCompletePrimary, "/ws/app.proj"},
		{phase.TriggerBeginSecondary, "/ws/app.proj"},
		{phase.TriggerCompleteSecondary, "/ws/app.proj"},
		{phase.TriggerTeardown, "/ws/app.proj"},
	}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call[%d] = %v, want %v", i, rec.calls[i], want[i])
		}
	}
	if a.Current() != "" {
		t.Errorf("Current() after close = %q, want empty", a.Current())
	}
}

func TestAdapter_SynchronousHostOnlyPrimary(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec, nil)

	a.Handle(Notification{Event: BeforeOpenSolution, Path: "/ws/app.proj"})
	a.Handle(Notification{Event: AfterOpenSolution})

	if len(rec.calls) != 2 {
		t.Fatalf("calls = %v, want 2", rec.calls)
	}
	if a.Current() != "/ws/app.proj" {
		t.Errorf("Current() = %q", a.Current())
	}
}

func TestAdapter_QueriesNeverVeto(t *testing.T) {
	a := NewAdapter(&recorder{}, nil)

	for _, name := range []string{QueryCloseSolution, QueryCloseProject, QueryUnloadProject} {
		t.Run(name, func(t *testing.T) {
			reply := a.Handle(Notification{Event: name})
			if reply.Cancel == nil || *reply.Cancel {
				t.Errorf("Cancel = %v, want false", reply.Cancel)
			}
			if reply.Delay != nil {
				t.Errorf("Delay should be unset, got %v", *reply.Delay)
			}
		})
	}

	reply := a.Handle(Notification{Event: QueryBackgroundLoadProjectBatch})
	if reply.Delay == nil || *reply.Delay {
		t.Errorf("Delay = %v, want false", reply.Delay)
	}
}

func TestAdapter_AcknowledgesEverything(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec, nil)

	tests := []Notification{
		{ID: 7, Event: "something_new"},
		{Event: BeforeOpenSolution},
		{Event: AfterOpenSolution},
		{Event: BeforeBackgroundSolutionLoadBegins},
		{Event: AfterCloseSolution},
	}
	for _, n := range tests {
		t.Run(n.Event, func(t *testing.T) {
			reply := a.Handle(n)
			if !reply.OK {
				t.Error("reply must be OK")
			}
			if reply.ID != n.ID {
				t.Errorf("ID = %v, want %v", reply.ID, n.ID)
			}
		})
	}

	// Nothing was open, so nothing reached the listener.
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none", rec.calls)
	}
}

func TestAdapter_ReopenSwitchesWorkspace(t *testing.T) {
	rec := &recorder{}
	a := NewAdapter(rec, nil)

	a.Handle(Notification{Event: BeforeOpenSolution, Path: "/a/one.proj"})
	a.Handle(Notification{Event: BeforeOpenSolution, Path: "/b/two.proj"})
	a.Handle(Notification{Event: AfterOpenSolution})

	last := rec.calls[len(rec.calls)-1]
	if last.id != "/b/two.proj" {
		t.Errorf("CompletePrimary went to %q, want /b/two.proj", last.id)
	}
}

func TestKnown(t *testing.T) {
	if !Known(QueryBackgroundLoadProjectBatch) {
		t.Error("expected query notification to be known")
	}
	if Known("before_open_workspace") {
		t.Error("unexpected name reported as known")
	}
}
