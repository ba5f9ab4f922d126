// Package host adapts the host's wide notification interface onto
// phase.Listener.
//
// The host only ever sees success. Whatever the sequencer reports is logged
// here and then dropped, so a broken cache directory can slow a load down but
// never stop it.
package host

import (
	"sync"

	"github.com/peterM/HangFixer/internal/logging"
	"github.com/peterM/HangFixer/internal/phase"
)

// Adapter remembers which workspace the host is loading, because only the
// first notification of a cycle names it.
type Adapter struct {
	listener phase.Listener
	logger   *logging.Logger

	mu      sync.Mutex
	current string
}

// NewAdapter creates an Adapter driving listener.
func NewAdapter(listener phase.Listener, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Adapter{listener: listener, logger: logger}
}

// Current returns the workspace being loaded, or "" between loads.
func (a *Adapter) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Handle dispatches one notification and returns the acknowledgement.
func (a *Adapter) Handle(n Notification) Reply {
	a.mu.Lock()
	defer a.mu.Unlock()

	reply := Reply{ID: n.ID, OK: true}

	switch n.Event {
	case BeforeOpenSolution:
		if n.Path == "" {
			a.logger.Warn("open notification without a descriptor path")
			return reply
		}
		a.current = n.Path
		a.record(a.listener.BeginPrimary(n.Path))

	case AfterOpenSolution:
		if a.requireCurrent(n.Event) {
			a.record(a.listener.CompletePrimary(a.current))
		}

	case BeforeBackgroundSolutionLoadBegins:
		if a.requireCurrent(n.Event) {
			a.record(a.listener.BeginSecondary(a.current))
		}

	case AfterBackgroundSolutionLoadComplete:
		if a.requireCurrent(n.Event) {
			a.record(a.listener.CompleteSecondary(a.current))
		}

	case AfterCloseSolution:
		if a.current != "" {
			a.record(a.listener.Teardown(a.current))
			a.current = ""
		}

	case QueryCloseSolution, QueryCloseProject, QueryUnloadProject:
		reply.Cancel = boolPtr(false)

	case QueryBackgroundLoadProjectBatch:
		reply.Delay = boolPtr(false)

	default:
		if !Known(n.Event) {
			a.logger.Debug("unknown host notification", "event", n.Event)
		}
	}

	return reply
}

func (a *Adapter) requireCurrent(event string) bool {
	if a.current == "" {
		a.logger.Warn("host notification with no workspace open", "event", event)
		return false
	}
	return true
}

// record logs the outcome and drops it. The sequencer has already logged
// each absorbed failure at WARN.
func (a *Adapter) record(tr phase.Transition) {
	a.logger.Debug("host notification handled",
		"workspace", tr.WorkspaceID,
		"trigger", string(tr.Trigger),
		"state", tr.To.String(),
		"degraded", tr.Failed(),
	)
}

func boolPtr(b bool) *bool { return &b }
