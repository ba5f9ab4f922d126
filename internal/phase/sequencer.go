// Package phase turns ordered workspace-load notifications into sentinel and
// recovery actions.
//
// A load cycle is BeginPrimary, CompletePrimary and optionally BeginSecondary,
// CompleteSecondary. The sentinel is armed at each begin and disarmed at each
// completion. Only BeginPrimary checks for a sentinel left behind by an
// earlier attempt, and if one is found the workspace caches are purged before
// the sentinel is re-armed. A crash during the secondary phase is therefore
// noticed on the next full load, not mid-cycle.
//
// Every operation returns a Transition describing what happened, including
// absorbed I/O failures. Nothing is ever returned as an error: callers that
// face the host discard the Transition once it has been logged.
package phase

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peterM/HangFixer/internal/errors"
	"github.com/peterM/HangFixer/internal/event"
	"github.com/peterM/HangFixer/internal/guard"
	"github.com/peterM/HangFixer/internal/logging"
	"github.com/peterM/HangFixer/internal/recovery"
)

// Listener receives the four meaningful load notifications plus teardown.
// Host adapters call it; Sequencer implements it.
type Listener interface {
	BeginPrimary(workspaceID string) Transition
	CompletePrimary(workspaceID string) Transition
	BeginSecondary(workspaceID string) Transition
	CompleteSecondary(workspaceID string) Transition
	Teardown(workspaceID string) Transition
}

// Sentinels is the subset of sentinel.Manager the sequencer needs.
type Sentinels interface {
	Path(workspaceID string) string
	Probe(workspaceID string) (bool, error)
	Arm(workspaceID, attemptID string) error
	Disarm(workspaceID string) error
}

// Recoverer purges stale state under a workspace root.
type Recoverer interface {
	Recover(root string) recovery.Report
}

// Transition records the outcome of one notification.
type Transition struct {
	WorkspaceID string
	Trigger     Trigger
	From        State
	To          State
	// InOrder is false when Trigger was not expected from From. The sentinel
	// action still ran.
	InOrder   bool
	AttemptID string

	// Detected is true when BeginPrimary found a sentinel from an unfinished attempt.
	Detected bool
	// Recovery is set when a recovery pass ran.
	Recovery *recovery.Report

	// Absorbed failures; none of these reach the host.
	ProbeErr  error
	ArmErr    error
	DisarmErr error
	GuardErr  error
	// Err is set when the notification was rejected outright (empty workspace).
	Err error
}

// Failed reports whether any part of the transition degraded.
func (t Transition) Failed() bool {
	return t.Err != nil || t.ProbeErr != nil || t.ArmErr != nil || t.DisarmErr != nil ||
		t.GuardErr != nil || (t.Recovery != nil && t.Recovery.Err() != nil)
}

// WorkspaceStatus is a point-in-time view of one tracked workspace.
type WorkspaceStatus struct {
	WorkspaceID    string    `json:"workspace_id"`
	Root           string    `json:"root"`
	State          string    `json:"state"`
	AttemptID      string    `json:"attempt_id,omitempty"`
	Cycles         int       `json:"cycles"`
	Recoveries     int       `json:"recoveries"`
	LastTransition time.Time `json:"last_transition"`
}

type workspaceState struct {
	id             string
	root           string
	state          State
	attemptID      string
	cycles         int
	recoveries     int
	lastTransition time.Time
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLocker replaces the default in-process per-workspace mutex.
func WithLocker(l guard.Locker) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithBus publishes transition events to bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Sequencer) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAttemptIDs replaces the attempt id generator, for tests.
func WithAttemptIDs(gen func() string) Option {
	return func(s *Sequencer) {
		if gen != nil {
			s.newAttemptID = gen
		}
	}
}

// Sequencer tracks per-workspace phase state and drives the sentinel.
// It is safe for concurrent use; notifications for the same workspace are
// serialized by the locker, distinct workspaces proceed in parallel.
type Sequencer struct {
	sentinels    Sentinels
	recoverer    Recoverer
	locker       guard.Locker
	bus          *event.Bus
	logger       *logging.Logger
	newAttemptID func() string

	mu         sync.Mutex
	workspaces map[string]*workspaceState
}

var _ Listener = (*Sequencer)(nil)

// New creates a Sequencer.
func New(sentinels Sentinels, recoverer Recoverer, opts ...Option) *Sequencer {
	s := &Sequencer{
		sentinels:    sentinels,
		recoverer:    recoverer,
		locker:       guard.NewKeyedMutex(),
		logger:       logging.NopLogger(),
		newAttemptID: uuid.NewString,
		workspaces:   make(map[string]*workspaceState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginPrimary starts a load cycle: detect, recover if needed, arm.
func (s *Sequencer) BeginPrimary(workspaceID string) Transition {
	return s.handle(TriggerBeginPrimary, workspaceID)
}

// CompletePrimary disarms after the primary load finished.
func (s *Sequencer) CompletePrimary(workspaceID string) Transition {
	return s.handle(TriggerCompletePrimary, workspaceID)
}

// BeginSecondary re-arms for the secondary load. No detection.
func (s *Sequencer) BeginSecondary(workspaceID string) Transition {
	return s.handle(TriggerBeginSecondary, workspaceID)
}

// CompleteSecondary disarms after the secondary load finished.
func (s *Sequencer) CompleteSecondary(workspaceID string) Transition {
	return s.handle(TriggerCompleteSecondary, workspaceID)
}

// Teardown forgets the workspace without touching the sentinel.
func (s *Sequencer) Teardown(workspaceID string) Transition {
	return s.handle(TriggerTeardown, workspaceID)
}

// State returns the current state of a workspace; untracked workspaces are idle.
func (s *Sequencer) State(workspaceID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.workspaces[key(workspaceID)]; ok {
		return st.state
	}
	return StateIdle
}

// Snapshot returns all tracked workspaces sorted by identifier.
func (s *Sequencer) Snapshot() []WorkspaceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkspaceStatus, 0, len(s.workspaces))
	for _, st := range s.workspaces {
		out = append(out, WorkspaceStatus{
			WorkspaceID:    st.id,
			Root:           st.root,
			State:          st.state.String(),
			AttemptID:      st.attemptID,
			Cycles:         st.cycles,
			Recoveries:     st.recoveries,
			LastTransition: st.lastTransition,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkspaceID < out[j].WorkspaceID })
	return out
}

func key(workspaceID string) string {
	return filepath.Clean(workspaceID)
}

func (s *Sequencer) handle(trigger Trigger, workspaceID string) Transition {
	if strings.TrimSpace(workspaceID) == "" {
		err := errors.NewValidationError("must not be empty").
			WithField("workspace").
			WithCause(errors.ErrInvalidWorkspace)
		s.logger.Warn("notification without workspace ignored", "trigger", string(trigger))
		return Transition{Trigger: trigger, Err: err}
	}

	id := key(workspaceID)
	release, guardErr := s.locker.Acquire(id)
	defer release()

	st := s.track(id)
	from := st.state
	to, inOrder := next(from, trigger)

	tr := Transition{
		WorkspaceID: id,
		Trigger:     trigger,
		From:        from,
		To:          to,
		InOrder:     inOrder,
		GuardErr:    guardErr,
	}

	attemptID := st.attemptID
	if trigger == TriggerBeginPrimary || (trigger == TriggerBeginSecondary && attemptID == "") {
		attemptID = s.newAttemptID()
	}
	tr.AttemptID = attemptID

	log := s.logger.WithWorkspace(id).WithAttempt(attemptID)
	if guardErr != nil {
		log.Warn("workspace guard degraded", "error", guardErr.Error())
	}
	if !inOrder {
		log.Warn("lifecycle notification out of order",
			"trigger", string(trigger),
			"from", from.String(),
			"to", to.String(),
		)
	}

	switch trigger {
	case TriggerBeginPrimary:
		s.detectAndRecover(&tr, st.root, log)
		tr.ArmErr = s.arm(id, attemptID, log)
	case TriggerBeginSecondary:
		tr.ArmErr = s.arm(id, attemptID, log)
	case TriggerCompletePrimary, TriggerCompleteSecondary:
		tr.DisarmErr = s.disarm(id, log)
	case TriggerTeardown:
	}

	s.commit(st, &tr)

	log.Info("phase transition",
		"trigger", string(trigger),
		"from", from.String(),
		"to", to.String(),
		"in_order", inOrder,
	)
	s.bus.Publish(event.NewPhaseChangedEvent(id, string(trigger), from.String(), to.String(), inOrder))
	return tr
}

// detectAndRecover runs the once-per-cycle check. A failed probe skips
// recovery for this attempt.
func (s *Sequencer) detectAndRecover(tr *Transition, root string, log *logging.Logger) {
	path := s.sentinels.Path(tr.WorkspaceID)

	armed, err := s.sentinels.Probe(tr.WorkspaceID)
	if err != nil {
		tr.ProbeErr = err
		s.absorb(tr.WorkspaceID, errors.OpProbe, path, err, log)
		return
	}
	if !armed {
		return
	}

	tr.Detected = true
	log.Warn("unfinished previous load detected", "sentinel", path, "root", root)
	s.bus.Publish(event.NewStaleDetectedEvent(tr.WorkspaceID, path))

	report := s.recoverer.Recover(root)
	tr.Recovery = &report

	for _, f := range report.Failed {
		s.absorb(tr.WorkspaceID, errors.OpRecover, f.Target.Path, f.Err, log)
	}
	log.Info("recovery finished",
		"root", root,
		"deleted", len(report.Deleted),
		"failed", len(report.Failed),
		"duration_ms", report.Duration.Milliseconds(),
	)
	s.bus.Publish(event.NewRecoveryCompletedEvent(tr.WorkspaceID, root, len(report.Deleted), len(report.Failed), report.Duration))
}

func (s *Sequencer) arm(id, attemptID string, log *logging.Logger) error {
	path := s.sentinels.Path(id)
	if err := s.sentinels.Arm(id, attemptID); err != nil {
		s.absorb(id, errors.OpArm, path, err, log)
		return err
	}
	log.Debug("sentinel armed", "sentinel", path)
	s.bus.Publish(event.NewSentinelArmedEvent(id, path, attemptID))
	return nil
}

func (s *Sequencer) disarm(id string, log *logging.Logger) error {
	path := s.sentinels.Path(id)
	if err := s.sentinels.Disarm(id); err != nil {
		s.absorb(id, errors.OpDisarm, path, err, log)
		return err
	}
	log.Debug("sentinel disarmed", "sentinel", path)
	s.bus.Publish(event.NewSentinelDisarmedEvent(id, path))
	return nil
}

// absorb logs and publishes a failure that is deliberately not propagated.
func (s *Sequencer) absorb(id string, op errors.Op, path string, err error, log *logging.Logger) {
	kind := errors.Classify(err)
	log.Warn("io failure absorbed",
		"op", string(op),
		"path", path,
		"kind", string(kind),
		"error", err.Error(),
	)
	s.bus.Publish(event.NewIOFailedEvent(id, string(op), path, string(kind)))
}

func (s *Sequencer) track(id string) *workspaceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.workspaces[id]
	if !ok {
		st = &workspaceState{id: id, root: recovery.Root(id), state: StateIdle}
		s.workspaces[id] = st
	}
	return st
}

func (s *Sequencer) commit(st *workspaceState, tr *Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr.To == StateIdle {
		delete(s.workspaces, st.id)
		return
	}

	st.state = tr.To
	st.attemptID = tr.AttemptID
	st.lastTransition = time.Now()
	if tr.Trigger == TriggerBeginPrimary {
		st.cycles++
	}
	if tr.Recovery != nil {
		st.recoveries++
	}
}
