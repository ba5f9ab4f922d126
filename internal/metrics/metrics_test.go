package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/peterM/HangFixer/internal/event"
)

func TestCollector_CountsEvents(t *testing.T) {
	bus := event.NewBus()
	c := New()
	c.Attach(bus)

	bus.Publish(event.NewPhaseChangedEvent("/ws/app.proj", "begin_primary", "idle", "phase1_open", true))
	bus.Publish(event.NewPhaseChangedEvent("/ws/app.proj", "complete_secondary", "idle", "phase2_done", false))
	bus.Publish(event.NewSentinelArmedEvent("/ws/app.proj", "/ws/app.tmp", "a1"))
	bus.Publish(event.NewSentinelArmedEvent("/ws/app.proj", "/ws/app.tmp", "a1"))
	bus.Publish(event.NewSentinelDisarmedEvent("/ws/app.proj", "/ws/app.tmp"))
	bus.Publish(event.NewStaleDetectedEvent("/ws/app.proj", "/ws/app.tmp"))
	bus.Publish(event.NewRecoveryCompletedEvent("/ws/app.proj", "/ws", 3, 1, 20*time.Millisecond))
	bus.Publish(event.NewIOFailedEvent("/ws/app.proj", "recover", "/ws/.cache", "permission_denied"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"in-order begin", testutil.ToFloat64(c.transitions.WithLabelValues("begin_primary", "true")), 1},
		{"out-of-order complete", testutil.ToFloat64(c.transitions.WithLabelValues("complete_secondary", "false")), 1},
		{"arm", testutil.ToFloat64(c.sentinelOps.WithLabelValues("arm")), 2},
		{"disarm", testutil.ToFloat64(c.sentinelOps.WithLabelValues("disarm")), 1},
		{"stale", testutil.ToFloat64(c.staleDetected), 1},
		{"recoveries", testutil.ToFloat64(c.recoveries), 1},
		{"deleted", testutil.ToFloat64(c.recoveredTargets), 3},
		{"failed", testutil.ToFloat64(c.recoveryFailures), 1},
		{"io failures", testutil.ToFloat64(c.ioFailures.WithLabelValues("recover", "permission_denied")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCollector_AttachDetach(t *testing.T) {
	bus := event.NewBus()
	c := New()

	c.Attach(bus)
	c.Attach(bus)
	if n := bus.SubscriptionCount(); n != 1 {
		t.Fatalf("SubscriptionCount() = %d, want 1", n)
	}

	c.Detach(bus)
	if n := bus.SubscriptionCount(); n != 0 {
		t.Fatalf("SubscriptionCount() after Detach = %d, want 0", n)
	}

	bus.Publish(event.NewStaleDetectedEvent("/ws/app.proj", "/ws/app.tmp"))
	if got := testutil.ToFloat64(c.staleDetected); got != 0 {
		t.Errorf("detached collector counted %v events", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	bus := event.NewBus()
	c := New()
	c.Attach(bus)
	bus.Publish(event.NewStaleDetectedEvent("/ws/app.proj", "/ws/app.tmp"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "hangfixer_stale_sentinels_detected_total 1") {
		t.Errorf("metrics output missing stale counter:\n%s", body)
	}
}

func TestCollector_Gather(t *testing.T) {
	c := New()
	c.observe(event.NewRecoveryCompletedEvent("/ws/app.proj", "/ws", 0, 0, time.Millisecond))

	n, err := testutil.GatherAndCount(c.Registry(), "hangfixer_recovery_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("GatherAndCount() = %d, want 1", n)
	}
}
