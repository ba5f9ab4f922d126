// Package event provides a synchronous pub-sub bus that decouples the phase
// sequencer from its observers (metrics, logging, the watch command).
//
// Event types follow the pattern "category.action":
//   - phase.changed
//   - sentinel.armed, sentinel.disarmed, sentinel.stale_detected
//   - recovery.completed
//   - io.failed
//
// The [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine and a panicking handler does not stop delivery to the
// others.
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeRecoveryCompleted, func(e event.Event) {
//	    rc := e.(event.RecoveryCompletedEvent)
//	    log.Printf("purged %d targets under %s", rc.Deleted, rc.Root)
//	})
package event
