package harness

import (
	"time"
)

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventSpawned      EventKind = "spawned"
	EventSpawnFailed  EventKind = "spawn_failed"
	EventEarlyExit    EventKind = "early_exit"
	EventReady        EventKind = "ready"
	EventReadyTimeout EventKind = "ready_timeout"
	EventCanceled     EventKind = "canceled"
	EventStopped      EventKind = "stopped"
	EventKilled       EventKind = "killed"
	// EventClosed is emitted once when a ready Node is closed.
	EventClosed EventKind = "closed"
)

// Event describes one lifecycle transition of a launch.
type Event struct {
	Time     time.Time
	Kind     EventKind
	LaunchID string
	Attempt  int
	PID      int
	WorkDir  string
	// Persistent is set when WorkDir survives the node.
	Persistent bool
	// Status is set for early_exit, stopped and killed.
	Status *ExitStatus
	// Polls counts readiness polls in the attempt so far.
	Polls int
	// Elapsed is measured from the spawn of the attempt.
	Elapsed time.Duration
	Err     error
}

// Observer receives lifecycle events. Observe is called synchronously from
// the launching goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans events out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}
