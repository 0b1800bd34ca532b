package harness

import (
	"log/slog"
	"time"
)

// DefaultPollInterval is the delay between readiness polls.
const DefaultPollInterval = 100 * time.Millisecond

type launcher struct {
	spawner      Spawner
	prober       Prober
	logger       *slog.Logger
	observer     Observer
	pollInterval time.Duration
	now          func() time.Time
}

// Option customizes Launch.
type Option func(*launcher)

// WithSpawner replaces the os/exec spawner.
func WithSpawner(s Spawner) Option {
	return func(l *launcher) {
		if s != nil {
			l.spawner = s
		}
	}
}

// WithProber replaces the lnrpc readiness probe.
func WithProber(p Prober) Option {
	return func(l *launcher) {
		if p != nil {
			l.prober = p
		}
	}
}

// WithLogger sets the logger; launches are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(l *launcher) {
		l.logger = logger
	}
}

// WithObserver registers lifecycle observers.
func WithObserver(observers ...Observer) Option {
	return func(l *launcher) {
		l.observer = Observers(append([]Observer{l.observer}, observers...)...)
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(l *launcher) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

func newLauncher(opts []Option) *launcher {
	l := &launcher{
		spawner:      ExecSpawner{},
		prober:       RPCProber{},
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.observer == nil {
		l.observer = multiObserver(nil)
	}
	return l
}
