package harness

import (
	"io"
	"time"
)

const (
	// DefaultNetwork locates the control socket for the default --regtest argument.
	DefaultNetwork = "regtest"
	// DefaultAttempts is the relaunch budget after early exits.
	DefaultAttempts = 3
	// DefaultStopGrace bounds the graceful stop attempted during Close.
	DefaultStopGrace = 5 * time.Second
)

// Conf is the launch configuration. The zero value of each field means its
// default except Args and Attempts; start from DefaultConf.
type Conf struct {
	// Args are extra lightningd arguments, each a plain token, e.g.
	// "--log-level=debug". --lightning-dir is always managed by the harness.
	Args []string
	// ViewStdout forwards daemon stdout to Stdout instead of discarding it.
	ViewStdout bool
	// Stdout receives daemon output when ViewStdout is set; os.Stdout if nil.
	Stdout io.Writer
	// Network names the subdirectory holding the control socket and must
	// match the network selected in Args.
	Network string
	// TmpDir places a fresh temporary work directory under this root.
	TmpDir string
	// StaticDir uses (and keeps) this persistent work directory. At most one
	// of TmpDir and StaticDir may be set; with neither, a temporary directory
	// is created under $TEMPDIR_ROOT or the OS temp dir.
	StaticDir string
	// Attempts is how many relaunches are allowed after early exits.
	Attempts int
	// ReadyTimeout bounds the wait for readiness across all attempts. Zero
	// waits forever, as long as the process stays alive.
	ReadyTimeout time.Duration
	// StopGrace bounds the graceful stop Close performs for persistent
	// directories before it kills the process.
	StopGrace time.Duration
}

// DefaultConf returns the configuration used by New.
func DefaultConf() Conf {
	return Conf{
		Args:      []string{"--regtest"},
		Network:   DefaultNetwork,
		Attempts:  DefaultAttempts,
		StopGrace: DefaultStopGrace,
	}
}

func (c Conf) normalized() Conf {
	out := c
	out.Args = append([]string(nil), c.Args...)
	if out.Network == "" {
		out.Network = DefaultNetwork
	}
	if out.Attempts < 0 {
		out.Attempts = 0
	}
	if out.StopGrace <= 0 {
		out.StopGrace = DefaultStopGrace
	}
	return out
}
