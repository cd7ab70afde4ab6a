// Package ptymux runs the single worker that polls every pane's PTY master
// fd, feeds ready bytes into the pane, and wakes client-facing goroutines so
// they can pull a fresh delta (§4.8).
package ptymux

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/paneserver/termd/internal/pane"
)

const (
	maxPolledPanes = 64
	readBufSize    = 4096
	pollTimeoutMs  = 1000
	idleSleep      = 100 * time.Millisecond
)

// Source supplies the live pane set to poll each iteration. *session.Session
// satisfies this.
type Source interface {
	Panes() []*pane.Pane
}

// Multiplexer owns the PTY reader loop. It is built fresh over whatever
// panes Source.Panes() returns each iteration, so panes may be added or
// removed from the session while the loop runs.
type Multiplexer struct {
	source Source
	wake   chan struct{}
}

// New returns a Multiplexer over source. Call Run to start the poll loop.
func New(source Source) *Multiplexer {
	return &Multiplexer{
		source: source,
		wake:   make(chan struct{}, 1),
	}
}

// Wake returns the channel signaled once per poll iteration that fed any
// bytes into any pane. Client-facing workers select on it to know a fresh
// delta may be available, instead of polling panes on a timer.
func (m *Multiplexer) Wake() <-chan struct{} {
	return m.wake
}

func (m *Multiplexer) signalWake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run polls every pane's PTY master until ctx is canceled. It never returns
// an error: a per-pane read error or hang-up is not logged; it triggers a
// liveness check (Pane.IsAlive) that clears the pane's PID if its child has
// exited (§4.8's "I/O errors / broken-pipe reads are graceful exit").
func (m *Multiplexer) Run(ctx context.Context) {
	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		panes := m.source.Panes()
		if len(panes) > maxPolledPanes {
			panes = panes[:maxPolledPanes]
		}
		if len(panes) == 0 {
			time.Sleep(idleSleep)
			continue
		}

		fds := make([]unix.PollFd, len(panes))
		for i, p := range panes {
			fds[i] = unix.PollFd{Fd: int32(p.PTY().Fd()), Events: unix.POLLIN}
		}

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			slog.Warn("ptymux: poll failed", "err", err)
			time.Sleep(idleSleep)
			continue
		}
		if n == 0 {
			continue
		}

		for i, fd := range fds {
			if fd.Revents == 0 {
				continue
			}
			p := panes[i]

			if fd.Revents&unix.POLLIN != 0 {
				nr, rerr := p.PTY().Read(buf)
				if nr > 0 {
					p.Feed(buf[:nr])
					m.signalWake()
				}
				if rerr != nil {
					p.IsAlive() // clears the stored PID if the child has exited
					continue
				}
			}

			if fd.Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
				p.IsAlive()
			}
		}
	}
}
