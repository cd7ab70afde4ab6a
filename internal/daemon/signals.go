package daemon

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context canceled on SIGINT or SIGTERM, so Run's
// select sees ctx.Done() and proceeds through the ordinary shutdown path
// instead of the process dying mid-write. Mirrors the
// signal.Notify(syscall.SIGINT, syscall.SIGTERM) pattern used throughout
// the pack's CLI entrypoints (e.g. the teacher's own
// wasm/example/server.go).
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
