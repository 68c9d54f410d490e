// Package shutdown coordinates orderly process teardown. Callers register
// hooks that run before the process exits, either because a termination
// signal arrived or because Shutdown was called programmatically.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []func()       //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before
// the shutdown process begins. The top-level context will
// still be alive at this point, so you can use it to clean
// up resources if needed.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process. Usually the
// shutdown is kicked off by a signal handler, but this
// function can be used to trigger it programmatically.
// If no signal handler was installed, the hooks run
// synchronously on the calling goroutine.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch != nil {
		ch <- os.Interrupt

		return
	}

	cleanup()
}

// SetupHandler sets up a signal handler for SIGINT and SIGTERM
// and returns a context that will be canceled once the hooks
// have run. You can use this context to clean up resources
// before the process exits.
func SetupHandler() context.Context {
	mut.Lock()
	channel = make(chan os.Signal, 1)
	ch := channel
	mut.Unlock()

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		c := <-ch

		slog.Warn("Received " + c.String() + ", shutting down...")

		signal.Stop(ch)

		mut.Lock()
		channel = nil
		mut.Unlock()

		cleanup()
		cancel()
	}()

	return ctx
}

// cleanup runs the registered hooks in registration order, then clears them
// so a second trigger is a no-op.
func cleanup() {
	mut.Lock()
	defer mut.Unlock()

	for _, h := range hooks {
		h()
	}

	hooks = nil
}
