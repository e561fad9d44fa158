// Package signalbridge publishes a single cancellation flag the capture
// orchestrator polls cooperatively, fed by OS interrupt signals, and runs a
// last-resort emergency watchdog that, after a fixed timeout, requests
// cancellation itself and force-exits the process if the orchestrator is
// still running after a short grace period.
package signalbridge

import (
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// emergencyGracePeriod is how long the watchdog waits, after setting the
// cancel flag itself, before concluding the orchestrator is wedged.
const emergencyGracePeriod = 2 * time.Second

// emergencyTimeout is how long after WatchEmergencyTimeout the watchdog fires
// if no one has requested cancellation and IsRunning still reports true.
const emergencyTimeout = 5 * time.Minute

// EmergencyExitCode is the process exit code used by the watchdog's forced
// termination, distinct from a normal failure so callers/log scrapers can
// tell the two apart.
const EmergencyExitCode = 2

// Bridge owns the shared cancellation flag and the OS signal plumbing that
// sets it.
type Bridge struct {
	cancelled atomic.Bool
	notifyCh  chan os.Signal
	logger    *zap.Logger
}

// New wires os/signal interrupt notification (and, on Windows, a console
// control handler via platform_windows.go) into a fresh Bridge. Call Close to undo
// the signal registration.
func New(logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{logger: logger}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	b.notifyCh = ch

	go func() {
		if _, ok := <-ch; ok {
			b.logger.Info("signal received, requesting cancellation")
			b.RequestCancel()
		}
	}()

	installPlatformHandler(b)

	return b
}

// RequestCancel sets the cancellation flag. Idempotent.
func (b *Bridge) RequestCancel() {
	b.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested. The
// orchestrator polls this once per loop iteration.
func (b *Bridge) Cancelled() bool {
	return b.cancelled.Load()
}

// Close stops signal notification. It does not clear the cancellation flag.
func (b *Bridge) Close() {
	signal.Stop(b.notifyCh)
	close(b.notifyCh)
}

// IsRunningFunc reports whether the orchestrator's main loop is still
// executing; the watchdog uses it to decide whether a forced exit is
// warranted.
type IsRunningFunc func() bool

// WatchEmergencyTimeout starts the 5-minute emergency watchdog described by
// the original core's signals.c: if isRunning still reports true and no
// cancellation has been requested when the timeout elapses, it requests
// cancellation and, after a further grace
// period, force-exits the process with EmergencyExitCode. Returns a stop
// function that cancels the watchdog (e.g. once the recording finishes
// normally).
func (b *Bridge) WatchEmergencyTimeout(isRunning IsRunningFunc) (stop func()) {
	done := make(chan struct{})

	go func() {
		timer := time.NewTimer(emergencyTimeout)
		defer timer.Stop()

		select {
		case <-done:
			return
		case <-timer.C:
		}

		if !isRunning() || b.Cancelled() {
			return
		}

		b.logger.Warn("emergency timeout reached after 5 minutes, requesting cancellation")
		b.RequestCancel()

		grace := time.NewTimer(emergencyGracePeriod)
		defer grace.Stop()

		select {
		case <-done:
			return
		case <-grace.C:
		}

		if isRunning() {
			b.logger.Error("orchestrator unresponsive after emergency grace period, forcing exit")
			os.Exit(EmergencyExitCode)
		}
	}()

	var closed atomic.Bool
	return func() {
		if closed.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
