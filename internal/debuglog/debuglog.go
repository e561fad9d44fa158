// Package debuglog provides a lazily-initialized, env-gated logger shared by
// the low-level capture, audio and mux packages. It is deliberately cheap
// when disabled: a single atomic-backed bool check per call site.
package debuglog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is a component-scoped debug logger gated by an environment variable.
type Logger struct {
	component  string
	enabledVar string
	fileVar    string

	enabledOnce sync.Once
	enabledFlag bool

	outputOnce sync.Once
	output     io.Writer

	loggerOnce sync.Once
	logger     *log.Logger
}

// New returns a Logger for component, enabled when WINCAP_DEBUG=1 or the
// component-specific enabledVar is set to 1, optionally redirected to the
// file named by fileVar (or WINCAP_DEBUG_FILE).
func New(component, enabledVar, fileVar string) *Logger {
	return &Logger{component: component, enabledVar: enabledVar, fileVar: fileVar, output: os.Stderr}
}

func (l *Logger) enabled() bool {
	l.enabledOnce.Do(func() {
		l.enabledFlag = strings.TrimSpace(os.Getenv("WINCAP_DEBUG")) == "1" ||
			strings.TrimSpace(os.Getenv(l.enabledVar)) == "1"
	})
	return l.enabledFlag
}

func (l *Logger) writer() io.Writer {
	l.outputOnce.Do(func() {
		p := strings.TrimSpace(os.Getenv(l.fileVar))
		if p == "" {
			p = strings.TrimSpace(os.Getenv("WINCAP_DEBUG_FILE"))
		}
		if p == "" {
			return
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "wincap %s debug log open failed: %v\n", l.component, err)
			return
		}
		l.output = f
	})
	return l.output
}

// Printf logs a debug line when the logger is enabled; otherwise it is a
// cheap no-op.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled() {
		return
	}
	l.loggerOnce.Do(func() {
		l.logger = log.New(l.writer(), "wincap/"+l.component+" ", log.LstdFlags|log.Lmicroseconds)
	})
	l.logger.Printf(format, args...)
}

// ShouldLogRateLimited reports whether a rate-limited event (e.g. a slow
// write or a dropped-frame warning) should be logged now, given the last
// time it fired and the minimum period between log lines. It is safe for
// concurrent use.
func ShouldLogRateLimited(last *atomic.Int64, period time.Duration) bool {
	if last == nil || period <= 0 {
		return true
	}

	now := time.Now().UnixNano()
	for {
		prev := last.Load()
		if prev != 0 && time.Duration(now-prev) < period {
			return false
		}
		if last.CompareAndSwap(prev, now) {
			return true
		}
	}
}
