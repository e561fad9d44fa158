//go:build windows

package signalbridge

import (
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// installPlatformHandler adds a console control handler so CTRL_CLOSE_EVENT
// and CTRL_SHUTDOWN_EVENT — which os/signal does not surface on Windows —
// also request cancellation, matching the original core's dual SIGINT +
// SetConsoleCtrlHandler setup.
func installPlatformHandler(b *Bridge) {
	handler := func(ctrlType uint32) uintptr {
		switch ctrlType {
		case windows.CTRL_C_EVENT, windows.CTRL_BREAK_EVENT, windows.CTRL_CLOSE_EVENT, windows.CTRL_SHUTDOWN_EVENT:
			b.logger.Info("console control event received, requesting cancellation", zap.Uint32("ctrl_type", ctrlType))
			b.RequestCancel()
			return 1 // TRUE: handled
		default:
			return 0
		}
	}

	_ = windows.SetConsoleCtrlHandler(windows.NewCallback(handler), true)
}
