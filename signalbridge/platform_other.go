//go:build !windows

package signalbridge

// No console control handler outside Windows; os/signal's SIGINT
// (os.Interrupt) notification in New is the only cancellation path wired.
func installPlatformHandler(b *Bridge) {}
