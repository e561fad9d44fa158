//go:build !windows

package audio

// This core targets WASAPI exclusively; non-Windows builds compile a
// fast-failing stub rather than a partial backend.
type unsupportedSource struct{}

func openPlatform(endpoint Endpoint) (platformSource, Format, error) {
	return nil, Format{}, ErrNotImplemented
}

func (unsupportedSource) start() error                       { return ErrNotImplemented }
func (unsupportedSource) stop() error                        { return ErrNotImplemented }
func (unsupportedSource) getBuffer() ([]byte, uint32, error) { return nil, 0, ErrNotImplemented }
func (unsupportedSource) releaseBuffer(frames uint32) error  { return ErrNotImplemented }
func (unsupportedSource) close() error                       { return nil }
