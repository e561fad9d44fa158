//go:build !windows

package mux

// Muxer is the non-Windows stand-in; this core targets the Windows Media
// Foundation sink writer exclusively, so every operation fails fast with
// ErrNotImplemented rather than compiling a partial backend.
type Muxer struct{}

func open(cfg Config) (*Muxer, error) {
	return nil, ErrNotImplemented
}

func (m *Muxer) AddVideoFrame(buf []byte, elapsedMS int64) error { return ErrNotImplemented }
func (m *Muxer) AddCombinedAudio(buf []byte, frames uint32, elapsedMS int64) error {
	return ErrNotImplemented
}
func (m *Muxer) AddSystemAudio(buf []byte, frames uint32, elapsedMS int64) error {
	return ErrNotImplemented
}
func (m *Muxer) AddMicAudio(buf []byte, frames uint32, elapsedMS int64) error {
	return ErrNotImplemented
}
func (m *Muxer) Finalize() error { return ErrNotImplemented }
func (m *Muxer) Close() error    { return nil }
