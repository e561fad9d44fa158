// Package capture pulls raw BGRA desktop frames from the OS compositor via
// DXGI desktop duplication. Acquisition is non-blocking and polled: a call
// either returns a fresh frame, a cached copy of the last frame when the
// compositor has nothing new, or a "no frame" result.
package capture

import "errors"

var (
	ErrNotImplemented = errors.New("screen capture backend is not implemented on this platform")
	ErrInvalidOptions = errors.New("invalid screen capture options")
	ErrAccessLost     = errors.New("desktop duplication access was lost")
)

// Region describes a sub-rectangle of the selected monitor. Open validates it
// when RegionEnabled is set; the DXGI backend does not crop to it, so frames
// always cover the whole monitor.
type Region struct {
	X, Y, W, H int
}

// Options configures a capture session.
type Options struct {
	MonitorIndex  int
	RegionEnabled bool
	Region        Region
}

// Frame is one BGRA capture result. Buf is exactly Width*Height*4 bytes.
type Frame struct {
	Buf    []byte
	Width  uint32
	Height uint32
}

// Source is an open desktop duplication session.
type Source struct {
	platform platformSource
	width    uint32
	height   uint32
}

// Open initializes a desktop duplication stream on the requested monitor.
func Open(options *Options) (*Source, error) {
	opts, err := validateOptions(options)
	if err != nil {
		return nil, err
	}
	p, width, height, err := openPlatform(opts)
	if err != nil {
		return nil, err
	}
	return &Source{platform: p, width: width, height: height}, nil
}

// Width and Height report the duplicated output's geometry.
func (s *Source) Width() uint32  { return s.width }
func (s *Source) Height() uint32 { return s.height }

// Start marks the source capturing.
func (s *Source) Start() error {
	return s.platform.start()
}

// GetFrame acquires the next compositor frame without blocking. dualTrack
// selects the row-copy orientation: dual-track muxer configurations expect
// top-down rows, while the single combined-track configuration expects the
// rows flipped bottom-up. Returns (nil, nil) when no new frame and no cache
// is available.
func (s *Source) GetFrame(dualTrack bool) (*Frame, error) {
	return s.platform.getFrame(dualTrack)
}

// Stop halts capture without releasing the underlying duplication handle.
func (s *Source) Stop() error {
	return s.platform.stop()
}

// Close releases every GPU handle and the cached frame. Idempotent.
func (s *Source) Close() error {
	return s.platform.close()
}

func validateOptions(options *Options) (*Options, error) {
	if options == nil {
		options = &Options{}
	}
	if options.MonitorIndex < 0 {
		return nil, ErrInvalidOptions
	}
	if options.RegionEnabled && (options.Region.W <= 0 || options.Region.H <= 0) {
		return nil, ErrInvalidOptions
	}
	return options, nil
}

type platformSource interface {
	start() error
	getFrame(dualTrack bool) (*Frame, error)
	stop() error
	close() error
}
