// Package mux drives an OS-provided container sink writer: it declares one
// video stream and zero, one or two audio streams, accepts timestamped
// buffers, and finalizes a well-formed MPEG-4 file.
//
// All timestamps are derived from per-stream sample-count clocks rather than
// wall time, so playback speed stays stable even when acquisition lags.
package mux

import (
	"errors"

	"wincap.dev/wincap/params"
)

// TicksPerSecond counts 100-nanosecond ticks, the native timestamp
// resolution of the underlying Media Foundation sink writer.
const TicksPerSecond int64 = 10_000_000

var (
	ErrNotImplemented = errors.New("muxer backend is not implemented on this platform")
	ErrNotOpen        = errors.New("muxer is not open")
	ErrAlreadyOpen    = errors.New("a muxer instance is already open")
)

// AudioFormat describes the PCM layout of one audio source.
type AudioFormat struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	Float         bool
}

// Config describes the streams a Muxer instance must open.
type Config struct {
	OutputPath string
	Variant    params.Variant

	Width, Height uint32
	TargetFPS     uint32

	// CombinedAudio is used for VariantVideoPlusOneAudio and
	// VariantAudioOnlyOneTrack.
	CombinedAudio AudioFormat
	// SystemAudio and MicAudio are used for the two dual-track variants.
	SystemAudio AudioFormat
	MicAudio    AudioFormat
}

// HasVideo reports whether the config's variant includes a video stream.
func (c Config) HasVideo() bool {
	return c.Variant == params.VariantVideoOnly ||
		c.Variant == params.VariantVideoPlusOneAudio ||
		c.Variant == params.VariantVideoPlusTwoAudio
}

// DualTrack reports whether the config's variant carries two independent
// audio tracks.
func (c Config) DualTrack() bool {
	return c.Variant == params.VariantVideoPlusTwoAudio ||
		c.Variant == params.VariantAudioOnlyTwoTrack
}

// CombinedTrack reports whether the config's variant carries a single
// combined audio track.
func (c Config) CombinedTrack() bool {
	return c.Variant == params.VariantVideoPlusOneAudio ||
		c.Variant == params.VariantAudioOnlyOneTrack
}

// Sink is the interface the capture orchestrator drives. Production code
// gets a *Muxer (platform-specific); tests substitute a mock recording
// submissions.
type Sink interface {
	AddVideoFrame(buf []byte, elapsedMS int64) error
	AddCombinedAudio(buf []byte, frames uint32, elapsedMS int64) error
	AddSystemAudio(buf []byte, frames uint32, elapsedMS int64) error
	AddMicAudio(buf []byte, frames uint32, elapsedMS int64) error
	Finalize() error
	Close() error
}

// Open opens a platform-specific muxer instance for cfg. Only one instance
// may be open per process at a time; the enforcement lives in the
// platform-specific open().
func Open(cfg Config) (*Muxer, error) {
	return open(cfg)
}

// clock is a per-stream monotonic sample-count clock.
type clock struct {
	emitted     uint64
	unitsPerSec int64
	started     bool
}

func newClock(unitsPerSec int64) *clock {
	return &clock{unitsPerSec: unitsPerSec}
}

// timestamp returns the (sampleTime, duration) pair in ticks for the next
// buffer of n units (frames or samples), without advancing the clock.
func (c *clock) timestamp(n uint64) (sampleTime, duration int64) {
	sampleTime = int64(c.emitted) * TicksPerSecond / c.unitsPerSec
	duration = int64(n) * TicksPerSecond / c.unitsPerSec
	return sampleTime, duration
}

// advance moves the clock forward by n units. Must be called exactly once
// per submitted buffer, after timestamp() for that buffer.
func (c *clock) advance(n uint64) {
	c.emitted += n
	c.started = true
}

func (c *clock) final() int64 {
	return int64(c.emitted) * TicksPerSecond / c.unitsPerSec
}
