// Package audio captures PCM audio from a shared-mode WASAPI endpoint —
// either the default microphone or the default render endpoint in loopback
// mode — and synthesizes silence to keep the stream continuous when the
// endpoint has nothing new to deliver.
package audio

import (
	"errors"
	"time"
)

var (
	ErrNotImplemented = errors.New("audio backend is not implemented on this platform")
	ErrNotCapturing   = errors.New("audio source is not capturing")
)

// Endpoint selects which WASAPI endpoint a Source opens.
type Endpoint int

const (
	// EndpointMicrophone opens the default capture (eCapture) endpoint with
	// no special stream flags.
	EndpointMicrophone Endpoint = iota
	// EndpointLoopback opens the default render (eRender) endpoint with
	// AUDCLNT_STREAMFLAGS_LOOPBACK set, capturing whatever the OS is mixing
	// for playback.
	EndpointLoopback
)

func (e Endpoint) String() string {
	if e == EndpointLoopback {
		return "loopback"
	}
	return "microphone"
}

// Format describes the PCM layout an initialized Source delivers.
type Format struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	Float         bool
}

// BlockAlign is the byte size of one multi-channel sample frame.
func (f Format) BlockAlign() uint32 {
	return uint32(f.Channels) * uint32(f.BitsPerSample) / 8
}

// Buffer is one delivery from GetBuffer: either a slice borrowed from the OS
// ring (Synthesized == false, must be released) or a process-owned
// zero-filled slice synthesized to fill a gap (Synthesized == true, must
// never be released).
type Buffer struct {
	Data        []byte
	Frames      uint32
	Synthesized bool
}

// Source is a single WASAPI capture instance.
type Source struct {
	endpoint Endpoint
	platform platformSource
	format   Format
	silence  silenceGenerator

	capturing bool
}

// Open initializes a WASAPI capture client on the given endpoint in shared
// mode with a 50ms buffer, matching the original core's latency budget.
func Open(endpoint Endpoint) (*Source, error) {
	p, format, err := openPlatform(endpoint)
	if err != nil {
		return nil, err
	}
	return &Source{endpoint: endpoint, platform: p, format: format}, nil
}

// Format reports the PCM layout negotiated at Open time.
func (s *Source) Format() Format { return s.format }

// Start begins capture. The silence generator is reset, so its wall-clock
// epoch is taken from the first idle poll after this Start.
func (s *Source) Start() error {
	if err := s.platform.start(); err != nil {
		return err
	}
	s.capturing = true
	s.silence.started = false
	return nil
}

// Stop halts capture without releasing the underlying client.
func (s *Source) Stop() error {
	s.capturing = false
	return s.platform.stop()
}

// GetBuffer returns the next available audio, synthesizing silence using a
// wall-clock-driven state machine when the OS ring has nothing new. now is
// injected so the silence generator is deterministically testable; callers
// pass time.Now().
func (s *Source) GetBuffer(now time.Time) (Buffer, error) {
	if !s.capturing {
		return Buffer{}, ErrNotCapturing
	}

	data, frames, err := s.platform.getBuffer()
	if err != nil {
		return Buffer{}, err
	}
	if frames > 0 {
		return Buffer{Data: data, Frames: frames}, nil
	}

	buf, frames := s.silence.next(now, s.format.SampleRate, s.format.BlockAlign())
	if frames == 0 {
		return Buffer{}, nil
	}
	return Buffer{Data: buf, Frames: frames, Synthesized: true}, nil
}

// ReleaseBuffer returns an OS-owned buffer to the audio client. Synthesized
// buffers must not be passed here; the silence generator owns that memory
// for the lifetime of the Source.
func (s *Source) ReleaseBuffer(frames uint32) error {
	return s.platform.releaseBuffer(frames)
}

// Close releases every OS handle. Idempotent.
func (s *Source) Close() error {
	return s.platform.close()
}

// platformSource is the OS-specific half of a Source.
type platformSource interface {
	start() error
	stop() error
	getBuffer() ([]byte, uint32, error)
	releaseBuffer(frames uint32) error
	close() error
}
