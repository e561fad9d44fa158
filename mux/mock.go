package mux

import "sync"

// Submission records one buffer handed to a MockSink, keyed by which stream
// it landed on.
type Submission struct {
	Stream     string // "video", "combined", "system" or "mic"
	Frames     uint32 // 1 for video, sample count for audio
	SampleTime int64
	Duration   int64
	ElapsedMS  int64
	Bytes      int
}

// MockSink is a Sink that records every submission instead of driving an OS
// encoder, for use in orchestrator and end-to-end tests.
type MockSink struct {
	mu sync.Mutex

	video    *clock
	combined *clock
	system   *clock
	mic      *clock

	Submissions []Submission
	Finalized   bool
	Closed      bool

	FailNextSubmit bool
	FailFinalize   bool
}

// NewMockSink builds a MockSink whose clocks match cfg, so the recorded
// timestamps follow the same formula the real Muxer would produce.
func NewMockSink(cfg Config) *MockSink {
	s := &MockSink{}
	if cfg.HasVideo() {
		s.video = newClock(int64(cfg.TargetFPS))
	}
	if cfg.CombinedTrack() {
		s.combined = newClock(int64(cfg.CombinedAudio.SampleRate))
	}
	if cfg.DualTrack() {
		s.system = newClock(int64(cfg.SystemAudio.SampleRate))
		s.mic = newClock(int64(cfg.MicAudio.SampleRate))
	}
	return s
}

func (s *MockSink) record(stream string, c *clock, n uint64, elapsedMS int64, size int) (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, dur := c.timestamp(n)
	c.advance(n)
	s.Submissions = append(s.Submissions, Submission{Stream: stream, Frames: uint32(n), SampleTime: ts, Duration: dur, ElapsedMS: elapsedMS, Bytes: size})
	return ts, dur
}

func (s *MockSink) AddVideoFrame(buf []byte, elapsedMS int64) error {
	if s.FailNextSubmit {
		s.FailNextSubmit = false
		return errSubmitFailed
	}
	if s.video == nil {
		return nil
	}
	s.record("video", s.video, 1, elapsedMS, len(buf))
	return nil
}

func (s *MockSink) AddCombinedAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if s.FailNextSubmit {
		s.FailNextSubmit = false
		return errSubmitFailed
	}
	if s.combined == nil {
		return nil
	}
	s.record("combined", s.combined, uint64(frames), elapsedMS, len(buf))
	return nil
}

func (s *MockSink) AddSystemAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if s.FailNextSubmit {
		s.FailNextSubmit = false
		return errSubmitFailed
	}
	if s.system == nil {
		return nil
	}
	s.record("system", s.system, uint64(frames), elapsedMS, len(buf))
	return nil
}

func (s *MockSink) AddMicAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if s.FailNextSubmit {
		s.FailNextSubmit = false
		return errSubmitFailed
	}
	if s.mic == nil {
		return nil
	}
	s.record("mic", s.mic, uint64(frames), elapsedMS, len(buf))
	return nil
}

func (s *MockSink) Finalize() error {
	if s.FailFinalize {
		return errFinalizeFailed
	}
	s.Finalized = true
	return nil
}

func (s *MockSink) Close() error {
	s.Closed = true
	return nil
}

var (
	errSubmitFailed   = sinkError("mux: mock submission failure")
	errFinalizeFailed = sinkError("mux: mock finalize failure")
)

type sinkError string

func (e sinkError) Error() string { return string(e) }
