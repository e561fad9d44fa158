package orchestrator

import (
	"sync"
	"time"

	"wincap.dev/wincap/audio"
	"wincap.dev/wincap/capture"
)

// fakeVideoSource hands back a fixed-size frame every call; only when
// failNext is set does the next call report NoNewFrame (a nil frame).
type fakeVideoSource struct {
	mu       sync.Mutex
	width    uint32
	height   uint32
	frames   int
	failNext bool
}

func newFakeVideoSource(w, h uint32) *fakeVideoSource {
	return &fakeVideoSource{width: w, height: h}
}

func (f *fakeVideoSource) Width() uint32  { return f.width }
func (f *fakeVideoSource) Height() uint32 { return f.height }
func (f *fakeVideoSource) Start() error   { return nil }
func (f *fakeVideoSource) Stop() error    { return nil }
func (f *fakeVideoSource) Close() error   { return nil }

func (f *fakeVideoSource) GetFrame(dualTrack bool) (*capture.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, nil
	}
	f.frames++
	return &capture.Frame{Buf: make([]byte, f.width*f.height*4), Width: f.width, Height: f.height}, nil
}

// fakeAudioSource synthesizes a steady stream of real (non-synthesized)
// frames at its configured format's sample rate, scaled by how long has
// elapsed since Start — enough to drive the orchestrator's accounting
// without depending on any OS ring buffer.
type fakeAudioSource struct {
	mu        sync.Mutex
	format    audio.Format
	started   time.Time
	delivered uint64
	absent    bool
}

func newFakeAudioSource(format audio.Format) *fakeAudioSource {
	return &fakeAudioSource{format: format}
}

func (f *fakeAudioSource) Format() audio.Format { return f.format }

func (f *fakeAudioSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.absent {
		return audio.ErrNotCapturing
	}
	f.started = time.Now()
	f.delivered = 0
	return nil
}

func (f *fakeAudioSource) Stop() error  { return nil }
func (f *fakeAudioSource) Close() error { return nil }

func (f *fakeAudioSource) ReleaseBuffer(frames uint32) error { return nil }

func (f *fakeAudioSource) GetBuffer(now time.Time) (audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	elapsedMS := now.Sub(f.started).Milliseconds()
	expected := uint64(f.format.SampleRate) * uint64(elapsedMS) / 1000
	if expected <= f.delivered {
		return audio.Buffer{}, nil
	}
	n := expected - f.delivered
	if n > uint64(f.format.SampleRate)/20 { // cap like the real 50ms ring
		n = uint64(f.format.SampleRate) / 20
	}
	f.delivered += n
	return audio.Buffer{Data: make([]byte, n*uint64(f.format.BlockAlign())), Frames: uint32(n)}, nil
}
