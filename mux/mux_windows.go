//go:build windows

package mux

/*
#cgo CXXFLAGS: -std=gnu++20
#cgo LDFLAGS: -lmfplat -lmfreadwrite -lmfuuid -lole32 -static-libstdc++ -static-libgcc -Wl,-Bstatic -l:libstdc++.a -l:libwinpthread.a
#include "mfsink_windows.h"
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"wincap.dev/wincap/internal/debuglog"
)

var muxDebug = debuglog.New("mux", "WINCAP_MUX_DEBUG", "WINCAP_MUX_DEBUG_FILE")

// muxOpenMu enforces the single-open-instance invariant: at most one
// platform muxer may be live per process, matching the module-global C
// sink writer this package replaces with an instance-owned struct.
var muxOpenMu sync.Mutex
var muxOpen bool

// Muxer owns a single Media Foundation sink writer instance and the
// sample-count clocks for every stream it declared. It is not safe for
// concurrent use by more than one submitter, matching the orchestrator's
// single-submitter contract.
type Muxer struct {
	cfg Config
	ctx C.mfsink_context_t

	videoClock    *clock
	combinedClock *clock
	systemClock   *clock
	micClock      *clock

	systemStream C.DWORD
	micStream    C.DWORD

	closeOnce sync.Once
}

func open(cfg Config) (*Muxer, error) {
	muxOpenMu.Lock()
	if muxOpen {
		muxOpenMu.Unlock()
		return nil, ErrAlreadyOpen
	}
	muxOpen = true
	muxOpenMu.Unlock()

	m := &Muxer{cfg: cfg}

	cPath := C.CString(cfg.OutputPath)
	defer C.free(unsafe.Pointer(cPath))

	hasCombined := cfg.CombinedTrack()
	af := cfg.CombinedAudio

	rc := C.mfsink_open(
		&m.ctx,
		cPath,
		C.BOOL(boolToC(cfg.HasVideo())),
		C.uint32_t(cfg.Width),
		C.uint32_t(cfg.Height),
		C.uint32_t(cfg.TargetFPS),
		C.BOOL(boolToC(hasCombined)),
		C.int(af.SampleRate),
		C.int(af.Channels),
		C.int(af.BitsPerSample),
		C.BOOL(boolToC(af.Float)),
	)
	if rc != 0 {
		releaseMuxSlot()
		return nil, fmt.Errorf("mux: failed to open sink writer for %q", cfg.OutputPath)
	}

	if cfg.HasVideo() {
		m.videoClock = newClock(int64(cfg.TargetFPS))
	}
	if hasCombined {
		m.combinedClock = newClock(int64(af.SampleRate))
	}

	if cfg.DualTrack() {
		if rc := C.mfsink_add_audio_stream(&m.ctx, C.int(cfg.SystemAudio.SampleRate), C.int(cfg.SystemAudio.Channels), C.int(cfg.SystemAudio.BitsPerSample), C.BOOL(boolToC(cfg.SystemAudio.Float)), &m.systemStream); rc != 0 {
			C.mfsink_close(&m.ctx)
			releaseMuxSlot()
			return nil, fmt.Errorf("mux: failed to declare system audio stream")
		}
		m.ctx.has_system_audio = C.BOOL(boolToC(true))
		m.ctx.system_audio_stream = m.systemStream
		m.systemClock = newClock(int64(cfg.SystemAudio.SampleRate))

		if rc := C.mfsink_add_audio_stream(&m.ctx, C.int(cfg.MicAudio.SampleRate), C.int(cfg.MicAudio.Channels), C.int(cfg.MicAudio.BitsPerSample), C.BOOL(boolToC(cfg.MicAudio.Float)), &m.micStream); rc != 0 {
			C.mfsink_close(&m.ctx)
			releaseMuxSlot()
			return nil, fmt.Errorf("mux: failed to declare microphone audio stream")
		}
		m.ctx.has_mic_audio = C.BOOL(boolToC(true))
		m.ctx.mic_audio_stream = m.micStream
		m.micClock = newClock(int64(cfg.MicAudio.SampleRate))
	}

	if rc := C.mfsink_begin_writing(&m.ctx); rc != 0 {
		C.mfsink_close(&m.ctx)
		releaseMuxSlot()
		return nil, fmt.Errorf("mux: BeginWriting failed")
	}

	muxDebug.Printf("opened variant=%d video=%v dual_track=%v path=%s", cfg.Variant, cfg.HasVideo(), cfg.DualTrack(), cfg.OutputPath)
	return m, nil
}

func (m *Muxer) AddVideoFrame(buf []byte, elapsedMS int64) error {
	if m.videoClock == nil {
		return nil
	}
	ts, dur := m.videoClock.timestamp(1)
	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}
	rc := C.mfsink_write_video(&m.ctx, ptr, C.size_t(len(buf)), C.int64_t(ts), C.int64_t(dur))
	m.videoClock.advance(1)
	if rc != 0 {
		return fmt.Errorf("mux: video submission failed")
	}
	return nil
}

func (m *Muxer) AddCombinedAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if m.combinedClock == nil {
		return nil
	}
	return m.submitAudio(m.combinedClock, m.ctx.combined_audio_stream, buf, frames)
}

func (m *Muxer) AddSystemAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if m.systemClock == nil {
		return fmt.Errorf("mux: system audio stream not configured")
	}
	return m.submitAudio(m.systemClock, m.systemStream, buf, frames)
}

func (m *Muxer) AddMicAudio(buf []byte, frames uint32, elapsedMS int64) error {
	if m.micClock == nil {
		return fmt.Errorf("mux: microphone audio stream not configured")
	}
	return m.submitAudio(m.micClock, m.micStream, buf, frames)
}

func (m *Muxer) submitAudio(c *clock, stream C.DWORD, buf []byte, frames uint32) error {
	ts, dur := c.timestamp(uint64(frames))
	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}
	rc := C.mfsink_write_audio(&m.ctx, stream, ptr, C.size_t(len(buf)), C.int64_t(ts), C.int64_t(dur))
	c.advance(uint64(frames))
	if rc != 0 {
		return fmt.Errorf("mux: audio submission failed")
	}
	return nil
}

func (m *Muxer) Finalize() error {
	videoTS := int64(-1)
	combinedTS := int64(-1)
	systemTS := int64(-1)
	micTS := int64(-1)

	if m.videoClock != nil && m.videoClock.started {
		videoTS = m.videoClock.final()
	}
	if m.combinedClock != nil && m.combinedClock.started {
		combinedTS = m.combinedClock.final()
	}
	if m.systemClock != nil && m.systemClock.started {
		systemTS = m.systemClock.final()
	}
	if m.micClock != nil && m.micClock.started {
		micTS = m.micClock.final()
	}

	rc := C.mfsink_finalize(&m.ctx, C.int64_t(videoTS), C.int64_t(combinedTS), C.int64_t(systemTS), C.int64_t(micTS))
	if rc != 0 {
		return fmt.Errorf("mux: finalize failed")
	}
	return nil
}

func (m *Muxer) Close() error {
	m.closeOnce.Do(func() {
		C.mfsink_close(&m.ctx)
		releaseMuxSlot()
		muxDebug.Printf("closed path=%s", m.cfg.OutputPath)
	})
	return nil
}

func releaseMuxSlot() {
	muxOpenMu.Lock()
	muxOpen = false
	muxOpenMu.Unlock()
}

func boolToC(b bool) int {
	if b {
		return 1
	}
	return 0
}
