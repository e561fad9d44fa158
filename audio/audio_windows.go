//go:build windows

package audio

/*
#cgo CXXFLAGS: -std=gnu++20
#cgo LDFLAGS: -lole32 -static-libstdc++ -static-libgcc -Wl,-Bstatic -l:libstdc++.a -l:libwinpthread.a
#include "wasapi_windows.h"
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"wincap.dev/wincap/internal/debuglog"
)

var audioDebug = debuglog.New("audio", "WINCAP_AUDIO_DEBUG", "WINCAP_AUDIO_DEBUG_FILE")

const (
	dataFlowRender  = 0 // EDataFlow.eRender
	dataFlowCapture = 1 // EDataFlow.eCapture

	streamFlagsNone     uint32 = 0
	streamFlagsLoopback uint32 = 0x00020000 // AUDCLNT_STREAMFLAGS_LOOPBACK
)

type winPlatformSource struct {
	ctx C.wasapi_context_t
	mu  sync.Mutex

	closeOnce sync.Once
}

func openPlatform(endpoint Endpoint) (platformSource, Format, error) {
	dataFlow := dataFlowCapture
	flags := streamFlagsNone
	if endpoint == EndpointLoopback {
		dataFlow = dataFlowRender
		flags = streamFlagsLoopback
	}

	p := &winPlatformSource{}

	var sampleRate C.uint32_t
	var channels C.uint16_t
	var bits C.uint16_t
	var isFloat C.BOOL

	rc := C.wasapi_open(&p.ctx, C.int(dataFlow), C.uint32_t(flags), &sampleRate, &channels, &bits, &isFloat)
	if rc != 0 {
		return nil, Format{}, fmt.Errorf("audio: failed to open %s endpoint", endpoint)
	}

	format := Format{
		SampleRate:    uint32(sampleRate),
		Channels:      uint16(channels),
		BitsPerSample: uint16(bits),
		Float:         isFloat != 0,
	}
	audioDebug.Printf("opened endpoint=%s rate=%d channels=%d bits=%d float=%v", endpoint, format.SampleRate, format.Channels, format.BitsPerSample, format.Float)
	return p, format, nil
}

func (p *winPlatformSource) start() error {
	if rc := C.wasapi_start(&p.ctx); rc != 0 {
		return fmt.Errorf("audio: failed to start capture")
	}
	return nil
}

func (p *winPlatformSource) stop() error {
	C.wasapi_stop(&p.ctx)
	return nil
}

func (p *winPlatformSource) getBuffer() ([]byte, uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var data *C.BYTE
	var frames C.UINT32

	rc := C.wasapi_get_buffer(&p.ctx, &data, &frames)
	if rc != 0 {
		return nil, 0, fmt.Errorf("audio: GetBuffer failed")
	}
	if frames == 0 || data == nil {
		return nil, 0, nil
	}

	blockAlign := uint32(p.ctx.wave_format.nBlockAlign)
	size := uint32(frames) * blockAlign
	buf := C.GoBytes(unsafe.Pointer(data), C.int(size))
	return buf, uint32(frames), nil
}

func (p *winPlatformSource) releaseBuffer(frames uint32) error {
	C.wasapi_release_buffer(&p.ctx, C.UINT32(frames))
	return nil
}

func (p *winPlatformSource) close() error {
	p.closeOnce.Do(func() {
		C.wasapi_close(&p.ctx)
		audioDebug.Printf("closed")
	})
	return nil
}
