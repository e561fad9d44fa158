//go:build windows

package capture

/*
#cgo CXXFLAGS: -std=gnu++20
#cgo LDFLAGS: -ld3d11 -ldxgi -lole32 -static-libstdc++ -static-libgcc -Wl,-Bstatic -l:libstdc++.a -l:libwinpthread.a
#include "dxgi_windows.h"
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"wincap.dev/wincap/internal/debuglog"
)

var captureDebug = debuglog.New("capture", "WINCAP_CAPTURE_DEBUG", "WINCAP_CAPTURE_DEBUG_FILE")

type winPlatformSource struct {
	ctx C.dxgi_context_t

	closeOnce sync.Once
}

func openPlatform(options *Options) (platformSource, uint32, uint32, error) {
	p := &winPlatformSource{}

	var width, height C.uint32_t
	rc := C.dxgi_open(&p.ctx, C.int(options.MonitorIndex), &width, &height)
	if rc != 0 {
		return nil, 0, 0, fmt.Errorf("capture: failed to open desktop duplication on monitor %d", options.MonitorIndex)
	}

	captureDebug.Printf("opened monitor=%d width=%d height=%d", options.MonitorIndex, uint32(width), uint32(height))
	return p, uint32(width), uint32(height), nil
}

func (p *winPlatformSource) start() error {
	if rc := C.dxgi_start(&p.ctx); rc != 0 {
		return fmt.Errorf("capture: failed to start")
	}
	return nil
}

func (p *winPlatformSource) getFrame(dualTrack bool) (*Frame, error) {
	var data *C.uint8_t
	var size C.size_t

	dt := C.int(0)
	if dualTrack {
		dt = 1
	}

	rc := C.dxgi_get_frame(&p.ctx, &data, &size, dt)
	switch rc {
	case 0:
		defer C.dxgi_free_frame(data)
		buf := C.GoBytes(unsafe.Pointer(data), C.int(size))
		return &Frame{Buf: buf, Width: uint32(p.ctx.width), Height: uint32(p.ctx.height)}, nil
	case 1:
		return nil, nil
	default:
		return nil, fmt.Errorf("capture: AcquireNextFrame failed")
	}
}

func (p *winPlatformSource) stop() error {
	C.dxgi_stop(&p.ctx)
	return nil
}

func (p *winPlatformSource) close() error {
	p.closeOnce.Do(func() {
		C.dxgi_close(&p.ctx)
		captureDebug.Printf("closed")
	})
	return nil
}
