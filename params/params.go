// Package params resolves the capture parameters a caller requests into the
// concrete recording mode the rest of the core drives off of: which sources
// are enabled, whether the muxer runs dual-track, and the normalized output
// path.
package params

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AudioSources identifies which audio endpoints are enabled for a recording.
type AudioSources int

const (
	AudioSourceNone AudioSources = iota
	AudioSourceSystem
	AudioSourceMicrophone
	AudioSourceBoth
)

func (a AudioSources) String() string {
	switch a {
	case AudioSourceSystem:
		return "system"
	case AudioSourceMicrophone:
		return "microphone"
	case AudioSourceBoth:
		return "both"
	default:
		return "none"
	}
}

// Region describes a sub-rectangle of the selected monitor. The capture
// package validates it but does not crop frames to it.
type Region struct {
	X, Y, W, H int
}

// Params are the immutable inputs to a single recording.
type Params struct {
	OutputPath string
	FPS        int
	Duration   time.Duration // 0 means unlimited (the orchestrator watchdog still applies)

	EnableVideo      bool
	EnableSystem     bool
	EnableMicrophone bool

	MonitorIndex  int
	CursorEnabled bool
	Region        Region
	RegionEnabled bool
}

// Default returns the zero-value defaults used before a caller overrides
// anything, mirroring the distilled defaults of the original core: 30 fps,
// unlimited duration, cursor visible, no region, video enabled.
func Default() Params {
	return Params{
		OutputPath:    "capture.mp4",
		FPS:           30,
		Duration:      0,
		EnableVideo:   true,
		CursorEnabled: true,
	}
}

// Mode is the resolved, immutable recording configuration the orchestrator
// and muxer are built from.
type Mode struct {
	Params Params

	AudioSources AudioSources
	AudioOnly    bool
	DualTrack    bool
	OutputPath   string
}

// Resolve validates and finalizes requested params into a concrete Mode.
//
// Unlike the original core (which silently expands an empty source mask to
// video + both audio), this is treated as a caller error: a capture library
// entry point should not silently widen scope the caller never asked for.
func Resolve(p Params) (Mode, error) {
	if !p.EnableVideo && !p.EnableSystem && !p.EnableMicrophone {
		return Mode{}, fmt.Errorf("at least one of video, system audio or microphone must be enabled")
	}

	if p.FPS <= 0 || p.FPS > 120 {
		p.FPS = 30
	}

	sources := AudioSourceNone
	switch {
	case p.EnableSystem && p.EnableMicrophone:
		sources = AudioSourceBoth
	case p.EnableSystem:
		sources = AudioSourceSystem
	case p.EnableMicrophone:
		sources = AudioSourceMicrophone
	}

	audioOnly := !p.EnableVideo && (p.EnableSystem || p.EnableMicrophone)

	out := p.OutputPath
	if out == "" {
		out = "capture.mp4"
	}
	out = normalizeExtension(out)

	return Mode{
		Params:       p,
		AudioSources: sources,
		AudioOnly:    audioOnly,
		DualTrack:    sources == AudioSourceBoth,
		OutputPath:   out,
	}, nil
}

// normalizeExtension coerces path's extension to .mp4 case-insensitively,
// replacing any existing extension rather than appending to it (matching the
// original core's strrchr-based truncate-and-append behavior).
func normalizeExtension(path string) string {
	ext := filepath.Ext(path)
	if ext != "" && strings.EqualFold(ext, ".mp4") {
		return path
	}
	if ext != "" {
		path = strings.TrimSuffix(path, ext)
	}
	return path + ".mp4"
}

// Variant identifies one of the five muxer initialization layouts.
type Variant int

const (
	VariantVideoOnly Variant = iota
	VariantVideoPlusOneAudio
	VariantVideoPlusTwoAudio
	VariantAudioOnlyOneTrack
	VariantAudioOnlyTwoTrack
)

// MuxerVariant selects the muxer initialization variant from the caller's
// measured source availability (video/audio/dual-track may all have
// downgraded during init or probing, per the orchestrator's init phase).
// dualTrack must reflect reality — both the system and microphone sources
// actually came up — not merely what the caller originally requested; a
// mode's requested params.Mode.DualTrack can still be true after one of the
// two sources failed to open or probe.
func MuxerVariant(videoAvailable, audioAvailable, dualTrack bool) Variant {
	switch {
	case videoAvailable && !audioAvailable:
		return VariantVideoOnly
	case videoAvailable && audioAvailable && dualTrack:
		return VariantVideoPlusTwoAudio
	case videoAvailable && audioAvailable:
		return VariantVideoPlusOneAudio
	case !videoAvailable && dualTrack:
		return VariantAudioOnlyTwoTrack
	default:
		return VariantAudioOnlyOneTrack
	}
}
