// Package orchestrator drives one recording end to end: it brings up the
// screen and audio sources, probes optional audio for real data, opens the
// muxer variant that matches what actually came up, and then runs a single
// tight polling loop that paces video to the target FPS while draining audio
// continuously, until duration, cancellation or a watchdog ends it.
package orchestrator

import (
	"fmt"
	"time"

	"wincap.dev/wincap/audio"
	"wincap.dev/wincap/capture"
	"wincap.dev/wincap/mux"
	"wincap.dev/wincap/params"
)

// emergencyCheckInterval is how often the loop-frequency watchdog re-arms.
const emergencyCheckInterval = time.Second

// maxLoopIterationsPerSecond guards against a runaway tight loop (e.g. a
// source that returns instantly forever) eating a core and growing memory.
const maxLoopIterationsPerSecond = 2000

// unlimitedDurationCeiling hard-caps an unlimited-duration recording so an
// unattended process cannot run (and grow its output file) forever.
const unlimitedDurationCeiling = 60 * time.Second

// audioPollSleep is the loop sleep while any audio source is active: coarse
// enough to avoid busy-spinning, fine enough against a 50ms audio ring.
const audioPollSleep = 5 * time.Millisecond

// maxConsecutiveAudioFailures aborts an audio-only recording that has
// stopped receiving any audio at all, rather than writing an unbounded
// silent file.
const maxConsecutiveAudioFailures = 1000

// micProbeAttempts/systemProbeAttempts/probePollInterval bound the init-time
// probe that confirms an audio source is actually delivering data.
const (
	micProbeAttempts    = 5
	systemProbeAttempts = 5
	probePollInterval   = 100 * time.Millisecond
)

// StatusCallback receives human-readable progress/diagnostic messages.
type StatusCallback func(message string)

// ProgressCallback is invoked once per submitted video frame.
type ProgressCallback func(frameCount int, elapsedMS int64)

// CaptureStats summarizes a completed (or cancelled/watchdog-ended)
// recording. It is always populated, even on a non-nil error, with whatever
// the loop accumulated before stopping.
type CaptureStats struct {
	TotalFrames         int
	FailedFrames        int
	RecordingDurationMS int64

	AudioEnabled bool
	AudioFormat  audio.Format

	// Cancelled reports whether the run ended because cancel_flag fired.
	Cancelled bool
	// WatchdogKind is non-empty when the run ended via one of the
	// defensive watchdogs rather than a normal exit path.
	WatchdogKind string
	// Downgrades lists optional components that failed to init or probe
	// and were dropped, in the order they were detected.
	Downgrades []string
}

// ErrorKind classifies a fatal orchestrator error. Only InitFailed and
// FinalizeFailed are fatal; downgrades, submission failures, cancellation
// and watchdog exits are all reported as success with diagnostics in
// CaptureStats.
type ErrorKind int

const (
	ErrKindInitFailed ErrorKind = iota
	ErrKindFinalizeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindInitFailed:
		return "init_failed"
	case ErrKindFinalizeFailed:
		return "finalize_failed"
	default:
		return "unknown"
	}
}

// Error wraps a fatal failure with the component it occurred in.
type Error struct {
	Kind      ErrorKind
	Component string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("orchestrator: %s[%s]: %v", e.Kind, e.Component, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// VideoSource is the subset of *capture.Source the orchestrator drives. A
// structural interface so tests can substitute a fake without a cgo build.
type VideoSource interface {
	Width() uint32
	Height() uint32
	Start() error
	GetFrame(dualTrack bool) (*capture.Frame, error)
	Stop() error
	Close() error
}

// AudioSource is the subset of *audio.Source the orchestrator drives.
type AudioSource interface {
	Format() audio.Format
	Start() error
	GetBuffer(now time.Time) (audio.Buffer, error)
	ReleaseBuffer(frames uint32) error
	Stop() error
	Close() error
}

// Dependencies are the component constructors the orchestrator calls during
// init. Production callers use DefaultDependencies; tests substitute fakes.
type Dependencies struct {
	OpenVideo func(*capture.Options) (VideoSource, error)
	OpenAudio func(audio.Endpoint) (AudioSource, error)
	OpenSink  func(mux.Config) (mux.Sink, error)
}

// DefaultDependencies wires the real platform backends.
func DefaultDependencies() Dependencies {
	return Dependencies{
		OpenVideo: func(o *capture.Options) (VideoSource, error) { return capture.Open(o) },
		OpenAudio: func(e audio.Endpoint) (AudioSource, error) { return audio.Open(e) },
		OpenSink:  func(cfg mux.Config) (mux.Sink, error) { return mux.Open(cfg) },
	}
}

// Callbacks groups the caller-supplied status/progress hooks. Either may be
// left nil.
type Callbacks struct {
	Status   StatusCallback
	Progress ProgressCallback
}

func (c Callbacks) status(msg string) {
	if c.Status != nil {
		c.Status(msg)
	}
}

func (c Callbacks) progress(frames int, elapsedMS int64) {
	if c.Progress != nil {
		c.Progress(frames, elapsedMS)
	}
}

// Run drives one full recording for mode and returns once it has stopped
// for any reason. cancelled is polled once per loop iteration; a nil func
// means the recording can only end via duration or a watchdog.
func Run(mode params.Mode, deps Dependencies, cb Callbacks, cancelled func() bool) (CaptureStats, error) {
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	var stats CaptureStats

	cb.status("Initializing capture...")

	var video VideoSource
	if !mode.AudioOnly {
		v, err := deps.OpenVideo(&capture.Options{
			MonitorIndex:  mode.Params.MonitorIndex,
			RegionEnabled: mode.Params.RegionEnabled,
			Region: capture.Region{
				X: mode.Params.Region.X,
				Y: mode.Params.Region.Y,
				W: mode.Params.Region.W,
				H: mode.Params.Region.H,
			},
		})
		if err != nil {
			cb.status("Error: Failed to initialize screen capture")
			return stats, &Error{Kind: ErrKindInitFailed, Component: "screen", Err: err}
		}
		video = v
	}
	videoAvailable := video != nil

	wantMic := mode.AudioSources == params.AudioSourceMicrophone || mode.AudioSources == params.AudioSourceBoth
	wantSystem := mode.AudioSources == params.AudioSourceSystem || mode.AudioSources == params.AudioSourceBoth

	var micSrc, sysSrc AudioSource
	if wantMic {
		s, err := deps.OpenAudio(audio.EndpointMicrophone)
		if err != nil {
			stats.Downgrades = append(stats.Downgrades, "microphone")
			cb.status("Warning: Failed to initialize microphone")
		} else {
			micSrc = s
			cb.status("Microphone initialized successfully")
		}
	}
	if wantSystem {
		s, err := deps.OpenAudio(audio.EndpointLoopback)
		if err != nil {
			stats.Downgrades = append(stats.Downgrades, "system")
			cb.status("Warning: Failed to initialize system audio")
		} else {
			sysSrc = s
			cb.status("System audio initialized successfully")
		}
	}

	audioAvailable := micSrc != nil || sysSrc != nil
	if (wantMic || wantSystem) && !audioAvailable {
		if mode.AudioOnly {
			cb.status("Error: Audio-only mode requires working audio capture")
			if video != nil {
				_ = video.Close()
			}
			return stats, &Error{Kind: ErrKindInitFailed, Component: "audio", Err: fmt.Errorf("no audio source initialized")}
		}
		cb.status("Warning: No audio sources available, continuing with video-only")
	}

	dualTrack := mode.DualTrack && micSrc != nil && sysSrc != nil

	if audioAvailable && !mode.AudioOnly {
		cb.status("Testing audio capture availability...")
		audioAvailable = probeAudio(micSrc, sysSrc, cb)
		if !audioAvailable {
			cb.status("Warning: No audio data detected, continuing with video-only")
		}
	} else if audioAvailable && mode.AudioOnly {
		cb.status("Audio-only mode: starting audio capture directly")
		if micSrc != nil {
			if err := micSrc.Start(); err != nil {
				stats.Downgrades = append(stats.Downgrades, "microphone")
				micSrc = nil
			}
		}
		if sysSrc != nil {
			if err := sysSrc.Start(); err != nil {
				stats.Downgrades = append(stats.Downgrades, "system")
				sysSrc = nil
			}
		}
		audioAvailable = micSrc != nil || sysSrc != nil
		if !audioAvailable {
			cb.status("Error: Audio-only mode requires working audio capture")
			if video != nil {
				_ = video.Close()
			}
			return stats, &Error{Kind: ErrKindInitFailed, Component: "audio", Err: fmt.Errorf("audio capture failed to start for audio-only recording")}
		}
	}

	stats.AudioEnabled = audioAvailable
	if audioAvailable {
		// Microphone wins ties: adopt its format unless only system audio
		// came up.
		if micSrc != nil {
			stats.AudioFormat = micSrc.Format()
		} else {
			stats.AudioFormat = sysSrc.Format()
		}
	}

	variant := params.MuxerVariant(videoAvailable, audioAvailable, dualTrack)
	cfg := mux.Config{
		OutputPath: mode.OutputPath,
		Variant:    variant,
		TargetFPS:  uint32(mode.Params.FPS),
	}
	if videoAvailable {
		cfg.Width = video.Width()
		cfg.Height = video.Height()
	}
	if audioAvailable {
		if dualTrack {
			cfg.SystemAudio = toMuxFormat(sysSrc.Format())
			cfg.MicAudio = toMuxFormat(micSrc.Format())
		} else {
			cfg.CombinedAudio = toMuxFormat(stats.AudioFormat)
		}
	}

	sink, err := deps.OpenSink(cfg)
	if err != nil {
		cb.status("Error: Failed to initialize encoder")
		closeAll(video, micSrc, sysSrc, nil)
		return stats, &Error{Kind: ErrKindInitFailed, Component: "muxer", Err: err}
	}

	if videoAvailable {
		if err := video.Start(); err != nil {
			cb.status("Error: Failed to start screen capture")
			closeAll(video, micSrc, sysSrc, sink)
			return stats, &Error{Kind: ErrKindInitFailed, Component: "screen", Err: err}
		}
	}
	if audioAvailable && !mode.AudioOnly {
		// The probe above stopped both sources again; restart fresh so
		// their sample clocks start at the recording epoch.
		if micSrc != nil {
			if err := micSrc.Start(); err != nil {
				cb.status("Warning: Failed to restart microphone capture")
				micSrc = nil
			}
		}
		if sysSrc != nil {
			if err := sysSrc.Start(); err != nil {
				cb.status("Warning: Failed to restart system audio capture")
				sysSrc = nil
			}
		}
		audioAvailable = micSrc != nil || sysSrc != nil
		dualTrack = dualTrack && micSrc != nil && sysSrc != nil
		stats.AudioEnabled = audioAvailable
	}

	startTime := time.Now()
	audioLabel := "video only"
	if audioAvailable {
		audioLabel = "with audio"
	}
	cb.status(fmt.Sprintf("Recording started: %s (%s)", mode.OutputPath, audioLabel))

	frameInterval := time.Second / time.Duration(mode.Params.FPS)
	nextFrameTime := startTime
	nextEmergencyCheck := startTime.Add(emergencyCheckInterval)
	loopIterations := 0
	consecutiveAudioFailures := 0

	for {
		now := time.Now()
		loopIterations++

		if !now.Before(nextEmergencyCheck) {
			if loopIterations > maxLoopIterationsPerSecond {
				cb.status("EMERGENCY: Loop frequency too high, terminating to prevent memory leak")
				stats.WatchdogKind = "loop_frequency"
				break
			}
			loopIterations = 0
			nextEmergencyCheck = now.Add(emergencyCheckInterval)

			if mode.Params.Duration == 0 && now.Sub(startTime) > unlimitedDurationCeiling {
				cb.status("EMERGENCY: Unlimited recording running over 60 seconds, auto-terminating")
				stats.WatchdogKind = "unlimited_ceiling"
				break
			}
		}

		if mode.Params.Duration > 0 && now.Sub(startTime) >= mode.Params.Duration {
			break
		}

		if !mode.AudioOnly && !now.Before(nextFrameTime) {
			frame, ferr := video.GetFrame(dualTrack)
			if ferr == nil && frame != nil {
				elapsed := now.Sub(startTime).Milliseconds()
				if serr := sink.AddVideoFrame(frame.Buf, elapsed); serr != nil {
					cb.status("Warning: failed to submit video frame")
				}
				stats.TotalFrames++
				cb.progress(stats.TotalFrames, elapsed)
				nextFrameTime = nextFrameTime.Add(frameInterval)
			} else {
				stats.FailedFrames++
			}
		}

		if audioAvailable {
			elapsed := now.Sub(startTime).Milliseconds()
			success := false

			if dualTrack {
				if sysSrc != nil {
					if buf, aerr := sysSrc.GetBuffer(now); aerr == nil && buf.Frames > 0 {
						if serr := sink.AddSystemAudio(buf.Data, buf.Frames, elapsed); serr != nil {
							cb.status("Warning: failed to submit system audio")
						}
						if !buf.Synthesized {
							_ = sysSrc.ReleaseBuffer(buf.Frames)
						}
						success = true
					}
				}
				if micSrc != nil {
					if buf, aerr := micSrc.GetBuffer(now); aerr == nil && buf.Frames > 0 {
						if serr := sink.AddMicAudio(buf.Data, buf.Frames, elapsed); serr != nil {
							cb.status("Warning: failed to submit mic audio")
						}
						if !buf.Synthesized {
							_ = micSrc.ReleaseBuffer(buf.Frames)
						}
						success = true
					}
				}
			} else {
				src := micSrc
				if src == nil {
					src = sysSrc
				}
				if src != nil {
					if buf, aerr := src.GetBuffer(now); aerr == nil && buf.Frames > 0 {
						if serr := sink.AddCombinedAudio(buf.Data, buf.Frames, elapsed); serr != nil {
							cb.status("Warning: failed to submit audio")
						}
						if !buf.Synthesized {
							_ = src.ReleaseBuffer(buf.Frames)
						}
						success = true
					}
				}
			}

			if success {
				consecutiveAudioFailures = 0
			} else {
				consecutiveAudioFailures++
				if mode.AudioOnly && consecutiveAudioFailures > maxConsecutiveAudioFailures {
					cb.status("Error: Too many audio capture failures in audio-only mode, stopping recording")
					stats.WatchdogKind = "audio_exhausted"
					break
				}
			}
		}

		if cancelled() {
			stats.Cancelled = true
			break
		}

		var sleepDur time.Duration
		if audioAvailable {
			sleepDur = audioPollSleep
		} else {
			timeUntilNext := nextFrameTime.Sub(now)
			switch {
			case timeUntilNext > 5*time.Millisecond:
				sleepDur = 5 * time.Millisecond
			case timeUntilNext > time.Millisecond:
				sleepDur = timeUntilNext
			default:
				sleepDur = time.Millisecond
			}
		}
		time.Sleep(sleepDur)
	}

	stats.RecordingDurationMS = time.Since(startTime).Milliseconds()

	cb.status("Stopping capture...")
	if videoAvailable {
		_ = video.Stop()
	}
	if micSrc != nil {
		_ = micSrc.Stop()
	}
	if sysSrc != nil {
		_ = sysSrc.Stop()
	}

	cb.status("Finalizing recording...")
	if err := sink.Finalize(); err != nil {
		closeAll(video, micSrc, sysSrc, sink)
		return stats, &Error{Kind: ErrKindFinalizeFailed, Component: "muxer", Err: err}
	}

	if mode.AudioOnly {
		cb.status(fmt.Sprintf("Audio recording completed: %d ms", stats.RecordingDurationMS))
	} else {
		cb.status(fmt.Sprintf("Recording completed: %d frames, %d ms", stats.TotalFrames, stats.RecordingDurationMS))
	}

	closeAll(video, micSrc, sysSrc, sink)
	return stats, nil
}

// probeAudio starts each configured source, polls it a bounded number of
// times and reports whether audio is usable. Microphone probing requires a
// real (non-synthesized) hit; system-audio probing succeeds once the source
// has started, even if it delivered nothing, since a live render endpoint
// may legitimately be idle. Every source that started is stopped again
// before returning, regardless of outcome.
func probeAudio(micSrc, sysSrc AudioSource, cb Callbacks) bool {
	success := false

	if micSrc != nil {
		if err := micSrc.Start(); err == nil {
			for attempt := 0; attempt < micProbeAttempts && !success; attempt++ {
				time.Sleep(probePollInterval)
				if buf, err := micSrc.GetBuffer(time.Now()); err == nil && buf.Frames > 0 && !buf.Synthesized {
					if !buf.Synthesized {
						_ = micSrc.ReleaseBuffer(buf.Frames)
					}
					success = true
					cb.status("Microphone test successful")
				}
			}
			_ = micSrc.Stop()
		}
	}

	if sysSrc != nil {
		if err := sysSrc.Start(); err == nil {
			sysHit := false
			for attempt := 0; attempt < systemProbeAttempts && !sysHit; attempt++ {
				time.Sleep(probePollInterval)
				if buf, err := sysSrc.GetBuffer(time.Now()); err == nil && buf.Frames > 0 {
					if !buf.Synthesized {
						_ = sysSrc.ReleaseBuffer(buf.Frames)
					}
					sysHit = true
					cb.status("System audio test successful")
				}
			}
			if !sysHit {
				cb.status("System audio capture ready (no audio currently playing)")
			}
			success = true
			_ = sysSrc.Stop()
		}
	}

	return success
}

func toMuxFormat(f audio.Format) mux.AudioFormat {
	return mux.AudioFormat{
		SampleRate:    f.SampleRate,
		Channels:      f.Channels,
		BitsPerSample: f.BitsPerSample,
		Float:         f.Float,
	}
}

func closeAll(video VideoSource, micSrc, sysSrc AudioSource, sink mux.Sink) {
	if video != nil {
		_ = video.Close()
	}
	if micSrc != nil {
		_ = micSrc.Close()
	}
	if sysSrc != nil {
		_ = sysSrc.Close()
	}
	if sink != nil {
		_ = sink.Close()
	}
}
