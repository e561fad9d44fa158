package mux

import (
	"testing"

	"wincap.dev/wincap/params"
)

func TestVideoTimestampFormula(t *testing.T) {
	const fps = 30
	cfg := Config{Variant: params.VariantVideoOnly, TargetFPS: fps, Width: 1920, Height: 1080}
	sink := NewMockSink(cfg)

	for n := 0; n < 5; n++ {
		if err := sink.AddVideoFrame([]byte{1, 2, 3, 4}, int64(n)*33); err != nil {
			t.Fatalf("AddVideoFrame: %v", err)
		}
	}

	if len(sink.Submissions) != 5 {
		t.Fatalf("got %d submissions, want 5", len(sink.Submissions))
	}

	for i, sub := range sink.Submissions {
		wantTS := int64(i) * TicksPerSecond / fps
		wantDur := TicksPerSecond / fps
		if sub.SampleTime != wantTS {
			t.Errorf("frame %d: SampleTime = %d, want %d", i, sub.SampleTime, wantTS)
		}
		if sub.Duration != wantDur {
			t.Errorf("frame %d: Duration = %d, want %d", i, sub.Duration, wantDur)
		}
	}
}

func TestAudioTimestampMonotonic(t *testing.T) {
	cfg := Config{
		Variant:       params.VariantAudioOnlyOneTrack,
		CombinedAudio: AudioFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 32, Float: true},
	}
	sink := NewMockSink(cfg)

	frameCounts := []uint32{441, 220, 882}
	var lastTS int64 = -1
	for _, n := range frameCounts {
		if err := sink.AddCombinedAudio(make([]byte, n*8), n, 0); err != nil {
			t.Fatalf("AddCombinedAudio: %v", err)
		}
	}

	for _, sub := range sink.Submissions {
		if sub.SampleTime <= lastTS && lastTS != -1 {
			t.Errorf("non-monotonic timestamp: %d after %d", sub.SampleTime, lastTS)
		}
		lastTS = sub.SampleTime
	}

	var total uint32
	for _, n := range frameCounts {
		total += n
	}
	wantFinal := int64(total) * TicksPerSecond / 44100
	last := sink.Submissions[len(sink.Submissions)-1]
	gotFinal := last.SampleTime + last.Duration
	if gotFinal != wantFinal {
		t.Errorf("final timestamp = %d, want %d", gotFinal, wantFinal)
	}
}

func TestDualTrackIndependentClocks(t *testing.T) {
	cfg := Config{
		Variant:     params.VariantVideoPlusTwoAudio,
		TargetFPS:   60,
		Width:       1280,
		Height:      720,
		SystemAudio: AudioFormat{SampleRate: 48000, Channels: 2, BitsPerSample: 32, Float: true},
		MicAudio:    AudioFormat{SampleRate: 48000, Channels: 1, BitsPerSample: 32, Float: true},
	}
	sink := NewMockSink(cfg)

	if err := sink.AddSystemAudio(make([]byte, 400), 50, 0); err != nil {
		t.Fatal(err)
	}
	if err := sink.AddMicAudio(make([]byte, 200), 50, 0); err != nil {
		t.Fatal(err)
	}
	if err := sink.AddSystemAudio(make([]byte, 400), 50, 10); err != nil {
		t.Fatal(err)
	}

	var systemCount, micCount int
	for _, sub := range sink.Submissions {
		switch sub.Stream {
		case "system":
			systemCount++
		case "mic":
			micCount++
		}
	}
	if systemCount != 2 || micCount != 1 {
		t.Fatalf("system=%d mic=%d, want 2 and 1", systemCount, micCount)
	}
}

func TestCombinedAudioNoopWhenNotConfigured(t *testing.T) {
	cfg := Config{Variant: params.VariantVideoOnly, TargetFPS: 30, Width: 640, Height: 480}
	sink := NewMockSink(cfg)

	if err := sink.AddCombinedAudio([]byte{1}, 1, 0); err != nil {
		t.Fatalf("unexpected error on unconfigured combined audio: %v", err)
	}
	if len(sink.Submissions) != 0 {
		t.Fatalf("expected no submissions, got %d", len(sink.Submissions))
	}
}

func TestFinalizeRecordsOnlyOnSuccess(t *testing.T) {
	cfg := Config{Variant: params.VariantVideoOnly, TargetFPS: 30, Width: 640, Height: 480}
	sink := NewMockSink(cfg)

	sink.FailFinalize = true
	if err := sink.Finalize(); err == nil {
		t.Fatal("expected finalize error")
	}
	if sink.Finalized {
		t.Fatal("Finalized should remain false after a failed finalize")
	}

	sink.FailFinalize = false
	if err := sink.Finalize(); err != nil {
		t.Fatalf("unexpected finalize error: %v", err)
	}
	if !sink.Finalized {
		t.Fatal("Finalized should be true after a successful finalize")
	}
}
