package audio

import (
	"testing"
	"time"
)

func TestSilenceGeneratorCatchesUpToElapsedTime(t *testing.T) {
	var g silenceGenerator
	const sampleRate = 48000
	const blockAlign = 8 // stereo float32

	start := time.Now()

	_, frames := g.next(start, sampleRate, blockAlign)
	if frames != 0 {
		t.Fatalf("first call at t=0 should produce no frames, got %d", frames)
	}

	// Advance 120ms of wall time; max chunk is 50ms so it should take
	// multiple calls to fully catch up.
	t1 := start.Add(120 * time.Millisecond)
	var total uint32
	for i := 0; i < 10; i++ {
		_, frames := g.next(t1, sampleRate, blockAlign)
		total += frames
		if frames == 0 {
			break
		}
		maxChunk := uint32(sampleRate * maxSilenceChunkMS / 1000)
		if frames > maxChunk {
			t.Fatalf("chunk %d exceeds max chunk size %d", frames, maxChunk)
		}
	}

	wantTotal := uint64(sampleRate) * 120 / 1000
	if uint64(total) != wantTotal {
		t.Fatalf("total generated = %d, want %d", total, wantTotal)
	}
	if g.totalGenerated() != wantTotal {
		t.Fatalf("generated counter = %d, want %d", g.totalGenerated(), wantTotal)
	}
}

func TestSilenceGeneratorIdleWhenCaughtUp(t *testing.T) {
	var g silenceGenerator
	start := time.Now()

	g.next(start, 44100, 4)
	_, frames := g.next(start, 44100, 4)
	if frames != 0 {
		t.Fatalf("expected idle (0 frames) when no time has elapsed, got %d", frames)
	}
}

func TestSilenceGeneratorBufferIsZeroed(t *testing.T) {
	var g silenceGenerator
	start := time.Now()

	g.next(start, 44100, 4) // establishes the epoch
	buf, frames := g.next(start.Add(20*time.Millisecond), 44100, 4)
	if frames == 0 {
		t.Fatal("expected frames on first catch-up call")
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d is non-zero: %d", i, b)
		}
	}
}

func TestSilenceGeneratorReusesBackingBuffer(t *testing.T) {
	var g silenceGenerator
	start := time.Now()

	g.next(start, 44100, 4) // establishes the epoch
	buf1, _ := g.next(start.Add(10*time.Millisecond), 44100, 4)
	ptrBefore := &buf1[0]

	buf2, frames2 := g.next(start.Add(15*time.Millisecond), 44100, 4)
	if frames2 == 0 {
		t.Fatal("expected more frames on second catch-up call")
	}
	if len(buf2) == 0 {
		t.Fatal("expected a non-empty buffer")
	}
	// The second chunk (220 frames) is smaller than the first (441 frames),
	// so it must be carved out of the same backing array.
	if &buf2[0] != ptrBefore {
		t.Fatal("expected the second chunk to reuse the first chunk's backing array")
	}
}
