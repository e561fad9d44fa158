package audio

import "time"

// silenceGenerator synthesizes zero-filled audio to keep a source's sample
// timeline continuous when the OS ring has no new packet. It is driven by
// wall-clock elapsed time, not by the caller's polling cadence: the number
// of samples it is willing to produce on a given call is capped so a caller
// polling slowly does not get a single enormous buffer.
//
// The first call establishes the epoch; every call after compares the
// expected sample count (elapsed time × sample rate) against the count
// already generated and emits only the shortfall, capped to 50ms.
type silenceGenerator struct {
	started   bool
	epoch     time.Time
	generated uint64
	buf       []byte
}

const maxSilenceChunkMS = 50

// next returns (buffer, frameCount) for a silence chunk covering the gap
// between the generator's running total and what elapsed wall time demands
// at sampleRate, or (nil, 0) if the generator is already caught up.
func (g *silenceGenerator) next(now time.Time, sampleRate uint32, blockAlign uint32) ([]byte, uint32) {
	if !g.started {
		g.started = true
		g.epoch = now
		g.generated = 0
	}

	elapsedMS := now.Sub(g.epoch).Milliseconds()
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	expected := uint64(sampleRate) * uint64(elapsedMS) / 1000

	if g.generated >= expected {
		return nil, 0
	}

	need := expected - g.generated
	maxChunk := uint64(sampleRate) * maxSilenceChunkMS / 1000
	if need > maxChunk {
		need = maxChunk
	}

	frames := uint32(need)
	bytesNeeded := int(frames * blockAlign)
	if cap(g.buf) < bytesNeeded {
		g.buf = make([]byte, bytesNeeded)
	} else {
		g.buf = g.buf[:bytesNeeded]
		for i := range g.buf {
			g.buf[i] = 0
		}
	}

	g.generated += need
	return g.buf, frames
}

// totalGenerated exposes the running sample count for tests.
func (g *silenceGenerator) totalGenerated() uint64 { return g.generated }
