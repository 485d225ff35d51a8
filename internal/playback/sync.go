package playback

import "math"

const (
	// Above this audio/reference divergence no correction is
	// attempted; the jump is assumed transient (e.g. right after a
	// seek) and the running average is reset instead.
	noSyncThresholdSec = 1.0

	// Never add or drop more than this share of a chunk.
	correctionMaxPercent = 10

	// Number of diff samples accumulated before corrections fire, so
	// a single noisy measurement never stretches audio.
	diffAvgCount = 20
)

// ClockSync decides how many bytes of each PCM chunk to keep so the
// audio clock tracks the reference clock. Diffs are folded into an
// exponential moving sum where recent samples weigh more:
// cum = diff + coef*cum, avg = cum * (1-coef).
type ClockSync struct {
	enabled bool
	audio   func() float64
	ref     func() float64

	sampleRate int
	frameBytes int // bytes per sample across all channels
	threshold  float64
	coef       float64

	cum   float64
	count int
}

func newClockSync(mode SyncMode, sampleRate, channels, sinkBufferSamples int, audio, ref func() float64) *ClockSync {
	return &ClockSync{
		enabled:    mode != SyncAudio,
		audio:      audio,
		ref:        ref,
		sampleRate: sampleRate,
		frameBytes: 2 * channels,
		threshold:  2.0 * float64(sinkBufferSamples) / float64(sampleRate),
		coef:       math.Exp(math.Log(0.01) / diffAvgCount),
	}
}

// Adjust shrinks or stretches the first size bytes of buf and returns
// the corrected size. buf must have capacity for at least 110% of
// size. In audio-master mode the audio clock is its own reference and
// Adjust is a passthrough.
func (cs *ClockSync) Adjust(buf []byte, size int) int {
	if !cs.enabled {
		return size
	}

	diff := cs.audio() - cs.ref()
	if diff >= noSyncThresholdSec {
		cs.cum = 0
		cs.count = 0
		return size
	}

	cs.cum = diff + cs.coef*cs.cum
	if cs.count < diffAvgCount {
		cs.count++
		return size
	}

	avg := cs.cum * (1 - cs.coef)
	if math.Abs(avg) < cs.threshold {
		return size
	}

	wanted := size + int(math.Round(diff*float64(cs.sampleRate)))*cs.frameBytes
	minSize := size * (100 - correctionMaxPercent) / 100
	maxSize := size * (100 + correctionMaxPercent) / 100
	if wanted < minSize {
		wanted = minSize
	} else if wanted > maxSize {
		wanted = maxSize
	}
	if wanted > len(buf) {
		wanted = len(buf)
	}
	// The percentage bounds are not frame-aligned. Round the
	// correction toward zero to whole sample frames: a partial frame
	// would byte-shift every sample after it.
	delta := wanted - size
	delta -= delta % cs.frameBytes
	wanted = size + delta

	if wanted > size {
		if size < cs.frameBytes {
			// No whole frame to repeat; stale bytes past size are
			// not PCM, so skip the correction.
			return size
		}
		// Stretch by repeating the final sample frame; repeating real
		// audio beats injecting silence for gaps this small.
		last := buf[size-cs.frameBytes : size]
		for i := size; i < wanted; i += cs.frameBytes {
			copy(buf[i:i+cs.frameBytes], last)
		}
	}
	return wanted
}
