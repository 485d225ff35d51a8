package playback

import (
	"math"
	"testing"
)

func newTestSync(diff *float64) *ClockSync {
	return &ClockSync{
		enabled:    true,
		audio:      func() float64 { return *diff },
		ref:        func() float64 { return 0 },
		sampleRate: 48000,
		frameBytes: 4, // 16-bit stereo
		threshold:  0.03,
		coef:       math.Exp(math.Log(0.01) / diffAvgCount),
	}
}

func fillPattern(buf []byte, size int) {
	for i := 0; i < size; i++ {
		buf[i] = byte(i)
	}
}

func TestAdjustPassthroughAudioMaster(t *testing.T) {
	diff := 0.5
	cs := newTestSync(&diff)
	cs.enabled = false

	buf := make([]byte, 8192)
	for i := 0; i < 50; i++ {
		if got := cs.Adjust(buf, 4096); got != 4096 {
			t.Fatalf("call %d: got %d, want 4096 unchanged", i, got)
		}
	}
}

func TestAdjustPassthroughBeforeWindow(t *testing.T) {
	diff := 0.5
	cs := newTestSync(&diff)

	buf := make([]byte, 8192)
	for i := 0; i < diffAvgCount; i++ {
		if got := cs.Adjust(buf, 4096); got != 4096 {
			t.Fatalf("call %d: got %d, want 4096 (window not reached)", i, got)
		}
	}
}

func TestAdjustPassthroughBelowThreshold(t *testing.T) {
	diff := 0.001
	cs := newTestSync(&diff)

	buf := make([]byte, 8192)
	for i := 0; i < 2*diffAvgCount; i++ {
		if got := cs.Adjust(buf, 4096); got != 4096 {
			t.Fatalf("call %d: got %d, want 4096 (avg below threshold)", i, got)
		}
	}
}

func TestAdjustStretchClampAndPad(t *testing.T) {
	diff := 0.05 // audio ahead: emit more to slow the clock down
	cs := newTestSync(&diff)

	buf := make([]byte, 8192)
	for i := 0; i < diffAvgCount; i++ {
		cs.Adjust(buf, 4096)
	}

	fillPattern(buf, 4096)
	got := cs.Adjust(buf, 4096)

	// The clamp allows 409 extra bytes (4505); the correction rounds
	// toward zero to whole frames, so 408 are added.
	want := 4096 + 408
	if got != want {
		t.Fatalf("stretched size %d, want clamp to %d", got, want)
	}

	// Padding must repeat the final whole sample frame.
	last := buf[4092:4096]
	for i := 4096; i < got; i++ {
		if buf[i] != last[(i-4096)%4] {
			t.Fatalf("pad byte %d = %#x, want repeat of final frame", i, buf[i])
		}
	}
}

func TestAdjustTruncateClamp(t *testing.T) {
	diff := -0.05
	cs := newTestSync(&diff)

	buf := make([]byte, 8192)
	for i := 0; i < diffAvgCount; i++ {
		cs.Adjust(buf, 4096)
	}

	got := cs.Adjust(buf, 4096)
	// The clamp allows dropping 410 bytes (down to 3686); rounding
	// toward zero to whole frames drops 408.
	want := 4096 - 408
	if got != want {
		t.Fatalf("truncated size %d, want clamp to %d", got, want)
	}
}

func TestAdjustNeverLeavesClampRange(t *testing.T) {
	for _, diff := range []float64{-0.9, -0.2, -0.04, 0.04, 0.2, 0.9} {
		d := diff
		cs := newTestSync(&d)
		buf := make([]byte, stagingBytes)

		for _, size := range []int{512, 4096, 40000} {
			for i := 0; i < 3*diffAvgCount; i++ {
				got := cs.Adjust(buf, size)
				min := size * (100 - correctionMaxPercent) / 100
				max := size * (100 + correctionMaxPercent) / 100
				if got < min || got > max {
					t.Fatalf("diff=%v size=%d: adjusted %d outside [%d,%d]",
						diff, size, got, min, max)
				}
			}
		}
	}
}

func TestAdjustReturnsWholeSampleFrames(t *testing.T) {
	for _, diff := range []float64{-0.2, -0.05, 0.05, 0.2} {
		d := diff
		cs := newTestSync(&d)
		buf := make([]byte, stagingBytes)

		for _, size := range []int{512, 1000, 4096, 40000} {
			for i := 0; i < 3*diffAvgCount; i++ {
				got := cs.Adjust(buf, size)
				if got%cs.frameBytes != 0 {
					t.Fatalf("diff=%v size=%d: adjusted %d is not a whole number of frames",
						diff, size, got)
				}
			}
		}
	}
}

func TestAdjustStretchSkippedWhenNoFrameToRepeat(t *testing.T) {
	diff := 0.05
	cs := newTestSync(&diff)

	buf := make([]byte, 64)
	for i := 0; i < diffAvgCount; i++ {
		cs.Adjust(buf, 2)
	}
	// Fewer bytes than one sample frame: nothing valid to repeat, so
	// no stale bytes may be exposed as PCM.
	if got := cs.Adjust(buf, 2); got != 2 {
		t.Fatalf("stretch on sub-frame chunk: got %d, want 2 unchanged", got)
	}
}

func TestAdjustLargeDiffResetsAccumulator(t *testing.T) {
	diff := 0.05
	cs := newTestSync(&diff)

	buf := make([]byte, 8192)
	for i := 0; i < diffAvgCount; i++ {
		cs.Adjust(buf, 4096)
	}

	// A seek-sized jump resets the window instead of correcting.
	diff = 1.5
	if got := cs.Adjust(buf, 4096); got != 4096 {
		t.Fatalf("large diff: got %d, want 4096 unchanged", got)
	}
	if cs.count != 0 || cs.cum != 0 {
		t.Fatalf("accumulator not reset: count=%d cum=%v", cs.count, cs.cum)
	}

	// Window must refill before corrections fire again.
	diff = 0.05
	if got := cs.Adjust(buf, 4096); got != 4096 {
		t.Fatalf("first post-reset call: got %d, want 4096", got)
	}
}
