// Package media wraps the FFmpeg primitives the player consumes:
// demuxing a container into compressed packets, decoding packets into
// PCM frames, and resampling frames into interleaved s16.
package media

import (
	"errors"

	"github.com/asticode/go-astiav"
)

var (
	// ErrAgain means the call cannot make progress until the other
	// half of the send/receive pair runs (EAGAIN equivalent).
	ErrAgain = errors.New("media: need more data")

	// ErrDrained means the decoder has been fully flushed.
	ErrDrained = errors.New("media: decoder drained")

	// ErrShortBuffer means a resampled chunk does not fit in the
	// destination buffer. This indicates a sizing bug, not bad input.
	ErrShortBuffer = errors.New("media: resampled chunk exceeds destination buffer")
)

// Frame is one decoded PCM frame in the decoder's native format.
type Frame interface {
	SampleCount() int
}

type nativeFrame struct {
	f *astiav.Frame
}

func (n *nativeFrame) SampleCount() int { return n.f.NbSamples() }

func isAstiavErr(err error, target error) bool {
	var ae astiav.Error
	if errors.As(err, &ae) {
		return ae.Is(target)
	}
	return false
}

// OutputChannelCount maps a decoded channel count onto the fixed
// output layout: mono stays mono, stereo stays stereo, anything wider
// is downmixed to a generic surround layout.
func OutputChannelCount(decoded int) int {
	switch decoded {
	case 1:
		return 1
	case 2:
		return 2
	default:
		return astiav.ChannelLayoutSurround.Channels()
	}
}
