package playback

import (
	"errors"
	"io"
	"log/slog"
)

const (
	// Largest resampled chunk one frame may produce, matching the
	// decoder-side worst case for a single audio frame.
	maxChunkBytes = 192000

	// Staging capacity leaves headroom above maxChunkBytes so clock
	// corrections can stretch a chunk in place.
	stagingBytes = maxChunkBytes * 3 / 2

	// Silence substituted for one failed decode. The sink protocol
	// has no error channel, so errors become a short quiet gap.
	silenceBytes = 1024

	// Samples per sink pull; also feeds the sync threshold.
	sinkBufferSamples = 1024
)

// chunkSource is what the pump drains; satisfied by *FrameSource.
type chunkSource interface {
	NextChunk(dst []byte) (int, error)
}

// Pump is the pull side of the pipeline. The sink calls Read on its
// own schedule; each call keeps copying staged PCM until the request
// is satisfied, fetching and sync-adjusting a new chunk whenever the
// staging buffer runs dry.
type Pump struct {
	session *Session
	src     chunkSource
	sync    *ClockSync

	staging  []byte
	bufIndex int
	bufSize  int
}

// Fill populates dst completely unless the session quits mid-request,
// in which case it returns early with however much was copied. The
// quit check at the top of every iteration is the pipeline's primary
// cancellation point.
func (p *Pump) Fill(dst []byte) int {
	filled := 0
	for filled < len(dst) {
		if p.session.Quitting() {
			break
		}

		if p.bufIndex >= p.bufSize {
			n, err := p.src.NextChunk(p.staging[:maxChunkBytes])
			if err != nil {
				if errors.Is(err, ErrSessionQuit) {
					break
				}
				slog.Warn("decode failed, substituting silence",
					"session", p.session.ID, "err", err)
				n = silenceBytes
				clear(p.staging[:n])
			} else {
				n = p.sync.Adjust(p.staging, n)
			}
			p.bufIndex = 0
			p.bufSize = n
		}

		n := copy(dst[filled:], p.staging[p.bufIndex:p.bufSize])
		filled += n
		p.bufIndex += n
		p.session.staged.Store(int64(p.bufSize - p.bufIndex))
	}
	return filled
}

// Read lets the sink pull PCM from the pump as an io.Reader. It
// reports io.EOF once the session has quit and the staging buffer has
// been handed off.
func (p *Pump) Read(dst []byte) (int, error) {
	n := p.Fill(dst)
	if n == 0 && p.session.Quitting() {
		return 0, io.EOF
	}
	return n, nil
}
