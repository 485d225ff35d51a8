package playback

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sonroyaalmerol/tonearm/internal/media"
	"github.com/sonroyaalmerol/tonearm/internal/queue"
)

// FrameSource pulls compressed packets off the queue, runs them
// through the decoder and resampler, and keeps the audio clock
// current. The partial-packet cursor lives in explicit fields rather
// than hidden function state: pending holds the compressed bytes of
// the packet currently in flight, nil once the decoder accepted them.
type FrameSource struct {
	q       *queue.PacketQueue
	dec     Decoder
	rs      Resampler
	session *Session

	timeBase    float64 // seconds per PTS tick
	bytesPerSec int

	pending    []byte
	pendingPTS int64

	frames    int64
	maxFrames int64
}

// NextChunk decodes until one resampled PCM chunk is available and
// copies it into dst, returning the byte count. A hard decode error
// fails only the packet in flight; the caller's recovery is simply to
// call again, which moves on to the next packet. ErrSessionQuit is
// returned once the session is shutting down.
func (f *FrameSource) NextChunk(dst []byte) (int, error) {
	for {
		if f.session.Quitting() {
			return 0, ErrSessionQuit
		}

		// Drain any frame the decoder already completed.
		frame, err := f.dec.Receive()
		switch {
		case err == nil:
			n, rerr := f.rs.Resample(frame, dst)
			if rerr != nil {
				if errors.Is(rerr, media.ErrShortBuffer) {
					// Sizing bug, not bad input; surface it loudly.
					slog.Error("resampled chunk exceeds staging buffer",
						"session", f.session.ID, "dst", len(dst))
					return 0, rerr
				}
				slog.Warn("resample failed, dropping frame",
					"session", f.session.ID, "err", rerr)
				continue
			}
			if n <= 0 {
				continue
			}
			f.advanceClock(n)
			f.countFrame()
			return n, nil

		case errors.Is(err, media.ErrAgain), errors.Is(err, media.ErrDrained):
			// Decoder needs more input; fall through to feed it.

		default:
			f.pending = nil
			return 0, fmt.Errorf("receive frame: %w", err)
		}

		if f.pending != nil {
			err := f.dec.Send(f.pending, f.pendingPTS)
			if errors.Is(err, media.ErrAgain) {
				// Decoder full; loop back and drain it first.
				continue
			}
			f.pending = nil
			if err != nil {
				return 0, fmt.Errorf("send packet: %w", err)
			}
			continue
		}

		pkt, st := f.q.Pop(true)
		switch st {
		case queue.PopQuit:
			return 0, ErrSessionQuit
		case queue.PopEmpty:
			continue
		}

		if pkt.IsFlush() {
			f.dec.Reset()
			f.pending = nil
			continue
		}

		f.pending = pkt.Data
		f.pendingPTS = pkt.PTS
		if pkt.PTS != queue.NoPTS {
			f.session.audioClock.Set(float64(pkt.PTS) * f.timeBase)
		}
	}
}

// advanceClock moves the audio clock past the chunk just produced.
// Packets with timestamps snap the clock; between timestamps it runs
// on this estimate.
func (f *FrameSource) advanceClock(chunkBytes int) {
	if f.bytesPerSec <= 0 {
		return
	}
	c := &f.session.audioClock
	c.Set(c.Get() + float64(chunkBytes)/float64(f.bytesPerSec))
}

func (f *FrameSource) countFrame() {
	f.frames++
	if f.maxFrames > 0 && f.frames >= f.maxFrames {
		slog.Info("decoded frame limit reached",
			"session", f.session.ID, "frames", f.frames)
		f.session.Quit()
	}
}
