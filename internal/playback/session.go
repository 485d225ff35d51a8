// Package playback is the core pipeline: a producer goroutine fills a
// packet queue from the demuxer while the sink's pull side drains it
// through decode, resample and clock-sync stages.
package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sonroyaalmerol/tonearm/internal/media"
	"github.com/sonroyaalmerol/tonearm/internal/queue"
)

// ErrSessionQuit propagates orderly shutdown up through the pipeline.
// It is a signal, not a failure.
var ErrSessionQuit = errors.New("playback: session quitting")

// SyncMode selects the master clock playback timing is measured
// against.
type SyncMode int

const (
	// SyncAudio uses the audio clock itself; drift correction is a
	// no-op because the clock can never drift from itself.
	SyncAudio SyncMode = iota
	// SyncExternal tracks a wall clock anchored at session start.
	SyncExternal
)

// Demuxer is the container-side collaborator of the producer.
type Demuxer interface {
	ReadPacket() (queue.Packet, error)
	Seek(targetMicros int64, backward bool) error
}

// Decoder turns compressed packet payloads into PCM frames.
type Decoder interface {
	Send(data []byte, pts int64) error
	Receive() (media.Frame, error)
	Reset()
}

// Resampler converts a decoded frame into interleaved s16 bytes.
type Resampler interface {
	Resample(f media.Frame, dst []byte) (int, error)
}

// Options configures a playback session.
type Options struct {
	Demuxer   Demuxer
	Decoder   Decoder
	Resampler Resampler

	SampleRate       int
	Channels         int // output channel count
	TimeBaseSeconds  float64
	AudioStreamIndex int

	Mode          SyncMode
	MaxFrames     int64 // decoded frames before auto-quit; <=0 is unlimited
	QueueCapBytes int
}

const (
	defaultQueueCapBytes = 5 * 16 * 1024
	backPressureDelay    = 10 * time.Millisecond
	drainPollDelay       = 50 * time.Millisecond
)

// Session aggregates the packet queue, the clocks, the pending seek
// request and the quit flag shared by every stage of the pipeline.
type Session struct {
	ID string

	demux       Demuxer
	q           *queue.PacketQueue
	source      *FrameSource
	pump        *Pump
	sync        *ClockSync
	mode        SyncMode
	bytesPerSec int
	queueCap    int
	audioStream int

	audioClock Clock
	staged     atomic.Int64 // pump bytes fetched but not yet delivered
	epochMu    sync.Mutex
	epoch      time.Time // external clock origin

	quit atomic.Bool

	seekMu       sync.Mutex
	seekPending  bool
	seekPos      int64
	seekBackward bool
}

func NewSession(o Options) *Session {
	cap := o.QueueCapBytes
	if cap <= 0 {
		cap = defaultQueueCapBytes
	}

	s := &Session{
		ID:          uuid.New().String(),
		demux:       o.Demuxer,
		q:           queue.NewPacketQueue(),
		mode:        o.Mode,
		bytesPerSec: 2 * o.Channels * o.SampleRate,
		queueCap:    cap,
		audioStream: o.AudioStreamIndex,
		epoch:       time.Now(),
	}

	s.source = &FrameSource{
		q:           s.q,
		dec:         o.Decoder,
		rs:          o.Resampler,
		session:     s,
		timeBase:    o.TimeBaseSeconds,
		bytesPerSec: s.bytesPerSec,
		maxFrames:   o.MaxFrames,
	}
	s.sync = newClockSync(o.Mode, o.SampleRate, o.Channels, sinkBufferSamples,
		s.AudioClock, s.referenceClock)
	s.pump = &Pump{session: s, src: s.source, sync: s.sync,
		staging: make([]byte, stagingBytes)}

	return s
}

// Pump returns the pull side of the pipeline; the sink reads from it.
func (s *Session) Pump() *Pump { return s.pump }

// Quit flags the session as stopping and releases every blocking wait.
// Safe to call from any goroutine, any number of times.
func (s *Session) Quit() {
	if s.quit.CompareAndSwap(false, true) {
		s.q.Shutdown()
		slog.Debug("session quitting", "session", s.ID)
	}
}

func (s *Session) Quitting() bool { return s.quit.Load() }

// AudioClock is the presentation time of the sample currently leaving
// the sink: the decoder-side clock minus whatever the pump has staged
// but not delivered yet.
func (s *Session) AudioClock() float64 {
	pts := s.audioClock.Get()
	if s.bytesPerSec > 0 {
		pts -= float64(s.staged.Load()) / float64(s.bytesPerSec)
	}
	return pts
}

// ExternalClock is wall time measured from the session epoch. The
// epoch is re-anchored on every successful seek so the reference
// follows the stream position instead of drifting a full seek away.
func (s *Session) ExternalClock() float64 {
	s.epochMu.Lock()
	epoch := s.epoch
	s.epochMu.Unlock()
	return time.Since(epoch).Seconds()
}

func (s *Session) rebaseExternalClock(positionMicros int64) {
	s.epochMu.Lock()
	s.epoch = time.Now().Add(-time.Duration(positionMicros) * time.Microsecond)
	s.epochMu.Unlock()
}

// MasterClock is the reference position of the session in seconds.
func (s *Session) MasterClock() float64 {
	if s.mode == SyncExternal {
		return s.ExternalClock()
	}
	return s.AudioClock()
}

func (s *Session) referenceClock() float64 { return s.MasterClock() }

// RequestSeek records a seek to be serviced by the producer. A request
// arriving while another is still pending is dropped, and the dropped
// request is NOT replayed later: callers must not assume the last
// requested position wins. Returns false when dropped.
func (s *Session) RequestSeek(targetMicros int64, backward bool) bool {
	s.seekMu.Lock()
	defer s.seekMu.Unlock()
	if s.seekPending {
		return false
	}
	s.seekPending = true
	s.seekPos = targetMicros
	s.seekBackward = backward
	return true
}

func (s *Session) takeSeek() (int64, bool, bool) {
	s.seekMu.Lock()
	defer s.seekMu.Unlock()
	if !s.seekPending {
		return 0, false, false
	}
	s.seekPending = false
	return s.seekPos, s.seekBackward, true
}

// serviceSeek handles at most one pending request: container-level
// seek, then flush the queue and enqueue a flush marker so the decoder
// discards stale buffered state. A failed seek is logged and nothing
// is flushed; playback continues from wherever the stream ended up.
func (s *Session) serviceSeek() {
	pos, backward, ok := s.takeSeek()
	if !ok {
		return
	}
	if err := s.demux.Seek(pos, backward); err != nil {
		slog.Error("seek failed", "session", s.ID, "target_us", pos, "err", err)
		return
	}
	s.q.Flush()
	s.q.Push(queue.FlushPacket())
	s.rebaseExternalClock(pos)
	slog.Debug("seek serviced", "session", s.ID, "target_us", pos, "backward", backward)
}

// Run is the producer loop: it services seek requests, reads packets
// from the demuxer and pushes audio-stream packets onto the queue,
// sleeping briefly whenever the queue holds more than the byte cap.
// It returns once the container is exhausted and drained, or the
// session quits.
func (s *Session) Run(ctx context.Context) error {
	defer s.Quit()

	for {
		if s.quit.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.serviceSeek()

		if s.q.Bytes() > s.queueCap {
			if !s.pause(ctx, backPressureDelay) {
				return ctx.Err()
			}
			continue
		}

		pkt, err := s.demux.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return s.drain(ctx)
			}
			if errors.Is(err, media.ErrAgain) {
				if !s.pause(ctx, backPressureDelay) {
					return ctx.Err()
				}
				continue
			}
			slog.Error("read packet", "session", s.ID, "err", err)
			return err
		}

		if pkt.StreamIndex != s.audioStream {
			continue
		}
		s.q.Push(pkt)
	}
}

// drain waits for the consumer to empty the queue before quitting, so
// audio buffered at end of file still plays out.
func (s *Session) drain(ctx context.Context) error {
	slog.Debug("demuxer EOF, draining queue", "session", s.ID)
	for s.q.Len() > 0 {
		if s.quit.Load() {
			return nil
		}
		if !s.pause(ctx, drainPollDelay) {
			return ctx.Err()
		}
	}
	return nil
}

// pause sleeps for d unless the context is canceled first.
func (s *Session) pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
