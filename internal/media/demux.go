package media

import (
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/sonroyaalmerol/tonearm/internal/queue"
)

const microsPerSecond = 1_000_000

// Input owns the demuxer state for one media file: the format context,
// the selected audio stream and its opened decoder context.
type Input struct {
	fc     *astiav.FormatContext
	st     *astiav.Stream
	decCtx *astiav.CodecContext
	pkt    *astiav.Packet
}

// Open opens the container at path, selects the best audio stream and
// opens a decoder for it.
func Open(path string) (*Input, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context")
	}

	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}

	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	st, codec, err := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1)
	if err != nil || st == nil || codec == nil {
		fc.CloseInput()
		fc.Free()
		if err != nil {
			return nil, fmt.Errorf("find best audio stream: %w", err)
		}
		return nil, errors.New("no audio stream found")
	}

	decCtx := astiav.AllocCodecContext(codec)
	if decCtx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc codec context")
	}
	if err := decCtx.FromCodecParameters(st.CodecParameters()); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("codec from params: %w", err)
	}
	decCtx.SetTimeBase(st.TimeBase())

	if err := decCtx.Open(codec, nil); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc packet")
	}

	return &Input{fc: fc, st: st, decCtx: decCtx, pkt: pkt}, nil
}

// ReadPacket reads the next packet from the container. The returned
// packet owns a Go copy of the payload; the native packet is unrefed
// before returning. io.EOF signals end of the container, ErrAgain a
// transient "no data yet" condition.
func (in *Input) ReadPacket() (queue.Packet, error) {
	in.pkt.Unref()
	if err := in.fc.ReadFrame(in.pkt); err != nil {
		if isAstiavErr(err, io.EOF) {
			return queue.Packet{}, io.EOF
		}
		if isAstiavErr(err, astiav.ErrorAgain) {
			return queue.Packet{}, ErrAgain
		}
		return queue.Packet{}, fmt.Errorf("read frame: %w", err)
	}

	data := make([]byte, len(in.pkt.Data()))
	copy(data, in.pkt.Data())

	return queue.Packet{
		Data:        data,
		PTS:         in.pkt.Pts(),
		StreamIndex: in.pkt.StreamIndex(),
	}, nil
}

// Seek positions the demuxer at targetMicros, rescaled into the audio
// stream's time base. A backward seek snaps to the keyframe at or
// before the target.
func (in *Input) Seek(targetMicros int64, backward bool) error {
	ts := astiav.RescaleQ(targetMicros, astiav.NewRational(1, microsPerSecond), in.st.TimeBase())
	flags := astiav.NewSeekFlags()
	if backward {
		flags = astiav.NewSeekFlags(astiav.SeekFlagBackward)
	}
	if err := in.fc.SeekFrame(in.st.Index(), ts, flags); err != nil {
		return fmt.Errorf("seek frame: %w", err)
	}
	_ = in.fc.Flush()
	return nil
}

func (in *Input) AudioStreamIndex() int { return in.st.Index() }

func (in *Input) SampleRate() int { return in.decCtx.SampleRate() }

func (in *Input) Channels() int { return in.decCtx.ChannelLayout().Channels() }

// TimeBaseSeconds is the duration of one PTS tick of the audio stream.
func (in *Input) TimeBaseSeconds() float64 { return in.st.TimeBase().Float64() }

func (in *Input) DurationSeconds() float64 {
	d := in.fc.Duration()
	if d <= 0 {
		return 0
	}
	return float64(d) / microsPerSecond
}

func (in *Input) Close() {
	if in.pkt != nil {
		in.pkt.Free()
	}
	if in.decCtx != nil {
		in.decCtx.Free()
	}
	if in.fc != nil {
		in.fc.CloseInput()
		in.fc.Free()
	}
}
