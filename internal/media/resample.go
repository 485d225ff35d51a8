package media

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// Resampler converts decoder-native PCM frames into interleaved s16 at
// the frame's own sample rate. Every conversion parameter is derived
// from the frame being converted, never cached from a previous call,
// because the input layout can change packet to packet. A fresh swr
// context is allocated per call; with equal input and output rates it
// carries no inter-call state worth keeping.
type Resampler struct {
	maxOutSamples int
}

func NewResampler() *Resampler {
	return &Resampler{}
}

// inputLayout applies the fallback policy: trust the frame's layout
// tag when it is valid, otherwise use the default layout for the
// frame's channel count.
func inputLayout(src *astiav.Frame) (astiav.ChannelLayout, error) {
	layout := src.ChannelLayout()
	if layout.Valid() && layout.Channels() > 0 {
		return layout, nil
	}
	if l, ok := defaultLayout(layout.Channels()); ok {
		return l, nil
	}
	if layout.Channels() > 0 {
		// Wider than any default; let swr work from the count alone.
		return layout, nil
	}
	return layout, errors.New("frame carries no usable channel layout")
}

// defaultLayout is the conventional layout for a bare channel count,
// used when a frame's layout tag is missing or invalid.
func defaultLayout(channels int) (astiav.ChannelLayout, bool) {
	switch channels {
	case 1:
		return astiav.ChannelLayoutMono, true
	case 2:
		return astiav.ChannelLayoutStereo, true
	case 3:
		return astiav.ChannelLayout2Point1, true
	case 4:
		return astiav.ChannelLayout4Point0, true
	case 5:
		return astiav.ChannelLayout5Point0, true
	case 6:
		return astiav.ChannelLayout5Point1, true
	case 7:
		return astiav.ChannelLayout6Point1, true
	case 8:
		return astiav.ChannelLayout7Point1, true
	}
	return astiav.ChannelLayout{}, false
}

func outputLayout(channels int) astiav.ChannelLayout {
	switch channels {
	case 1:
		return astiav.ChannelLayoutMono
	case 2:
		return astiav.ChannelLayoutStereo
	default:
		return astiav.ChannelLayoutSurround
	}
}

// Resample converts one frame into dst and returns the byte count.
// ErrShortBuffer is returned when dst cannot hold the converted chunk;
// callers treat that as a sizing bug rather than recoverable input.
func (r *Resampler) Resample(f Frame, dst []byte) (int, error) {
	nf, ok := f.(*nativeFrame)
	if !ok {
		return 0, fmt.Errorf("unsupported frame type %T", f)
	}
	src := nf.f

	in := src.NbSamples()
	if in <= 0 {
		return 0, errors.New("frame has no samples")
	}

	inLayout, err := inputLayout(src)
	if err != nil {
		return 0, err
	}
	src.SetChannelLayout(inLayout)

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return 0, errors.New("alloc swr context")
	}
	defer swr.Free()

	out := astiav.AllocFrame()
	if out == nil {
		return 0, errors.New("alloc output frame")
	}
	defer out.Free()

	// Output sample count matches the input at equal rates; the
	// allocation only ever grows so a large frame never has to shrink
	// a previously sufficient buffer.
	if in > r.maxOutSamples {
		r.maxOutSamples = in
	}

	out.SetChannelLayout(outputLayout(inLayout.Channels()))
	out.SetSampleRate(src.SampleRate())
	out.SetSampleFormat(astiav.SampleFormatS16)
	out.SetNbSamples(r.maxOutSamples)
	if err := out.AllocBuffer(0); err != nil {
		return 0, fmt.Errorf("alloc output buffer: %w", err)
	}

	if err := swr.ConvertFrame(src, out); err != nil {
		return 0, fmt.Errorf("swr convert: %w", err)
	}

	b, err := out.Data().Bytes(0)
	if err != nil {
		return 0, fmt.Errorf("output bytes: %w", err)
	}
	if len(b) > len(dst) {
		return 0, ErrShortBuffer
	}
	return copy(dst, b), nil
}
