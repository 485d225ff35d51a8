// Package sink plays interleaved s16le PCM through the system audio
// device. It owns nothing about timing beyond the hardware buffer
// size; the pipeline drives pacing by how fast Read is allowed to
// return data.
package sink

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// bufferSamples is the hardware-side buffer depth, in sample frames
// per channel. Small enough that the clock the pump reports stays
// close to what is actually audible.
const bufferSamples = 1024

// Device is an open audio output pulling from a PCM reader.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
}

// Open initializes the platform audio backend for s16le output at the
// given rate and channel count, reading PCM from src. Open blocks
// until the backend is ready.
func Open(sampleRate, channels int, src io.Reader) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Second * bufferSamples / time.Duration(sampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	return &Device{ctx: ctx, player: ctx.NewPlayer(src)}, nil
}

// Start begins pulling from the source.
func (d *Device) Start() { d.player.Play() }

// Playing reports whether the device is still consuming the source.
// It turns false once the source returns io.EOF and the buffered
// audio has played out.
func (d *Device) Playing() bool { return d.player.IsPlaying() }

// Close stops playback and releases the device.
func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("failed to close player: %w", err)
	}
	return nil
}
