package media

import (
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
)

// Decoder feeds compressed packet payloads to the codec and pulls
// decoded PCM frames back out. It shares the codec context owned by
// its Input and must only be used from one goroutine (the pump).
type Decoder struct {
	cc    *astiav.CodecContext
	pkt   *astiav.Packet
	frame *astiav.Frame
}

// NewDecoder returns a decoder bound to the input's audio stream.
func (in *Input) NewDecoder() (*Decoder, error) {
	pkt := astiav.AllocPacket()
	if pkt == nil {
		return nil, fmt.Errorf("alloc packet")
	}
	frame := astiav.AllocFrame()
	if frame == nil {
		pkt.Free()
		return nil, fmt.Errorf("alloc frame")
	}
	return &Decoder{cc: in.decCtx, pkt: pkt, frame: frame}, nil
}

// Send submits one packet's compressed bytes. ErrAgain means the
// decoder is full and a Receive must drain it first.
func (d *Decoder) Send(data []byte, pts int64) error {
	d.pkt.Unref()
	if err := d.pkt.FromData(data); err != nil {
		return fmt.Errorf("packet from data: %w", err)
	}
	d.pkt.SetPts(pts)

	if err := d.cc.SendPacket(d.pkt); err != nil {
		if isAstiavErr(err, astiav.ErrorAgain) {
			return ErrAgain
		}
		if isAstiavErr(err, io.EOF) {
			return ErrDrained
		}
		return fmt.Errorf("send packet: %w", err)
	}
	return nil
}

// Receive returns the next fully decoded frame. The frame is only
// valid until the next Receive call. ErrAgain means the decoder needs
// more input.
func (d *Decoder) Receive() (Frame, error) {
	d.frame.Unref()
	if err := d.cc.ReceiveFrame(d.frame); err != nil {
		if isAstiavErr(err, astiav.ErrorAgain) {
			return nil, ErrAgain
		}
		if isAstiavErr(err, io.EOF) {
			return nil, ErrDrained
		}
		return nil, fmt.Errorf("receive frame: %w", err)
	}
	return &nativeFrame{f: d.frame}, nil
}

// Reset discards any partially decoded state buffered inside the
// codec. Called when a flush marker comes off the packet queue.
func (d *Decoder) Reset() {
	d.cc.FlushBuffers()
}

func (d *Decoder) Close() {
	if d.frame != nil {
		d.frame.Free()
	}
	if d.pkt != nil {
		d.pkt.Free()
	}
}
