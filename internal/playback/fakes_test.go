package playback

import (
	"io"
	"sync"

	"github.com/sonroyaalmerol/tonearm/internal/media"
	"github.com/sonroyaalmerol/tonearm/internal/queue"
)

// fakeFrame carries ready-made PCM so tests can skip real codecs.
type fakeFrame struct {
	pcm []byte
}

func (f *fakeFrame) SampleCount() int { return len(f.pcm) / 4 }

// fakeDecoder "decodes" by handing back the packet payload as PCM.
type fakeDecoder struct {
	ready    [][]byte
	resets   int
	sendErrs []error
}

func (d *fakeDecoder) Send(data []byte, pts int64) error {
	if len(d.sendErrs) > 0 {
		err := d.sendErrs[0]
		d.sendErrs = d.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	d.ready = append(d.ready, data)
	return nil
}

func (d *fakeDecoder) Receive() (media.Frame, error) {
	if len(d.ready) == 0 {
		return nil, media.ErrAgain
	}
	pcm := d.ready[0]
	d.ready = d.ready[1:]
	return &fakeFrame{pcm: pcm}, nil
}

func (d *fakeDecoder) Reset() {
	d.resets++
	d.ready = nil
}

// copyResampler passes fake-frame PCM through unchanged.
type copyResampler struct{}

func (copyResampler) Resample(f media.Frame, dst []byte) (int, error) {
	ff := f.(*fakeFrame)
	if len(ff.pcm) > len(dst) {
		return 0, media.ErrShortBuffer
	}
	return copy(dst, ff.pcm), nil
}

type seekCall struct {
	pos      int64
	backward bool
}

// fakeDemuxer serves a fixed packet script, then io.EOF.
type fakeDemuxer struct {
	mu      sync.Mutex
	packets []queue.Packet
	next    int
	seeks   []seekCall
	seekErr error
}

func (d *fakeDemuxer) ReadPacket() (queue.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next >= len(d.packets) {
		return queue.Packet{}, io.EOF
	}
	p := d.packets[d.next]
	d.next++
	return p, nil
}

func (d *fakeDemuxer) Seek(pos int64, backward bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seekErr != nil {
		return d.seekErr
	}
	d.seeks = append(d.seeks, seekCall{pos: pos, backward: backward})
	return nil
}

func (d *fakeDemuxer) seekLog() []seekCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]seekCall, len(d.seeks))
	copy(out, d.seeks)
	return out
}

// newTestSession wires a session around the fakes with a 1 kHz mono
// stream and a 1/1000 time base, so one PTS tick is one millisecond
// and bytesPerSec is 2000.
func newTestSession(dec Decoder, demux Demuxer) *Session {
	return NewSession(Options{
		Demuxer:          demux,
		Decoder:          dec,
		Resampler:        copyResampler{},
		SampleRate:       1000,
		Channels:         1,
		TimeBaseSeconds:  1.0 / 1000,
		AudioStreamIndex: 0,
		Mode:             SyncAudio,
	})
}

func audioPacket(n int, pts int64) queue.Packet {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(pts)
	}
	return queue.Packet{Data: data, PTS: pts, StreamIndex: 0}
}
