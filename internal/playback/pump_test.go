package playback

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// stubSource scripts NextChunk results for pump tests.
type stubSource struct {
	chunks [][]byte
	errs   []error
	calls  int
}

func (s *stubSource) NextChunk(dst []byte) (int, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	if len(s.chunks) == 0 {
		return 0, ErrSessionQuit
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return copy(dst, c), nil
}

func chunkOf(n int, b byte) []byte {
	c := make([]byte, n)
	for i := range c {
		c[i] = b
	}
	return c
}

func newPumpSession(src chunkSource) (*Session, *Pump) {
	s := newTestSession(&fakeDecoder{}, nil)
	p := s.Pump()
	p.src = src
	return s, p
}

func TestFillSpansChunksAndCarriesOver(t *testing.T) {
	src := &stubSource{chunks: [][]byte{
		chunkOf(100, 1), chunkOf(100, 2), chunkOf(100, 3),
	}}
	_, p := newPumpSession(src)

	dst := make([]byte, 250)
	if n := p.Fill(dst); n != 250 {
		t.Fatalf("filled %d, want 250", n)
	}
	want := append(append(chunkOf(100, 1), chunkOf(100, 2)...), chunkOf(50, 3)...)
	if !bytes.Equal(dst, want) {
		t.Fatal("filled bytes out of order across chunk boundaries")
	}
	if src.calls != 3 {
		t.Fatalf("source calls = %d, want 3", src.calls)
	}

	// The rest of chunk 3 must come from staging, not a new fetch.
	rest := make([]byte, 50)
	if n := p.Fill(rest); n != 50 {
		t.Fatalf("filled %d, want 50", n)
	}
	if !bytes.Equal(rest, chunkOf(50, 3)) {
		t.Fatal("staging carry-over lost")
	}
	if src.calls != 3 {
		t.Fatalf("source calls = %d after carry-over, want 3", src.calls)
	}
}

func TestFillSubstitutesSilenceOnDecodeError(t *testing.T) {
	src := &stubSource{
		errs:   []error{errors.New("boom")},
		chunks: [][]byte{chunkOf(16, 0xAA)},
	}
	_, p := newPumpSession(src)

	dst := make([]byte, silenceBytes+16)
	if n := p.Fill(dst); n != len(dst) {
		t.Fatalf("filled %d, want %d", n, len(dst))
	}
	if !bytes.Equal(dst[:silenceBytes], make([]byte, silenceBytes)) {
		t.Fatal("decode error did not produce a silence block")
	}
	if !bytes.Equal(dst[silenceBytes:], chunkOf(16, 0xAA)) {
		t.Fatal("recovery chunk after silence is wrong")
	}
}

func TestFillReturnsEarlyOnQuit(t *testing.T) {
	src := &stubSource{chunks: [][]byte{chunkOf(100, 1)}}
	s, p := newPumpSession(src)
	s.Quit()

	dst := make([]byte, 100)
	if n := p.Fill(dst); n != 0 {
		t.Fatalf("filled %d after quit, want 0", n)
	}
	if n, err := p.Read(dst); n != 0 || err != io.EOF {
		t.Fatalf("Read = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestReadDeliversExactly(t *testing.T) {
	src := &stubSource{chunks: [][]byte{chunkOf(300, 7)}}
	_, p := newPumpSession(src)

	dst := make([]byte, 300)
	n, err := io.ReadFull(p, dst)
	if err != nil || n != 300 {
		t.Fatalf("ReadFull = (%d, %v), want (300, nil)", n, err)
	}
	if !bytes.Equal(dst, chunkOf(300, 7)) {
		t.Fatal("read bytes corrupted")
	}
}
