package queue

import (
	"math"
	"sync"
)

// NoPTS marks a packet that carries no presentation timestamp.
const NoPTS = int64(math.MinInt64)

// Packet is one chunk of compressed audio pulled from the demuxer.
// Once pushed, the queue owns it; once popped, the caller does.
type Packet struct {
	Data        []byte
	PTS         int64
	StreamIndex int

	flush bool
}

// FlushPacket returns the sentinel enqueued right after a seek so the
// consumer discards buffered decoder state instead of playing it.
func FlushPacket() Packet {
	return Packet{flush: true}
}

func (p Packet) IsFlush() bool { return p.flush }

func (p Packet) Size() int { return len(p.Data) }

// PopStatus reports how a Pop call ended.
type PopStatus int

const (
	// PopOK means a packet was dequeued.
	PopOK PopStatus = iota
	// PopEmpty means the queue was empty and the call was non-blocking.
	PopEmpty
	// PopQuit means the queue was shut down.
	PopQuit
)

// PacketQueue is a thread-safe FIFO of compressed packets with
// byte-size accounting. Push never blocks; the producer enforces any
// capacity limit by watching Bytes before pushing.
type PacketQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	packets  []Packet
	bytes    int
	done     bool
}

func NewPacketQueue() *PacketQueue {
	q := &PacketQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends a packet and wakes one blocked Pop.
func (q *PacketQueue) Push(p Packet) {
	q.mu.Lock()
	q.packets = append(q.packets, p)
	q.bytes += p.Size()
	q.notEmpty.Signal()
	q.mu.Unlock()
}

// Pop removes the oldest packet. With blocking set it waits until a
// packet arrives or the queue shuts down; otherwise it returns
// PopEmpty immediately when nothing is queued.
func (q *PacketQueue) Pop(blocking bool) (Packet, PopStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.done {
			return Packet{}, PopQuit
		}
		if len(q.packets) > 0 {
			p := q.packets[0]
			q.packets[0] = Packet{}
			q.packets = q.packets[1:]
			q.bytes -= p.Size()
			if len(q.packets) == 0 {
				q.packets = nil
			}
			return p, PopOK
		}
		if !blocking {
			return Packet{}, PopEmpty
		}
		q.notEmpty.Wait()
	}
}

// Flush drops every queued packet and resets the accounting. Used
// exclusively around seeks.
func (q *PacketQueue) Flush() {
	q.mu.Lock()
	q.packets = nil
	q.bytes = 0
	q.mu.Unlock()
}

// Shutdown makes every current and future Pop return PopQuit. It is
// the only way a blocked Pop is released other than a Push.
func (q *PacketQueue) Shutdown() {
	q.mu.Lock()
	q.done = true
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}

func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

// Bytes is the total size of the queued packet payloads.
func (q *PacketQueue) Bytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bytes
}
