package app

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/sonroyaalmerol/tonearm/internal/playback"
)

const (
	seekStepMicros    = 10 * 1_000_000
	seekBigStepMicros = 60 * 1_000_000

	keyCtrlC byte = 0x03
	keyEsc   byte = 0x1b
)

// runKeyboard puts stdin in raw mode and dispatches transport keys:
// left/right arrows seek ten seconds back/forward, down/up a minute,
// q or Ctrl-C quits. It returns a restore function the caller must
// invoke on exit; the reader goroutine itself may stay blocked in
// Read until the process ends, so nothing waits on it. If stdin is
// not a terminal no keyboard is wired and restore is a no-op.
func runKeyboard(ctx context.Context, sess *playback.Session) func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		slog.Warn("raw mode unavailable, keyboard disabled", "err", err)
		return func() {}
	}

	go func() {
		defer sess.Quit()

		buf := make([]byte, 3)
		for {
			if ctx.Err() != nil || sess.Quitting() {
				return
			}
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return
			}
			switch buf[0] {
			case 'q', 'Q', keyCtrlC:
				return
			case keyEsc:
				if n == 3 && buf[1] == '[' {
					handleArrow(sess, buf[2])
				}
			}
		}
	}()

	return func() { _ = term.Restore(fd, old) }
}

func handleArrow(sess *playback.Session, key byte) {
	var delta int64
	switch key {
	case 'C': // right
		delta = seekStepMicros
	case 'D': // left
		delta = -seekStepMicros
	case 'A': // up
		delta = seekBigStepMicros
	case 'B': // down
		delta = -seekBigStepMicros
	default:
		return
	}
	seekRelative(sess, delta)
}

func seekRelative(sess *playback.Session, deltaMicros int64) {
	target := int64(sess.MasterClock()*1e6) + deltaMicros
	if target < 0 {
		target = 0
	}
	if !sess.RequestSeek(target, deltaMicros < 0) {
		slog.Debug("seek dropped, another still pending", "target_us", target)
	}
}
