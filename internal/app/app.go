// Package app ties the pieces together: it opens a media file, wires
// the playback session to the audio device, drives the keyboard
// transport and persists the playback position.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sonroyaalmerol/tonearm/internal/config"
	"github.com/sonroyaalmerol/tonearm/internal/media"
	"github.com/sonroyaalmerol/tonearm/internal/playback"
	"github.com/sonroyaalmerol/tonearm/internal/repository"
	"github.com/sonroyaalmerol/tonearm/internal/sink"
	"github.com/sonroyaalmerol/tonearm/internal/ui"
)

const positionSaveInterval = 5 * time.Second

type App struct {
	cfg  *config.Config
	repo *repository.Repo
}

func NewApp(cfg *config.Config, repo *repository.Repo) *App {
	return &App{cfg: cfg, repo: repo}
}

// Run plays a single file until it finishes, the user quits, or the
// context is canceled. maxFrames caps how many decoded frames are
// played; <=0 plays to the end.
func (a *App) Run(ctx context.Context, path string, maxFrames int64) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	in, err := media.Open(absPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	dec, err := in.NewDecoder()
	if err != nil {
		return fmt.Errorf("open decoder: %w", err)
	}
	defer dec.Close()

	mode := playback.SyncAudio
	if a.cfg.SyncMode == "external" {
		mode = playback.SyncExternal
	}
	outChannels := media.OutputChannelCount(in.Channels())

	sess := playback.NewSession(playback.Options{
		Demuxer:          in,
		Decoder:          dec,
		Resampler:        media.NewResampler(),
		SampleRate:       in.SampleRate(),
		Channels:         outChannels,
		TimeBaseSeconds:  in.TimeBaseSeconds(),
		AudioStreamIndex: in.AudioStreamIndex(),
		Mode:             mode,
		MaxFrames:        maxFrames,
		QueueCapBytes:    int(a.cfg.QueueCapBytes),
	})

	if a.cfg.Resume {
		if pos, err := a.repo.GetPosition(ctx, absPath); err != nil {
			slog.Warn("load saved position", "path", absPath, "err", err)
		} else if pos != nil && pos.Micros > 0 {
			sess.RequestSeek(pos.Micros, true)
			slog.Info("resuming", "path", absPath,
				"position_s", float64(pos.Micros)/1e6)
		}
	}

	dev, err := sink.Open(in.SampleRate(), outChannels, sess.Pump())
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	defer dev.Close()

	slog.Info("playing", "path", absPath,
		"sample_rate", in.SampleRate(), "channels", outChannels,
		"duration_s", in.DurationSeconds())

	restoreTerm := runKeyboard(ctx, sess)
	defer restoreTerm()
	dev.Start()

	go a.watch(ctx, sess, absPath, in.DurationSeconds())

	err = sess.Run(ctx)

	// Let whatever the device already buffered play out.
	for ctx.Err() == nil && dev.Playing() {
		time.Sleep(50 * time.Millisecond)
	}

	a.savePosition(absPath, sess, in.DurationSeconds())
	fmt.Fprintln(os.Stderr)
	return err
}

// watch periodically persists the position and repaints the status
// line until the session ends.
func (a *App) watch(ctx context.Context, sess *playback.Session, path string, duration float64) {
	tick := time.NewTicker(positionSaveInterval)
	defer tick.Stop()
	paint := time.NewTicker(200 * time.Millisecond)
	defer paint.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if sess.Quitting() {
				return
			}
			a.savePosition(path, sess, duration)
		case <-paint.C:
			if sess.Quitting() {
				return
			}
			fmt.Fprint(os.Stderr, ui.StatusLine(sess.MasterClock(), duration))
		}
	}
}

// savePosition records where playback is, or clears the record when
// playback ran to (or near) the end so the next run starts fresh.
func (a *App) savePosition(path string, sess *playback.Session, duration float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pos := sess.MasterClock()
	if duration > 0 && pos >= duration-1.0 {
		if err := a.repo.DeletePosition(ctx, path); err != nil {
			slog.Warn("clear position", "path", path, "err", err)
		}
		return
	}
	if pos < 1.0 {
		return
	}
	if err := a.repo.SavePosition(ctx, path, int64(pos*1e6)); err != nil {
		slog.Warn("save position", "path", path, "err", err)
	}
}
