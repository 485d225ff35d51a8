package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sonroyaalmerol/tonearm/internal/app"
	"github.com/sonroyaalmerol/tonearm/internal/config"
	"github.com/sonroyaalmerol/tonearm/internal/repository"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <file> [max-frames]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "keys: left/right seek 10s, down/up seek 1m, q quit")
		os.Exit(2)
	}
	path := os.Args[1]

	var maxFrames int64
	if len(os.Args) == 3 {
		v, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil || v < 0 {
			fmt.Fprintf(os.Stderr, "invalid max-frames %q\n", os.Args[2])
			os.Exit(2)
		}
		maxFrames = v
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	setupLogging(cfg.LogLevel)

	db, err := repository.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	repo := repository.NewRepo(db)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.NewApp(cfg, repo).Run(ctx, path, maxFrames); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})))
}
