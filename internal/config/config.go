package config

import (
	"os"

	"github.com/sonroyaalmerol/tonearm/internal/utils"
)

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func LoadConfig() (*Config, error) {
	dataDir := getenv("TONEARM_DATA_DIR", "./data")

	// TONEARM_QUEUE_CAP supports a plain byte count or a KB/MB suffix.
	queueCap, err := utils.ParseByteSize(getenv("TONEARM_QUEUE_CAP", "80KB"))
	if err != nil {
		return nil, ErrConfig("TONEARM_QUEUE_CAP: " + err.Error())
	}

	cfg := &Config{
		DataDir:       dataDir,
		SyncMode:      getenv("TONEARM_SYNC", "audio"),
		QueueCapBytes: queueCap,
		Resume:        getenv("TONEARM_RESUME", "true") == "true",
		LogLevel:      getenv("TONEARM_LOG_LEVEL", "info"),
	}

	if cfg.SyncMode != "audio" && cfg.SyncMode != "external" {
		return nil, ErrConfig("TONEARM_SYNC must be audio or external")
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)
	return cfg, nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
