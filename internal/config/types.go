package config

type Config struct {
	DataDir       string
	SyncMode      string // audio/external
	QueueCapBytes int64
	Resume        bool
	LogLevel      string // debug/info/warn/error
}
