package domain

import (
	"fmt"
	"time"
)

// Config is the full service configuration, loaded from file and
// environment by the config loader.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	Events       EventsConfig       `mapstructure:"events"`
	Search       SearchConfig       `mapstructure:"search"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DownloadConfig struct {
	OutputDir          string `mapstructure:"output_dir"`
	PreferredContainer string `mapstructure:"preferred_container"`
	AudioBitrate       int    `mapstructure:"audio_bitrate"`
	DefaultKind        string `mapstructure:"default_kind"`
}

type FetchConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

type EventsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type SearchConfig struct {
	InitialResults int `mapstructure:"initial_results"`
	PageSize       int `mapstructure:"page_size"`
}

type ExtractorConfig struct {
	YTDLPBinary     string        `mapstructure:"ytdlp_binary"`
	FFmpegBinary    string        `mapstructure:"ffmpeg_binary"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
}

type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript or notify-send
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	LogsDir string `mapstructure:"logs_dir"`
}

// DefaultConfig returns the built-in defaults, used when no config
// file is present and as the base the loader merges onto.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8089,
		},
		Download: DownloadConfig{
			OutputDir:          "~/Downloads/tubequeue",
			PreferredContainer: "mp4",
			AudioBitrate:       192,
			DefaultKind:        string(KindVideo),
		},
		Fetch: FetchConfig{
			PoolSize: 6,
		},
		Events: EventsConfig{
			PollInterval: 200 * time.Millisecond,
		},
		Search: SearchConfig{
			InitialResults: 20,
			PageSize:       10,
		},
		Extractor: ExtractorConfig{
			YTDLPBinary:     "yt-dlp",
			FFmpegBinary:    "ffmpeg",
			MetadataTimeout: 30 * time.Second,
			SearchTimeout:   45 * time.Second,
		},
		History: HistoryConfig{
			DatabasePath: "~/.tubequeue/history.db",
		},
		Notification: NotificationConfig{
			Enabled: true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogsDir: "~/.tubequeue/logs",
		},
	}
}

// Validate checks configuration invariants before the service starts
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Fetch.PoolSize < 1 {
		return fmt.Errorf("fetch pool size must be positive, got %d", c.Fetch.PoolSize)
	}
	if c.Events.PollInterval <= 0 {
		return fmt.Errorf("events poll interval must be positive, got %s", c.Events.PollInterval)
	}
	if c.Search.InitialResults < 1 || c.Search.PageSize < 1 {
		return fmt.Errorf("search page sizes must be positive")
	}
	if c.Download.AudioBitrate < 32 || c.Download.AudioBitrate > 320 {
		return fmt.Errorf("audio bitrate out of range: %d", c.Download.AudioBitrate)
	}
	if !ValidateKind(TargetKind(c.Download.DefaultKind)) {
		return fmt.Errorf("invalid default kind: %q", c.Download.DefaultKind)
	}
	if c.Download.OutputDir == "" {
		return fmt.Errorf("download output_dir must not be empty")
	}
	return nil
}
