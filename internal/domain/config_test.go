package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 6, cfg.Fetch.PoolSize)
	assert.Equal(t, "200ms", cfg.Events.PollInterval.String())
	assert.Equal(t, 20, cfg.Search.InitialResults)
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.Equal(t, "mp4", cfg.Download.PreferredContainer)
	assert.Equal(t, 192, cfg.Download.AudioBitrate)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.PoolSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 99999
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Events.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Download.DefaultKind = "hologram"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Download.AudioBitrate = 12
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Download.OutputDir = ""
	assert.Error(t, cfg.Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 9000}
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
}
