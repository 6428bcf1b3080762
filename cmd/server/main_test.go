package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/potatoserver/internal/config"
)

func TestHubOptions(t *testing.T) {
	cfg := config.Default()
	cfg.EchoPrefix = ""
	cfg.IncludeSender = false
	cfg.MaxMessageSize = 128
	cfg.IdleTimeout = 30 * time.Second
	cfg.RateLimitBurst = 5

	opts := hubOptions(cfg)

	assert.Equal(t, "", opts.Policy.EchoPrefix)
	assert.False(t, opts.Policy.IncludeSender)
	assert.Equal(t, int64(128), opts.MaxMessageSize)
	assert.Equal(t, 30*time.Second, opts.IdleTimeout)
	assert.Equal(t, 5, opts.RateLimitBurst)
	assert.Equal(t, time.Second, opts.RateLimitInterval)
	assert.Nil(t, opts.Commands)

	cfg.CommandsEnabled = true
	assert.NotNil(t, hubOptions(cfg).Commands)
}
