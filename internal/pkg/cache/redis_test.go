package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Pesokrava/invoicing/internal/config"
)

func TestWaitForRedis_Unreachable(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Host: "127.0.0.1", Port: "1"}}

	client, err := WaitForRedis(context.Background(), cfg, 2, time.Millisecond)

	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed after 2 attempts")
	assert.ErrorContains(t, err, "127.0.0.1:1")
}
