package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer r.Close()

	assert.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, 2, r.Client.Options().PoolSize)

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestNewRedis_URL(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(context.Background(), RedisOptions{
		URL:  "redis://" + mr.Addr() + "/3",
		Addr: "ignored:6379",
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, mr.Addr(), r.Client.Options().Addr)
	assert.Equal(t, 3, r.Client.Options().DB)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisOptions{Addr: addr, DialTimeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{URL: "http://nope"})
	assert.ErrorContains(t, err, "invalid redis url")
}
