package redisx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCmdable implements the two commands the deduper uses over a map.
type fakeCmdable struct {
	redis.Cmdable
	keys map[string]time.Duration
	err  error
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if _, ok := f.keys[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.keys[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	for _, k := range keys {
		delete(f.keys, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func Test_Deduper(t *testing.T) {
	t.Run("second claim is rejected until released", func(t *testing.T) {
		// given
		rdb := &fakeCmdable{keys: map[string]time.Duration{}}
		d := NewDeduper(rdb, "fulfillment", time.Hour)
		ctx := context.Background()

		// when
		first, err1 := d.Claim(ctx, "evt-1")
		second, err2 := d.Claim(ctx, "evt-1")
		errRelease := d.Release(ctx, "evt-1")
		third, err3 := d.Claim(ctx, "evt-1")

		// then
		require.NoError(t, err1)
		require.NoError(t, err2)
		require.NoError(t, errRelease)
		require.NoError(t, err3)
		assert.True(t, first)
		assert.False(t, second)
		assert.True(t, third)
		assert.Equal(t, time.Hour, rdb.keys["dedup:fulfillment:evt-1"])
	})

	t.Run("redis error", func(t *testing.T) {
		// given
		boom := errors.New("connection refused")
		d := NewDeduper(&fakeCmdable{keys: map[string]time.Duration{}, err: boom}, "fulfillment", time.Hour)

		// when
		ok, err := d.Claim(context.Background(), "evt-1")

		// then
		require.ErrorIs(t, err, boom)
		assert.False(t, ok)
	})
}
