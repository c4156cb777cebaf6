package repository

import (
	"context"
	"testing"
	"time"

	"ohbang/internal/config"
	"ohbang/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPreferenceRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisPreferenceRepository(client, 0)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "theme", "dark"))

		got, err := repo.Get(ctx, "theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", got)

		raw, err := s.Get("prefs:theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", raw)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrPreferenceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "last_sync_at", "2024-01-01T00:00:00Z"))
		require.NoError(t, repo.Delete(ctx, "last_sync_at"))

		_, err := repo.Get(ctx, "last_sync_at")
		assert.ErrorIs(t, err, domain.ErrPreferenceNotFound)
	})

	t.Run("TTL", func(t *testing.T) {
		short := NewRedisPreferenceRepository(client, time.Minute)
		require.NoError(t, short.Set(ctx, "temp", "1"))
		s.FastForward(2 * time.Minute)

		_, err := short.Get(ctx, "temp")
		assert.ErrorIs(t, err, domain.ErrPreferenceNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}

func TestRedisPreferenceRepository_NilClient(t *testing.T) {
	repo := NewRedisPreferenceRepository(nil, 0)
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, repo.Set(ctx, "k", "v"))
	assert.Error(t, repo.Delete(ctx, "k"))
	assert.NoError(t, Close(nil))
}

func TestRedisPreferenceRepository_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	repo := NewRedisPreferenceRepository(client, 0)
	_, err = repo.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPreferenceNotFound)
	assert.Error(t, Ping(context.Background(), client))
}
