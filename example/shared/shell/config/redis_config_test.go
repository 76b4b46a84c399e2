package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadRedisConfig_Defaults(t *testing.T) {
	cfg, err := LoadRedisConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Empty(t, cfg.KeyPrefix)
}

func Test_LoadRedisConfig_FromEnvironment(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_KEY_PREFIX", "app1:")

	cfg, err := LoadRedisConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, "app1:", cfg.KeyPrefix)
}

func Test_NewRedisClient(t *testing.T) {
	client := NewRedisClient(RedisConfig{Addr: "localhost:6379"})
	require.NotNil(t, client)

	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "localhost:6379", client.Options().Addr)
}
