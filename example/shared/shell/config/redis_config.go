// Package config loads engine configuration for the example from the
// environment.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the Redis engine.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX"`
}

// LoadRedisConfig parses the Redis settings from the environment.
func LoadRedisConfig() (RedisConfig, error) {
	cfg := RedisConfig{}
	if err := env.Parse(&cfg); err != nil {
		return RedisConfig{}, err
	}

	return cfg, nil
}

// NewRedisClient creates a go-redis client from the config.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
