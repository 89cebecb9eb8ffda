package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/config"
)

// NewClient builds a Redis client from config.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
