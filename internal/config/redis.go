package config

// Redis backs the login rate limiter and the business-hours response cache.
// Both degrade to pass-through when the client is nil, so a missing Redis
// never takes the API down.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment variables:
//   REDIS_ADDR     – host:port (default localhost:6379)
//   REDIS_PASSWORD – optional password
//   REDIS_DB       – database number (default 0)
//   REDIS_TLS      – enable TLS
//   REDIS_ENABLED  – set to false to skip Redis entirely
// It returns nil when Redis is disabled or does not answer a ping.
func NewRedisClient() *redis.Client {
	if !envBool("REDIS_ENABLED", true) {
		return nil
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      envStr("REDIS_ADDR", "localhost:6379"),
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
