package config

// Redis backs the distributed rate limiter and the public catalog cache.
// Connection parameters come from the environment; when the server cannot
// be reached at startup the constructor returns nil and callers disable
// the features that depend on it instead of failing the whole process.

import (
    "context"
    "crypto/tls"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig carries connection parameters for the Redis server.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    UseTLS   bool
}

// LoadRedisConfig reads Redis settings from the environment.  REDIS_ADDR is
// the host:port shorthand; REDIS_HOST/REDIS_PORT take precedence when both
// are present.  REDIS_DB defaults to 0 and REDIS_TLS enables TLS when set
// to a truthy value.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        UseTLS:   envBool("REDIS_TLS", false),
    }
}

// NewRedisClient dials Redis with the given settings and verifies the
// connection with a short ping.  A nil client is returned on failure so the
// caller can run without rate limiting and caching.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    var tlsConf *tls.Config
    if cfg.UseTLS {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
