package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

var (
	client *redislib.Client
	once   sync.Once
)

const (
	pingAttempts = 5
	pingTimeout  = 3 * time.Second
)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (cfg Config) Options() *redislib.Options {
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	return &redislib.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Init connects the shared client used for the resolve cache. The server
// is pinged with exponential backoff before the client is handed out.
func Init(cfg Config) (*redislib.Client, error) {
	var initErr error

	once.Do(func() {
		opts := cfg.Options()
		client = redislib.NewClient(opts)

		backoff := 200 * time.Millisecond
		for attempt := 1; attempt <= pingAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := client.Ping(ctx).Err()
			cancel()

			if err == nil {
				initErr = nil
				slog.Info("redis connection established", "addr", opts.Addr, "db", opts.DB)
				return
			}

			initErr = err
			slog.Warn("redis ping failed", "addr", opts.Addr, "attempt", attempt, "error", err)
			if attempt < pingAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}

		_ = client.Close()
		client = nil
	})

	if client == nil && initErr == nil {
		return nil, errors.New("redis client not initialized")
	}

	return client, initErr
}

func Client() *redislib.Client {
	return client
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
