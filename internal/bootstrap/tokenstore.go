package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pastibot/companion/config"
	"github.com/pastibot/companion/internal/adapters/memory"
	redisadapter "github.com/pastibot/companion/internal/adapters/redis"
	"github.com/pastibot/companion/internal/adapters/sqlite"
	"github.com/pastibot/companion/internal/ports"
)

// TokenStoreConfig contains configuration for token persistence.
type TokenStoreConfig struct {
	Store  config.TokenStoreConfig
	Redis  config.RedisConfig
	Logger *slog.Logger
}

// BuildTokenStore opens the configured token store. The returned close func
// releases the underlying connection and is never nil.
func BuildTokenStore(ctx context.Context, cfg TokenStoreConfig) (ports.TokenStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.TokenStoreMemory:
		return memory.NewTokenStore(), noop, nil

	case config.TokenStoreRedis:
		client, err := ConnectRedis(ctx, RedisOptions{Config: cfg.Redis, Logger: cfg.Logger})
		if err != nil {
			return nil, noop, fmt.Errorf("connect redis: %w", err)
		}
		key := redisadapter.DefaultKey
		if cfg.Store.Key != "" && cfg.Store.Key != "authToken" {
			key = cfg.Store.Key
		}
		return redisadapter.NewTokenStoreWithKey(client, key), client.Close, nil

	case config.TokenStoreSQLite, "":
		store, err := sqlite.Open(sqlite.Config{Path: cfg.Store.SQLitePath, Key: cfg.Store.Key})
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite token store: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown token store backend %q", cfg.Store.Backend)
	}
}
