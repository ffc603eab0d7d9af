package config

import (
	"fmt"
	"strings"
)

// TokenStoreBackend selects where the bearer token is persisted.
type TokenStoreBackend string

const (
	TokenStoreSQLite TokenStoreBackend = "sqlite"
	TokenStoreRedis  TokenStoreBackend = "redis"
	TokenStoreMemory TokenStoreBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenStoreBackend.
func (b *TokenStoreBackend) UnmarshalText(text []byte) error {
	v := TokenStoreBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case TokenStoreSQLite, TokenStoreRedis, TokenStoreMemory:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid TokenStoreBackend: %q (valid options: sqlite, redis, memory)", v)
	}
}

// TokenStoreConfig controls token persistence.
type TokenStoreConfig struct {
	Backend TokenStoreBackend `env:"BACKEND" envDefault:"sqlite"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"SQLITE_PATH" envDefault:".pastibot/session.db"`

	// Key is the storage key (sqlite row or redis key).
	Key string `env:"KEY" envDefault:"authToken"`
}

// Sanitize applies defaults for empty values.
func (c *TokenStoreConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = TokenStoreSQLite
	}
	if c.SQLitePath = strings.TrimSpace(c.SQLitePath); c.SQLitePath == "" {
		c.SQLitePath = ".pastibot/session.db"
	}
	if c.Key = strings.TrimSpace(c.Key); c.Key == "" {
		c.Key = "authToken"
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}
