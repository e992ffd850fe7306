// Package testutil spins up isolated SQLite and Redis instances for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/coffee-chat/internal/cache"
	"github.com/oggyb/coffee-chat/internal/config"
	"github.com/oggyb/coffee-chat/internal/db"
)

// NewDB opens a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// NewRedis starts a miniredis server and returns a cache wired to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Password = ""
	cfg.Redis.DB = 0
	return cache.NewRedisCache(cfg), mr
}

// AddUser inserts a roster entry and returns it with its id.
func AddUser(t *testing.T, database *gorm.DB, u db.SlackUser) db.SlackUser {
	t.Helper()
	if u.Name == "" {
		u.Name = u.SlackID
	}
	require.NoError(t, database.Create(&u).Error)
	return u
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
