package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/coffee-chat/internal/cache"
	"github.com/oggyb/coffee-chat/internal/directory"
	"github.com/oggyb/coffee-chat/internal/pairing"
	"github.com/oggyb/coffee-chat/internal/repository"
	"github.com/oggyb/coffee-chat/internal/schedule"
)

// AppContext holds shared dependencies (DB, Redis, Logger) and the services
// built on them.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	Users     *repository.UserRepository
	Pairings  *repository.PairingRepository
	BotConfig *repository.BotConfigRepository

	Directory *directory.Service
	Pairing   *pairing.Service
	Gate      *schedule.Gate
}

// New wires repositories and services. rdb may be nil, in which case stats
// are always computed from the database.
func New(
	db *gorm.DB,
	rdb *cache.RedisCache,
	sender pairing.Sender,
	roster directory.RosterSource,
	logger *slog.Logger,
) *AppContext {
	a := &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Users:      repository.NewUserRepository(db),
		Pairings:   repository.NewPairingRepository(db),
		BotConfig:  repository.NewBotConfigRepository(db),
	}

	var stats directory.StatsCache
	if rdb != nil {
		stats = rdb
	}
	a.Directory = directory.NewService(a.Users, stats, roster, logger.With("component", "directory"))

	manager := pairing.NewManager(a.Pairings, a.Users, sender, logger.With("component", "lifecycle"))
	a.Pairing = pairing.NewService(a.Directory, a.Pairings, manager, logger.With("component", "pairing"))
	a.Gate = schedule.NewGate(a.BotConfig, a.Pairing, logger.With("component", "schedule"))
	return a
}
