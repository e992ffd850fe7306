package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/coffee-chat/internal/db"
)

// BotConfigRepository is the key/value store behind the bot settings.
type BotConfigRepository struct {
	db *gorm.DB
}

// NewBotConfigRepository creates a new repository bound to the given DB connection.
func NewBotConfigRepository(database *gorm.DB) *BotConfigRepository {
	return &BotConfigRepository{db: database}
}

// Get returns the entry for key, or (nil, nil) when the key is not set.
// The struct condition lets gorm quote the reserved "key" column per dialect.
func (r *BotConfigRepository) Get(ctx context.Context, key string) (*db.BotConfig, error) {
	var c db.BotConfig
	err := r.db.WithContext(ctx).Where(&db.BotConfig{Key: key}).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Set inserts or replaces the value (and description) stored under key.
// value must be a string, bool or number.
func (r *BotConfigRepository) Set(ctx context.Context, key string, value any, description string) error {
	text, kind, err := db.EncodeConfigValue(value)
	if err != nil {
		return err
	}
	entry := db.BotConfig{Key: key, Value: text, Kind: kind}
	if description != "" {
		entry.Description = &description
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "kind", "description", "updated_at"}),
		}).
		Create(&entry).Error
}

// All returns every entry ordered by key.
func (r *BotConfigRepository) All(ctx context.Context) ([]db.BotConfig, error) {
	var out []db.BotConfig
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&out).Error
	return out, err
}
