package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/coffee-chat/internal/db"
)

// ErrUserNotFound is returned when a Slack id does not resolve to a roster entry.
var ErrUserNotFound = errors.New("user not found")

// UserRepository provides data access for the coffee chat roster.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Preferences is a partial update of a user's availability.
// Nil fields are left untouched. ClearSnooze removes both snooze fields and
// takes precedence over SnoozeUntil/SnoozeReason.
type Preferences struct {
	IsOptedOut   *bool
	SnoozeUntil  *time.Time
	SnoozeReason *string
	ClearSnooze  bool
}

// Member is a roster entry as reported by the directory source.
type Member struct {
	SlackID string
	Name    string
	Email   string
}

// ListEligible returns every user that can be paired at now.
//
// Behavior:
//   - is_active = true
//   - is_opted_out is NULL or false
//   - snooze_until is NULL or <= now (a snooze ending exactly now is over)
//   - Ordered by id for stable input to the matcher's shuffle.
func (r *UserRepository) ListEligible(ctx context.Context, now time.Time) ([]db.SlackUser, error) {
	var users []db.SlackUser
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("is_opted_out IS NULL OR is_opted_out = ?", false).
		Where("snooze_until IS NULL OR snooze_until <= ?", now.UnixMilli()).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns a user by primary key; gorm.ErrRecordNotFound when absent.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.SlackUser, error) {
	var u db.SlackUser
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetBySlackID returns a user by external Slack id, or ErrUserNotFound.
func (r *UserRepository) GetBySlackID(ctx context.Context, slackID string) (*db.SlackUser, error) {
	var u db.SlackUser
	err := r.db.WithContext(ctx).Where("slack_id = ?", slackID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePreferences applies a partial preference update.
//
// Behavior:
//   - Unknown slackID → ErrUserNotFound, nothing is written.
//   - Only provided fields are changed; an empty update is a no-op.
//
// Example:
//
//	repo.UpdatePreferences(ctx, "U123", Preferences{ClearSnooze: true})
func (r *UserRepository) UpdatePreferences(ctx context.Context, slackID string, p Preferences) (*db.SlackUser, error) {
	u, err := r.GetBySlackID(ctx, slackID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if p.IsOptedOut != nil {
		updates["is_opted_out"] = *p.IsOptedOut
	}
	switch {
	case p.ClearSnooze:
		updates["snooze_until"] = nil
		updates["snooze_reason"] = nil
	default:
		if p.SnoozeUntil != nil {
			updates["snooze_until"] = p.SnoozeUntil.UnixMilli()
		}
		if p.SnoozeReason != nil {
			updates["snooze_reason"] = *p.SnoozeReason
		}
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := r.db.WithContext(ctx).Model(&db.SlackUser{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, u.ID)
}

// UpsertMember inserts or refreshes a roster entry from the directory source.
// Only identity fields and is_active are written; preferences survive a sync.
func (r *UserRepository) UpsertMember(ctx context.Context, m Member) error {
	u := db.SlackUser{
		SlackID:  m.SlackID,
		Name:     m.Name,
		IsActive: true,
	}
	if m.Email != "" {
		email := m.Email
		u.Email = &email
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slack_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "is_active", "updated_at"}),
		}).
		Create(&u).Error
}

// TouchLastPaired stamps last_paired_at for one user.
func (r *UserRepository) TouchLastPaired(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.SlackUser{}).
		Where("id = ?", id).
		Update("last_paired_at", at.UnixMilli()).Error
}

// Counts is the aggregate roster breakdown shown on the management surface.
type Counts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Eligible int64 `json:"eligible"`
	OptedOut int64 `json:"optedOut"`
	Snoozed  int64 `json:"snoozed"`
}

// Count computes roster counts at now with the same rules as ListEligible.
func (r *UserRepository) Count(ctx context.Context, now time.Time) (Counts, error) {
	var c Counts
	nowMs := now.UnixMilli()
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&db.SlackUser{}) }

	if err := base().Count(&c.Total).Error; err != nil {
		return c, err
	}
	if err := base().Where("is_active = ?", true).Count(&c.Active).Error; err != nil {
		return c, err
	}
	if err := base().Where("is_opted_out = ?", true).Count(&c.OptedOut).Error; err != nil {
		return c, err
	}
	if err := base().Where("snooze_until > ?", nowMs).Count(&c.Snoozed).Error; err != nil {
		return c, err
	}
	err := base().
		Where("is_active = ?", true).
		Where("is_opted_out IS NULL OR is_opted_out = ?", false).
		Where("snooze_until IS NULL OR snooze_until <= ?", nowMs).
		Count(&c.Eligible).Error
	return c, err
}
