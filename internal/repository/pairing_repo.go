package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/utils/pagination"
)

// ErrNotScheduled is returned when a pairing has already left scheduled.
var ErrNotScheduled = errors.New("pairing is not scheduled")

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// PairingRepository stores pairing records and answers history queries.
// Records are append-only except for the status / message_ts transition.
type PairingRepository struct {
	db *gorm.DB
}

// NewPairingRepository creates a new repository bound to the given DB connection.
func NewPairingRepository(database *gorm.DB) *PairingRepository {
	return &PairingRepository{db: database}
}

// Create inserts one pairing record and fills in its id.
func (r *PairingRepository) Create(ctx context.Context, p *db.Pairing) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Get returns a pairing by id; gorm.ErrRecordNotFound when absent.
func (r *PairingRepository) Get(ctx context.Context, id uint64) (*db.Pairing, error) {
	var p db.Pairing
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListScheduled returns every pairing still waiting for delivery, oldest first.
func (r *PairingRepository) ListScheduled(ctx context.Context) ([]db.Pairing, error) {
	var out []db.Pairing
	err := r.db.WithContext(ctx).
		Where("status = ?", db.StatusScheduled).
		Order("scheduled_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkSent moves a scheduled pairing to sent and stores the delivery reference.
// Only rows still in scheduled are touched; anything else is ErrNotScheduled.
func (r *PairingRepository) MarkSent(ctx context.Context, id uint64, messageTs string) error {
	updates := map[string]any{"status": db.StatusSent}
	if messageTs != "" {
		updates["message_ts"] = messageTs
	}
	res := r.db.WithContext(ctx).
		Model(&db.Pairing{}).
		Where("id = ? AND status = ?", id, db.StatusScheduled).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotScheduled
	}
	return nil
}

// RecentPartners returns the ids of everyone userID was paired with since
// now - lookbackDays. Both sides of a pairing count.
//
// Example:
//
//	repo.RecentPartners(ctx, 7, 14, time.Now()) // partners of user 7 in the last two weeks
func (r *PairingRepository) RecentPartners(ctx context.Context, userID uint64, lookbackDays int, now time.Time) (map[uint64]struct{}, error) {
	cutoff := now.UnixMilli() - int64(lookbackDays)*dayMillis

	var rows []db.Pairing
	err := r.db.WithContext(ctx).
		Select("user1_id", "user2_id").
		Where("(user1_id = ? OR user2_id = ?) AND scheduled_at >= ?", userID, userID, cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	partners := make(map[uint64]struct{}, len(rows))
	for _, p := range rows {
		if other := p.PartnerOf(userID); other != 0 {
			partners[other] = struct{}{}
		}
	}
	return partners, nil
}

// List returns pairings newest first with cursor pagination.
//
// Behavior:
//   - Optional status filter ("" means all).
//   - Ordered by scheduled_at DESC, id DESC.
//   - Returns a next page token when more rows exist.
func (r *PairingRepository) List(
	ctx context.Context,
	status string,
	paginationToken *string,
	limit int,
) ([]db.Pairing, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Pairing{}).
		Order("scheduled_at DESC, id DESC").
		Limit(limit + 1)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if !cursor.First() {
		query = query.Where(
			"(scheduled_at < ? OR (scheduled_at = ? AND id < ?))",
			cursor.ScheduledUnix, cursor.ScheduledUnix, cursor.ID,
		)
	}

	var out []db.Pairing
	if err := query.Find(&out).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(out) > limit {
		last := out[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:            last.ID,
			ScheduledUnix: last.ScheduledAt,
		})
		nextToken = &token
		out = out[:limit]
	}
	return out, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
