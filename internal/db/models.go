package db

import (
	"fmt"
	"strconv"
	"time"
)

// Pairing status values. Completed is a valid terminal state in the schema,
// but nothing transitions a record into it yet.
const (
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusCompleted = "completed"
)

// SlackUser is one person on the coffee chat roster.
//
// Timestamps that drive eligibility (SnoozeUntil, LastPairedAt) are stored as
// unix milliseconds so range checks behave the same on every dialect.
//
// Indexes:
//   - uniq slack_id: lookups from Slack interactions and directory sync.
//   - idx_slack_users_active(is_active): narrows the eligibility scan.
type SlackUser struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`
	SlackID      string  `gorm:"uniqueIndex;size:32;not null"`
	Name         string  `gorm:"size:128;not null"`
	Email        *string `gorm:"size:128"`
	IsActive     bool    `gorm:"not null;index:idx_slack_users_active"`
	IsOptedOut   *bool
	SnoozeUntil  *int64
	SnoozeReason *string `gorm:"size:255"`
	LastPairedAt *int64
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (SlackUser) TableName() string { return "slack_users" }

// OptedOut reports the opt-out flag; a missing value means opted in.
func (u *SlackUser) OptedOut() bool {
	return u.IsOptedOut != nil && *u.IsOptedOut
}

// SnoozedAt reports whether the user is still snoozed at now.
// A snooze ending exactly at now is already over.
func (u *SlackUser) SnoozedAt(now time.Time) bool {
	return u.SnoozeUntil != nil && now.UnixMilli() < *u.SnoozeUntil
}

// EligibleAt is the single eligibility rule used everywhere:
// active, not opted out and not snoozed at now.
func (u *SlackUser) EligibleAt(now time.Time) bool {
	return u.IsActive && !u.OptedOut() && !u.SnoozedAt(now)
}

// SnoozeUntilTime returns the snooze end, or the zero time when unset.
func (u *SlackUser) SnoozeUntilTime() time.Time {
	if u.SnoozeUntil == nil {
		return time.Time{}
	}
	return time.UnixMilli(*u.SnoozeUntil).UTC()
}

// Pairing is one scheduled coffee chat between two users.
//
// The (user, scheduled_at) indexes serve history lookups for either side of
// the pair; status is indexed for the "deliver everything scheduled" pass.
type Pairing struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID     uint64    `gorm:"not null;index:idx_pairings_user1_scheduled,priority:1"`
	User2ID     uint64    `gorm:"not null;index:idx_pairings_user2_scheduled,priority:1"`
	ScheduledAt int64     `gorm:"not null;index:idx_pairings_user1_scheduled,priority:2;index:idx_pairings_user2_scheduled,priority:2"`
	Status      string    `gorm:"size:16;not null;index"`
	MessageTs   *string   `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Pairing) TableName() string { return "pairings" }

// ScheduledTime returns ScheduledAt as a UTC time.
func (p *Pairing) ScheduledTime() time.Time {
	return time.UnixMilli(p.ScheduledAt).UTC()
}

// PartnerOf returns the other participant, or 0 when userID is not part of the pair.
func (p *Pairing) PartnerOf(userID uint64) uint64 {
	switch userID {
	case p.User1ID:
		return p.User2ID
	case p.User2ID:
		return p.User1ID
	}
	return 0
}

// Value kinds stored in BotConfig.Kind.
const (
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
)

// BotConfig is a typed key/value entry. Values are kept as text and decoded
// according to Kind.
type BotConfig struct {
	Key         string    `gorm:"primaryKey;size:64"`
	Value       string    `gorm:"size:255;not null"`
	Kind        string    `gorm:"size:8;not null"`
	Description *string   `gorm:"size:255"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (BotConfig) TableName() string { return "bot_config" }

// Decoded returns the value as string, float64 or bool depending on Kind.
func (c *BotConfig) Decoded() (any, error) {
	switch c.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("config %q: invalid number %q: %w", c.Key, c.Value, err)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return nil, fmt.Errorf("config %q: invalid bool %q: %w", c.Key, c.Value, err)
		}
		return b, nil
	default:
		return c.Value, nil
	}
}

// EncodeConfigValue turns a string, number or bool into its stored text and kind.
func EncodeConfigValue(v any) (value, kind string, err error) {
	switch x := v.(type) {
	case string:
		return x, KindString, nil
	case bool:
		return strconv.FormatBool(x), KindBool, nil
	case int:
		return strconv.Itoa(x), KindNumber, nil
	case int64:
		return strconv.FormatInt(x, 10), KindNumber, nil
	case uint64:
		return strconv.FormatUint(x, 10), KindNumber, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), KindNumber, nil
	}
	return "", "", fmt.Errorf("unsupported config value type %T", v)
}
