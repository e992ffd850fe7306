// Package schedule decides whether a triggered pairing run should go ahead
// for the configured cadence, and runs it when it should.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/coffee-chat/internal/db"
)

// Interval is a pairing cadence.
type Interval string

const (
	Weekly   Interval = "weekly"
	Biweekly Interval = "biweekly"
	Monthly  Interval = "monthly"
)

// Intervals lists every cadence a trigger can be registered for.
var Intervals = []Interval{Weekly, Biweekly, Monthly}

// ParseInterval validates a cadence label.
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(s); i {
	case Weekly, Biweekly, Monthly:
		return i, nil
	}
	return "", fmt.Errorf("unknown pairing interval %q", s)
}

// Bot config keys read by the gate.
const (
	KeyPairingInterval   = "pairingInterval"
	KeyExcludeRecentDays = "excludeRecentDays"
	KeyLastBiweeklyRun   = "lastBiweeklyRun"
)

const (
	DefaultInterval          = Weekly
	DefaultExcludeRecentDays = 14
	// BiweeklyGap is the minimum time between two biweekly runs.
	BiweeklyGap = 14 * 24 * time.Hour
)

// ConfigStore is the bot config table. Get returns (nil, nil) for unset keys.
type ConfigStore interface {
	Get(ctx context.Context, key string) (*db.BotConfig, error)
	Set(ctx context.Context, key string, value any, description string) error
}

// Settings is the bot configuration snapshot for one run.
type Settings struct {
	Interval          Interval
	ExcludeRecentDays int
	LastBiweeklyRun   time.Time
}

// LoadSettings reads every key once, falling back to defaults for unset ones.
func LoadSettings(ctx context.Context, store ConfigStore) (Settings, error) {
	s := Settings{
		Interval:          DefaultInterval,
		ExcludeRecentDays: DefaultExcludeRecentDays,
		LastBiweeklyRun:   time.UnixMilli(0).UTC(),
	}

	if v, err := lookup(ctx, store, KeyPairingInterval); err != nil {
		return s, err
	} else if v != nil {
		str, ok := v.(string)
		if !ok {
			return s, fmt.Errorf("config %s: want string, got %T", KeyPairingInterval, v)
		}
		if s.Interval, err = ParseInterval(str); err != nil {
			return s, err
		}
	}

	if n, err := lookupNumber(ctx, store, KeyExcludeRecentDays); err != nil {
		return s, err
	} else if n != nil {
		if *n < 0 {
			return s, fmt.Errorf("config %s: must not be negative", KeyExcludeRecentDays)
		}
		s.ExcludeRecentDays = int(*n)
	}

	if n, err := lookupNumber(ctx, store, KeyLastBiweeklyRun); err != nil {
		return s, err
	} else if n != nil {
		s.LastBiweeklyRun = time.UnixMilli(int64(*n)).UTC()
	}
	return s, nil
}

func lookup(ctx context.Context, store ConfigStore, key string) (any, error) {
	entry, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", key, err)
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Decoded()
}

func lookupNumber(ctx context.Context, store ConfigStore, key string) (*float64, error) {
	v, err := lookup(ctx, store, key)
	if err != nil || v == nil {
		return nil, err
	}
	n, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("config %s: want number, got %T", key, v)
	}
	return &n, nil
}
