// Package directory owns the coffee chat roster: who can be paired right now,
// how people opt out or snooze, and keeping the roster in sync with Slack.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oggyb/coffee-chat/internal/cache"
	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/repository"
)

// Interactive action ids attached to pairing messages and the snooze menu.
const (
	ActionSnoozeWeek  = "snooze_1week"
	ActionSnoozeMonth = "snooze_1month"
	ActionOptOut      = "opt_out"
)

const (
	SnoozeWeek  = 7 * 24 * time.Hour
	SnoozeMonth = 30 * 24 * time.Hour
)

// ErrUserNotFound is returned for preference changes on an unknown Slack id.
var ErrUserNotFound = repository.ErrUserNotFound

// Store is the persistence the directory needs.
type Store interface {
	ListEligible(ctx context.Context, now time.Time) ([]db.SlackUser, error)
	GetBySlackID(ctx context.Context, slackID string) (*db.SlackUser, error)
	UpdatePreferences(ctx context.Context, slackID string, p repository.Preferences) (*db.SlackUser, error)
	UpsertMember(ctx context.Context, m repository.Member) error
	Count(ctx context.Context, now time.Time) (repository.Counts, error)
}

// StatsCache holds the aggregate counters between roster changes.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	KeyForRosterStats() string
	InvalidateRosterStats(ctx context.Context) error
}

// RosterSource lists workspace members. An empty channelID means the whole workspace.
type RosterSource interface {
	Members(ctx context.Context, channelID string) ([]repository.Member, error)
}

// State is a user's availability as shown back to them.
type State string

const (
	StateActive   State = "active"
	StateOptedOut State = "opted_out"
	StateSnoozed  State = "snoozed"
)

// Status is the result of a status lookup.
type Status struct {
	State  State
	Until  time.Time
	Reason string
}

// Service implements the roster operations on top of Store.
type Service struct {
	store  Store
	cache  StatsCache
	source RosterSource
	log    *slog.Logger
	now    func() time.Time
}

// NewService wires a directory. cache and source may be nil; without a source
// Sync fails, without a cache Stats always hits the store.
func NewService(store Store, statsCache StatsCache, source RosterSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  statsCache,
		source: source,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used by the snooze and status helpers.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListEligible returns every user that can be paired at now. The caller
// samples now once per run.
func (s *Service) ListEligible(ctx context.Context, now time.Time) ([]db.SlackUser, error) {
	return s.store.ListEligible(ctx, now)
}

// SetPreferences applies a partial preference update.
// Unknown users fail with ErrUserNotFound and nothing changes.
func (s *Service) SetPreferences(ctx context.Context, slackID string, p repository.Preferences) (*db.SlackUser, error) {
	u, err := s.store.UpdatePreferences(ctx, slackID, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("preferences updated", "slack_id", slackID, "opted_out", u.OptedOut(), "snoozed_until", u.SnoozeUntilTime())
	return u, nil
}

// OptOut removes the user from future rounds until they opt back in.
func (s *Service) OptOut(ctx context.Context, slackID string) (*db.SlackUser, error) {
	optedOut := true
	return s.SetPreferences(ctx, slackID, repository.Preferences{IsOptedOut: &optedOut})
}

// OptIn clears both the opt-out flag and any snooze.
func (s *Service) OptIn(ctx context.Context, slackID string) (*db.SlackUser, error) {
	optedOut := false
	return s.SetPreferences(ctx, slackID, repository.Preferences{IsOptedOut: &optedOut, ClearSnooze: true})
}

// Snooze pauses pairing for d starting now.
func (s *Service) Snooze(ctx context.Context, slackID string, d time.Duration, reason string) (*db.SlackUser, error) {
	until := s.now().Add(d)
	return s.SetPreferences(ctx, slackID, repository.Preferences{SnoozeUntil: &until, SnoozeReason: &reason})
}

// ApplyAction maps an interactive action id to the matching preference change.
// It reports false for ids it does not know.
func (s *Service) ApplyAction(ctx context.Context, slackID, actionID string) (bool, error) {
	var err error
	switch actionID {
	case ActionOptOut:
		_, err = s.OptOut(ctx, slackID)
	case ActionSnoozeWeek:
		_, err = s.Snooze(ctx, slackID, SnoozeWeek, "Snoozed for 1 week")
	case ActionSnoozeMonth:
		_, err = s.Snooze(ctx, slackID, SnoozeMonth, "Snoozed for 1 month")
	default:
		return false, nil
	}
	return true, err
}

// Status reports whether the user is active, opted out or snoozed.
// Opt-out wins over snooze.
func (s *Service) Status(ctx context.Context, slackID string) (Status, error) {
	u, err := s.store.GetBySlackID(ctx, slackID)
	if err != nil {
		return Status{}, err
	}
	switch {
	case u.OptedOut():
		return Status{State: StateOptedOut}, nil
	case u.SnoozedAt(s.now()):
		st := Status{State: StateSnoozed, Until: u.SnoozeUntilTime()}
		if u.SnoozeReason != nil {
			st.Reason = *u.SnoozeReason
		}
		return st, nil
	}
	return Status{State: StateActive}, nil
}

// Stats returns roster counters, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (repository.Counts, error) {
	var counts repository.Counts
	if s.cache != nil {
		if hit, err := s.cache.GetJSON(ctx, s.cache.KeyForRosterStats(), &counts); err == nil && hit {
			return counts, nil
		} else if err != nil {
			s.log.Warn("stats cache read failed", "err", err)
		}
	}

	counts, err := s.store.Count(ctx, s.now())
	if err != nil {
		return counts, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, s.cache.KeyForRosterStats(), counts, cache.StatsTTL); err != nil {
			s.log.Warn("stats cache write failed", "err", err)
		}
	}
	return counts, nil
}

// Sync refreshes the roster from the directory source and returns how many
// members were seen. Preference fields are never touched.
func (s *Service) Sync(ctx context.Context, channelID string) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("directory sync: no roster source configured")
	}
	members, err := s.source.Members(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("directory sync: %w", err)
	}
	for _, m := range members {
		if err := s.store.UpsertMember(ctx, m); err != nil {
			return 0, fmt.Errorf("directory sync: upsert %s: %w", m.SlackID, err)
		}
	}
	s.invalidate(ctx)
	s.log.Info("roster synced", "channel", channelID, "members", len(members))
	return len(members), nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateRosterStats(ctx); err != nil {
		s.log.Warn("stats cache invalidation failed", "err", err)
	}
}
