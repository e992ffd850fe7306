package pairing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oggyb/coffee-chat/internal/db"
)

// Directory supplies the eligible roster for a run.
type Directory interface {
	ListEligible(ctx context.Context, now time.Time) ([]db.SlackUser, error)
}

// History answers recent-partner lookups.
type History interface {
	RecentPartners(ctx context.Context, userID uint64, lookbackDays int, now time.Time) (map[uint64]struct{}, error)
}

// RoundResult summarises one matching round.
type RoundResult struct {
	PairingIDs []uint64
	PairCount  int
	Unpaired   []Participant
}

// Service runs whole rounds: match, persist, deliver.
type Service struct {
	dir     Directory
	history History
	manager *Manager
	rnd     Random
	log     *slog.Logger
}

func NewService(dir Directory, history History, manager *Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dir: dir, history: history, manager: manager, rnd: DefaultRandom(), log: log}
}

// WithRandom replaces the shuffle source.
func (s *Service) WithRandom(r Random) *Service {
	s.rnd = r
	return s
}

// CreateRound matches everyone eligible at now and stores the pairs as scheduled.
// Fewer than two eligible users fails with ErrInsufficientUsers before any write.
func (s *Service) CreateRound(ctx context.Context, lookbackDays int, now time.Time) (RoundResult, error) {
	users, err := s.dir.ListEligible(ctx, now)
	if err != nil {
		return RoundResult{}, fmt.Errorf("list eligible users: %w", err)
	}
	if len(users) < 2 {
		return RoundResult{}, ErrInsufficientUsers
	}

	participants := make([]Participant, 0, len(users))
	recent := make(RecentPartners, len(users))
	for _, u := range users {
		participants = append(participants, Participant{ID: u.ID, SlackID: u.SlackID, Name: u.Name})
		partners, err := s.history.RecentPartners(ctx, u.ID, lookbackDays, now)
		if err != nil {
			return RoundResult{}, fmt.Errorf("recent partners of %d: %w", u.ID, err)
		}
		recent[u.ID] = partners
	}

	matched, err := Match(participants, recent, s.rnd)
	if err != nil {
		return RoundResult{}, err
	}

	res := RoundResult{PairCount: len(matched.Pairs), Unpaired: matched.Leftover}
	records, err := s.manager.CreatePairings(ctx, matched.Pairs, now)
	for _, r := range records {
		res.PairingIDs = append(res.PairingIDs, r.ID)
	}
	if err != nil {
		return res, err
	}

	if len(matched.Leftover) > 0 {
		names := make([]string, 0, len(matched.Leftover))
		for _, p := range matched.Leftover {
			names = append(names, p.Name)
		}
		s.log.Info("users left unpaired this round", "count", len(names), "names", names)
	}
	s.log.Info("pairing round created", "pairs", res.PairCount, "eligible", len(participants), "lookback_days", lookbackDays)
	return res, nil
}

// Deliver sends introductions for ids, or for every scheduled pairing when ids is nil.
func (s *Service) Deliver(ctx context.Context, ids []uint64) ([]DeliveryResult, error) {
	return s.manager.DeliverBatch(ctx, ids)
}
