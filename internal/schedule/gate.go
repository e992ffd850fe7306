package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oggyb/coffee-chat/internal/pairing"
)

// Rounds is the pairing work a passing gate hands off to.
type Rounds interface {
	CreateRound(ctx context.Context, lookbackDays int, now time.Time) (pairing.RoundResult, error)
	Deliver(ctx context.Context, ids []uint64) ([]pairing.DeliveryResult, error)
}

// Decision is the gate's verdict. A declined run is a normal outcome, not an error.
type Decision struct {
	Run    bool
	Reason string
}

// Report is what a scheduled run did.
type Report struct {
	Interval        Interval `json:"interval"`
	Skipped         bool     `json:"skipped"`
	Reason          string   `json:"reason,omitempty"`
	PairingCount    int      `json:"pairingCount"`
	UnpairedCount   int      `json:"unpairedCount"`
	MessagesSuccess int      `json:"messagesSuccess"`
	MessagesFailure int      `json:"messagesFailure"`
}

// Gate runs pairing rounds for the configured cadence only.
//
// Only biweekly runs are guarded against overlap (through lastBiweeklyRun);
// two weekly or monthly triggers firing together both create a round.
type Gate struct {
	config ConfigStore
	rounds Rounds
	now    func() time.Time
	log    *slog.Logger
}

func NewGate(config ConfigStore, rounds Rounds, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		config: config,
		rounds: rounds,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// WithClock replaces the time source used by Run.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// ShouldRun decides whether a run for requested may proceed at now.
//
// Behavior:
//   - requested differs from the configured cadence: declined with
//     "configured for <cadence>".
//   - biweekly: declined unless lastBiweeklyRun <= now - 14 days. On a pass
//     lastBiweeklyRun is set to now before returning, so a duplicate trigger
//     in the same window is declined even if the run itself later fails.
//
// The returned Settings are the snapshot the run must use.
func (g *Gate) ShouldRun(ctx context.Context, requested Interval, now time.Time) (Decision, Settings, error) {
	settings, err := LoadSettings(ctx, g.config)
	if err != nil {
		return Decision{}, settings, err
	}

	if requested != settings.Interval {
		return Decision{Reason: fmt.Sprintf("configured for %s", settings.Interval)}, settings, nil
	}

	if requested == Biweekly {
		if settings.LastBiweeklyRun.After(now.Add(-BiweeklyGap)) {
			return Decision{Reason: "too recent for biweekly"}, settings, nil
		}
		if err := g.config.Set(ctx, KeyLastBiweeklyRun, now.UnixMilli(), "Last time bi-weekly pairing ran"); err != nil {
			return Decision{}, settings, fmt.Errorf("record biweekly run: %w", err)
		}
		settings.LastBiweeklyRun = now
	}
	return Decision{Run: true}, settings, nil
}

// Run checks the gate and, on a pass, creates a round and delivers it.
// Any failure after the gate passes is returned as is; nothing is retried here.
func (g *Gate) Run(ctx context.Context, requested Interval) (Report, error) {
	now := g.now()
	report := Report{Interval: requested}
	log := g.log.With("interval", requested)

	decision, settings, err := g.ShouldRun(ctx, requested, now)
	if err != nil {
		log.Error("schedule gate failed", "err", err)
		return report, err
	}
	if !decision.Run {
		log.Info("skipping pairing run", "reason", decision.Reason)
		report.Skipped, report.Reason = true, decision.Reason
		return report, nil
	}

	log.Info("starting pairing run", "exclude_recent_days", settings.ExcludeRecentDays)
	round, err := g.rounds.CreateRound(ctx, settings.ExcludeRecentDays, now)
	if err != nil {
		log.Error("pairing run failed", "stage", "create", "err", err)
		return report, err
	}
	report.PairingCount = round.PairCount
	report.UnpairedCount = len(round.Unpaired)

	// a nil id list would mean "every scheduled pairing"
	ids := round.PairingIDs
	if ids == nil {
		ids = []uint64{}
	}
	results, err := g.rounds.Deliver(ctx, ids)
	if err != nil {
		log.Error("pairing run failed", "stage", "deliver", "err", err)
		return report, err
	}
	report.MessagesSuccess, report.MessagesFailure = pairing.Tally(results)

	log.Info("pairing run finished",
		"pairs", report.PairingCount,
		"unpaired", report.UnpairedCount,
		"messages_ok", report.MessagesSuccess,
		"messages_failed", report.MessagesFailure,
	)
	return report, nil
}
