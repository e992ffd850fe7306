package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/repository"
)

var (
	// ErrMissingUser means a participant of a pairing no longer resolves.
	ErrMissingUser = errors.New("pairing participant not found")
	// ErrNotScheduled is returned when delivering a pairing that already left scheduled.
	ErrNotScheduled = repository.ErrNotScheduled
)

// TransportError wraps a delivery failure for one recipient of one pairing.
type TransportError struct {
	PairingID uint64
	SlackID   string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver pairing %d to %s: %v", e.PairingID, e.SlackID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PairingStore persists pairing records. Get returns gorm.ErrRecordNotFound
// for unknown ids.
type PairingStore interface {
	Create(ctx context.Context, p *db.Pairing) error
	Get(ctx context.Context, id uint64) (*db.Pairing, error)
	ListScheduled(ctx context.Context) ([]db.Pairing, error)
	MarkSent(ctx context.Context, id uint64, messageTs string) error
}

// UserStore resolves participants. GetByID returns gorm.ErrRecordNotFound
// for unknown ids.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*db.SlackUser, error)
	TouchLastPaired(ctx context.Context, id uint64, at time.Time) error
}

// Sender delivers a private message and returns its message reference.
type Sender interface {
	SendDirectMessage(ctx context.Context, slackID string, msg Message) (string, error)
}

// DeliveryResult is the per-record line of a batch report.
type DeliveryResult struct {
	PairingID uint64
	Success   bool
	Users     []string
	Err       error
}

// Manager moves pairing records from scheduled to sent.
type Manager struct {
	pairings  PairingStore
	users     UserStore
	sender    Sender
	templates *Templates
	rnd       Random
	now       func() time.Time
	log       *slog.Logger
}

// NewManager wires a lifecycle manager with the embedded templates.
func NewManager(pairings PairingStore, users UserStore, sender Sender, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		pairings:  pairings,
		users:     users,
		sender:    sender,
		templates: DefaultTemplates(),
		rnd:       DefaultRandom(),
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// WithRandom replaces the template picker.
func (m *Manager) WithRandom(r Random) *Manager {
	m.rnd = r
	return m
}

// WithClock replaces the time source used for lastPairedAt.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithTemplates replaces the message catalogue.
func (m *Manager) WithTemplates(t *Templates) *Manager {
	m.templates = t
	return m
}

// CreatePairings stores one scheduled record per pair, one insert at a time.
// A failed insert stops the loop; records already stored stay and are returned
// alongside the error.
func (m *Manager) CreatePairings(ctx context.Context, pairs []Pair, now time.Time) ([]db.Pairing, error) {
	out := make([]db.Pairing, 0, len(pairs))
	for _, p := range pairs {
		rec := db.Pairing{
			User1ID:     p.First.ID,
			User2ID:     p.Second.ID,
			ScheduledAt: now.UnixMilli(),
			Status:      db.StatusScheduled,
		}
		if err := m.pairings.Create(ctx, &rec); err != nil {
			return out, fmt.Errorf("create pairing %d/%d: %w", p.First.ID, p.Second.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeliverPairing introduces both participants of a scheduled record.
//
// Behavior:
//   - Recipients are messaged one after the other, user1 first.
//   - Only when both sends succeed is the record marked sent, with user1's
//     message reference as messageTs.
//   - Any failure leaves the record scheduled. A failure after the first send
//     means user1 has already been messaged.
func (m *Manager) DeliverPairing(ctx context.Context, rec db.Pairing) (DeliveryResult, error) {
	res := DeliveryResult{PairingID: rec.ID}
	if rec.Status != db.StatusScheduled {
		return res, ErrNotScheduled
	}

	u1, err := m.resolve(ctx, rec.ID, rec.User1ID)
	if err != nil {
		return res, err
	}
	u2, err := m.resolve(ctx, rec.ID, rec.User2ID)
	if err != nil {
		return res, err
	}
	res.Users = []string{u1.Name, u2.Name}

	ts, err := m.sender.SendDirectMessage(ctx, u1.SlackID, m.templates.Render(u1.Name, u2.Name, m.rnd))
	if err != nil {
		return res, &TransportError{PairingID: rec.ID, SlackID: u1.SlackID, Err: err}
	}
	if _, err := m.sender.SendDirectMessage(ctx, u2.SlackID, m.templates.Render(u2.Name, u1.Name, m.rnd)); err != nil {
		return res, &TransportError{PairingID: rec.ID, SlackID: u2.SlackID, Err: err}
	}

	if err := m.pairings.MarkSent(ctx, rec.ID, ts); err != nil {
		return res, fmt.Errorf("mark pairing %d sent: %w", rec.ID, err)
	}
	res.Success = true

	deliveredAt := m.now()
	for _, id := range []uint64{u1.ID, u2.ID} {
		if err := m.users.TouchLastPaired(ctx, id, deliveredAt); err != nil {
			m.log.Warn("last paired update failed", "pairing_id", rec.ID, "user_id", id, "err", err)
		}
	}
	return res, nil
}

// DeliverBatch delivers the given pairings, or every scheduled one when ids is nil.
// Ids that do not resolve or are no longer scheduled are skipped. Per-record
// failures land in the report; only a failing fetch returns an error.
func (m *Manager) DeliverBatch(ctx context.Context, ids []uint64) ([]DeliveryResult, error) {
	records, err := m.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]DeliveryResult, 0, len(records))
	for _, rec := range records {
		if rec.Status != db.StatusScheduled {
			m.log.Debug("pairing already delivered, skipping", "pairing_id", rec.ID, "status", rec.Status)
			continue
		}
		res, err := m.DeliverPairing(ctx, rec)
		if err != nil {
			res.Err = err
			m.log.Error("pairing delivery failed", "pairing_id", rec.ID, "err", err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) fetch(ctx context.Context, ids []uint64) ([]db.Pairing, error) {
	if ids == nil {
		recs, err := m.pairings.ListScheduled(ctx)
		if err != nil {
			return nil, fmt.Errorf("list scheduled pairings: %w", err)
		}
		return recs, nil
	}

	recs := make([]db.Pairing, 0, len(ids))
	for _, id := range ids {
		rec, err := m.pairings.Get(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m.log.Warn("pairing not found, skipping", "pairing_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get pairing %d: %w", id, err)
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (m *Manager) resolve(ctx context.Context, pairingID, userID uint64) (*db.SlackUser, error) {
	u, err := m.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: pairing %d user %d", ErrMissingUser, pairingID, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return u, nil
}

// Tally counts successes and failures in a batch report.
func Tally(results []DeliveryResult) (ok, failed int) {
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
