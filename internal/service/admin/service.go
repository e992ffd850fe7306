// Package admin implements the management API: roster stats, manual pairing
// runs, pairing history and bot configuration.
package admin

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/coffee-chat/internal/app"
	"github.com/oggyb/coffee-chat/internal/db"
	svcErr "github.com/oggyb/coffee-chat/internal/errors"
	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/pairing"
	"github.com/oggyb/coffee-chat/internal/repository"
	"github.com/oggyb/coffee-chat/internal/schedule"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements AdminServer on top of the services in AppContext.
// It adds no pairing logic of its own.
type Service struct {
	appCtx *app.AppContext
	now    func() time.Time
}

// NewAdminService creates the admin service from AppContext.
func NewAdminService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source used for manual runs.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var _ AdminServer = (*Service)(nil)

// GetStats returns the roster breakdown (cached for a few minutes).
func (s *Service) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	c, err := s.appCtx.Directory.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out(map[string]any{
		"total":    c.Total,
		"active":   c.Active,
		"eligible": c.Eligible,
		"optedOut": c.OptedOut,
		"snoozed":  c.Snoozed,
	})
}

// CreatePairings matches everyone eligible now and stores the pairs as
// scheduled. excludeRecentDays defaults to the configured value.
//
// Example:
//
//	client.Call(ctx, "CreatePairings", map[string]any{"excludeRecentDays": 21})
func (s *Service) CreatePairings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log, runID := logger.ForRun(s.appCtx.Logger, "manual")

	days, ok, err := integer(in, "excludeRecentDays")
	if err != nil {
		return nil, err
	}
	if !ok {
		settings, err := schedule.LoadSettings(ctx, s.appCtx.BotConfig)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		days = int64(settings.ExcludeRecentDays)
	}
	if days < 0 {
		return nil, svcErr.InvalidArgument("excludeRecentDays must not be negative")
	}

	res, err := s.appCtx.Pairing.CreateRound(ctx, int(days), s.now())
	if err != nil {
		log.Error("manual pairing round failed", "err", err)
		return nil, svcErr.Map(err)
	}
	log.Info("manual pairing round created", "pairs", res.PairCount, "unpaired", len(res.Unpaired))

	unpaired := make([]any, 0, len(res.Unpaired))
	for _, p := range res.Unpaired {
		unpaired = append(unpaired, p.Name)
	}
	return out(map[string]any{
		"runId":         runID,
		"pairingIds":    ids(res.PairingIDs),
		"pairCount":     res.PairCount,
		"unpairedCount": len(res.Unpaired),
		"unpaired":      unpaired,
	})
}

// SendPairingMessages delivers the listed pairings, or every scheduled one
// when pairingIds is absent. Per-pairing failures are part of the response.
func (s *Service) SendPairingMessages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log, runID := logger.ForRun(s.appCtx.Logger, "manual")

	var targets []uint64
	if v, ok := in.GetFields()["pairingIds"]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, svcErr.InvalidArgument("pairingIds must be a list")
		}
		targets = make([]uint64, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			id, err := toID(item)
			if err != nil {
				return nil, svcErr.InvalidArgument("pairingIds: " + err.Error())
			}
			targets = append(targets, id)
		}
	}

	results, err := s.appCtx.Pairing.Deliver(ctx, targets)
	if err != nil {
		log.Error("pairing delivery failed", "err", err)
		return nil, svcErr.Map(err)
	}
	okCount, failed := pairing.Tally(results)
	log.Info("pairing messages sent", "ok", okCount, "failed", failed)

	rows := make([]any, 0, len(results))
	for _, r := range results {
		row := map[string]any{
			"pairingId": float64(r.PairingID),
			"success":   r.Success,
		}
		if len(r.Users) > 0 {
			users := make([]any, 0, len(r.Users))
			for _, name := range r.Users {
				users = append(users, name)
			}
			row["users"] = users
		}
		if r.Err != nil {
			row["error"] = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return out(map[string]any{
		"runId":   runID,
		"results": rows,
		"success": okCount,
		"failure": failed,
	})
}

// RunScheduledPairing runs the schedule gate for interval as if the trigger fired.
func (s *Service) RunScheduledPairing(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	interval, err := schedule.ParseInterval(in.GetFields()["interval"].GetStringValue())
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	report, err := s.appCtx.Gate.Run(ctx, interval)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out(map[string]any{
		"interval":        string(report.Interval),
		"skipped":         report.Skipped,
		"reason":          report.Reason,
		"pairingCount":    report.PairingCount,
		"unpairedCount":   report.UnpairedCount,
		"messagesSuccess": report.MessagesSuccess,
		"messagesFailure": report.MessagesFailure,
	})
}

// ListPairings pages through pairing history, newest first.
//
// Behavior:
//   - Optional status filter (scheduled, sent or completed).
//   - limit defaults to 20 and is capped at 100.
//   - nextPageToken is set when more rows exist.
func (s *Service) ListPairings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	status := in.GetFields()["status"].GetStringValue()
	switch status {
	case "", db.StatusScheduled, db.StatusSent, db.StatusCompleted:
	default:
		return nil, svcErr.InvalidArgument(fmt.Sprintf("unknown status %q", status))
	}

	limit, ok, err := integer(in, "limit")
	if err != nil {
		return nil, err
	}
	if !ok || limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	var token *string
	if t := in.GetFields()["pageToken"].GetStringValue(); t != "" {
		token = &t
	}

	rows, next, err := s.appCtx.Pairings.List(ctx, status, token, int(limit))
	if err != nil {
		s.appCtx.Logger.Error("ListPairings failed", "err", err)
		return nil, svcErr.Map(err)
	}

	list := make([]any, 0, len(rows))
	for _, p := range rows {
		row := map[string]any{
			"id":          float64(p.ID),
			"user1Id":     float64(p.User1ID),
			"user2Id":     float64(p.User2ID),
			"scheduledAt": float64(p.ScheduledAt),
			"status":      p.Status,
		}
		if p.MessageTs != nil {
			row["messageTs"] = *p.MessageTs
		}
		list = append(list, row)
	}
	resp := map[string]any{"pairings": list}
	if next != nil {
		resp["nextPageToken"] = *next
	}
	return out(resp)
}

// GetConfig returns every bot config entry with its decoded value.
func (s *Service) GetConfig(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	entries, err := s.appCtx.BotConfig.All(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		v, err := e.Decoded()
		if err != nil {
			return nil, svcErr.Map(err)
		}
		row := map[string]any{"key": e.Key, "value": v, "kind": e.Kind}
		if e.Description != nil {
			row["description"] = *e.Description
		}
		list = append(list, row)
	}
	return out(map[string]any{"entries": list})
}

// SetConfig stores one key. Keys read by the scheduler are validated.
func (s *Service) SetConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	key := in.GetFields()["key"].GetStringValue()
	if key == "" {
		return nil, svcErr.InvalidArgument("key is required")
	}
	raw, ok := in.GetFields()["value"]
	if !ok {
		return nil, svcErr.InvalidArgument("value is required")
	}

	var value any
	switch k := raw.GetKind().(type) {
	case *structpb.Value_StringValue:
		value = k.StringValue
	case *structpb.Value_BoolValue:
		value = k.BoolValue
	case *structpb.Value_NumberValue:
		if k.NumberValue == math.Trunc(k.NumberValue) && math.Abs(k.NumberValue) < 1<<53 {
			value = int64(k.NumberValue)
		} else {
			value = k.NumberValue
		}
	default:
		return nil, svcErr.InvalidArgument("value must be a string, number or bool")
	}

	if err := validateConfig(key, value); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	desc := in.GetFields()["description"].GetStringValue()
	if err := s.appCtx.BotConfig.Set(ctx, key, value, desc); err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Info("bot config updated", "key", key, "value", value)
	return out(map[string]any{"key": key, "value": raw.AsInterface()})
}

func validateConfig(key string, value any) error {
	switch key {
	case schedule.KeyPairingInterval:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", key)
		}
		_, err := schedule.ParseInterval(str)
		return err
	case schedule.KeyExcludeRecentDays, schedule.KeyLastBiweeklyRun:
		n, ok := value.(int64)
		if !ok || n < 0 {
			return fmt.Errorf("%s must be a non-negative whole number", key)
		}
	}
	return nil
}

// UpdatePreferences applies a partial preference change for one user.
// snoozeUntil is unix milliseconds.
func (s *Service) UpdatePreferences(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	slackID := fields["slackId"].GetStringValue()
	if slackID == "" {
		return nil, svcErr.InvalidArgument("slackId is required")
	}

	var p repository.Preferences
	if v, ok := fields["isOptedOut"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return nil, svcErr.InvalidArgument("isOptedOut must be a bool")
		}
		p.IsOptedOut = &b.BoolValue
	}
	if ms, ok, err := integer(in, "snoozeUntil"); err != nil {
		return nil, err
	} else if ok {
		until := time.UnixMilli(ms).UTC()
		p.SnoozeUntil = &until
	}
	if v, ok := fields["snoozeReason"]; ok {
		reason := v.GetStringValue()
		p.SnoozeReason = &reason
	}
	p.ClearSnooze = fields["clearSnooze"].GetBoolValue()

	u, err := s.appCtx.Directory.SetPreferences(ctx, slackID, p)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out(userView(u))
}

// SyncUsers refreshes the roster from Slack, optionally from one channel.
func (s *Service) SyncUsers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.appCtx.Directory.Sync(ctx, in.GetFields()["channelId"].GetStringValue())
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return out(map[string]any{"count": n})
}

func userView(u *db.SlackUser) map[string]any {
	v := map[string]any{
		"slackId":    u.SlackID,
		"name":       u.Name,
		"isActive":   u.IsActive,
		"isOptedOut": u.OptedOut(),
	}
	if u.SnoozeUntil != nil {
		v["snoozeUntil"] = float64(*u.SnoozeUntil)
	}
	if u.SnoozeReason != nil {
		v["snoozeReason"] = *u.SnoozeReason
	}
	if u.LastPairedAt != nil {
		v["lastPairedAt"] = float64(*u.LastPairedAt)
	}
	return v
}

// out encodes a response. Lists must be []any, structpb rejects typed slices.
func out(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, svcErr.Map(fmt.Errorf("encode response: %w", err))
	}
	return st, nil
}

func ids(in []uint64) []any {
	out := make([]any, 0, len(in))
	for _, id := range in {
		out = append(out, float64(id))
	}
	return out
}

// integer reads an optional whole number field.
func integer(in *structpb.Struct, key string) (int64, bool, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false, svcErr.InvalidArgument(key + " must be a whole number")
	}
	return int64(n.NumberValue), true, nil
}

func toID(v *structpb.Value) (uint64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 1 || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%v is not a valid id", v.AsInterface())
	}
	return uint64(n.NumberValue), nil
}
