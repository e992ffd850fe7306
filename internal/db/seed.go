package db

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the roster and populates demo users, config and history.
//
// Behavior:
//  1. Clears existing data in `pairings`, `slack_users` and `bot_config`.
//  2. Creates 12 users: 9 eligible, 1 inactive, 1 opted out, 1 snoozed for a week.
//  3. Stores the default cadence config (weekly, 14 day lookback).
//  4. Adds a few sent pairings from the last three weeks so history matters.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(db *gorm.DB) error {
	now := time.Now().UTC()

	if err := clearAll(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	names := []string{
		"Ada", "Grace", "Linus", "Barbara", "Ken", "Margaret",
		"Dennis", "Frances", "Edsger", "Radia", "Alan", "Katherine",
	}
	users := make([]SlackUser, 0, len(names))
	for i, name := range names {
		email := fmt.Sprintf("%s@example.com", name)
		u := SlackUser{
			SlackID:  fmt.Sprintf("U%08d", i+1),
			Name:     name,
			Email:    &email,
			IsActive: true,
		}
		switch i {
		case 9:
			u.IsActive = false
		case 10:
			optedOut := true
			u.IsOptedOut = &optedOut
		case 11:
			until := now.Add(7 * 24 * time.Hour).UnixMilli()
			reason := "Snoozed for 1 week"
			u.SnoozeUntil = &until
			u.SnoozeReason = &reason
		}
		users = append(users, u)
	}
	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	log.Printf("Seeded %d users.", len(users))

	defaults := []BotConfig{
		{Key: "pairingInterval", Value: "weekly", Kind: KindString, Description: strPtr("Pairing cadence")},
		{Key: "excludeRecentDays", Value: "14", Kind: KindNumber, Description: strPtr("Days before a pair may repeat")},
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&defaults).Error; err != nil {
		return fmt.Errorf("failed to seed config: %w", err)
	}

	// A handful of past rounds among the eligible users.
	r := rand.New(rand.NewPCG(uint64(now.UnixNano()), 7))
	for week := 1; week <= 3; week++ {
		at := now.Add(-time.Duration(week) * 7 * 24 * time.Hour).UnixMilli()
		perm := r.Perm(9)
		for k := 0; k+1 < len(perm); k += 2 {
			ts := fmt.Sprintf("%d.%06d", at/1000, k)
			p := Pairing{
				User1ID:     users[perm[k]].ID,
				User2ID:     users[perm[k+1]].ID,
				ScheduledAt: at,
				Status:      StatusSent,
				MessageTs:   &ts,
			}
			if err := db.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed pairing: %w", err)
			}
		}
	}
	log.Println("Seeded pairing history.")

	return nil
}

// SeedMinimalTestData inserts a deterministic four-user roster with one past
// pairing (user 1 with user 2, five days ago).
func SeedMinimalTestData(db *gorm.DB, now time.Time) error {
	if err := clearAll(db); err != nil {
		return err
	}

	users := []SlackUser{
		{ID: 1, SlackID: "U1", Name: "user1", IsActive: true},
		{ID: 2, SlackID: "U2", Name: "user2", IsActive: true},
		{ID: 3, SlackID: "U3", Name: "user3", IsActive: true},
		{ID: 4, SlackID: "U4", Name: "user4", IsActive: true},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	past := Pairing{
		User1ID:     1,
		User2ID:     2,
		ScheduledAt: now.Add(-5 * 24 * time.Hour).UnixMilli(),
		Status:      StatusSent,
	}
	return db.Create(&past).Error
}

func clearAll(db *gorm.DB) error {
	for _, table := range []string{"pairings", "slack_users", "bot_config"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
