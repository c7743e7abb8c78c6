package analysis

import (
	"context"
	"testing"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

func TestDecayHalvesOnlyTrailingWeekPoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()

	// 100 total, 40 of which earned across the trailing recorded days
	store.stats[statKey{1, 7}] = &db.UserStat{
		ChatID: 1, UserID: 7, Username: "vasya", TotalPoints: 100, SeasonID: "s1",
	}
	store.results["2026-08-27"] = &db.DailyResult{
		ChatID: 1, DateKey: "2026-08-27",
		Payload: payloadOf(db.Offender{UserID: 7, Points: 15}),
	}
	store.results["2026-08-28"] = &db.DailyResult{
		ChatID: 1, DateKey: "2026-08-28",
		Payload: payloadOf(db.Offender{UserID: 7, Points: 25}),
	}

	engine := NewDecayEngine(store, config.DefaultGame(), "s1", 7)
	decayed, err := engine.Apply(ctx, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if decayed != 1 {
		t.Fatalf("expected 1 decayed member, got %d", decayed)
	}
	if got := store.points(1, 7); got != 80 {
		t.Fatalf("100 - 40/2 = 80, got %d", got)
	}
}

func TestDecayIgnoresResultsOutsideWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	store.stats[statKey{1, 7}] = &db.UserStat{ChatID: 1, UserID: 7, TotalPoints: 200, SeasonID: "s1"}

	// eight recorded days, the oldest must fall out of a 7-day window
	days := []string{"2026-08-21", "2026-08-22", "2026-08-23", "2026-08-24",
		"2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28"}
	for _, day := range days {
		store.results[day] = &db.DailyResult{
			ChatID: 1, DateKey: day,
			Payload: payloadOf(db.Offender{UserID: 7, Points: 10}),
		}
	}

	engine := NewDecayEngine(store, config.DefaultGame(), "s1", 7)
	if _, err := engine.Apply(ctx, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// trailing 7 days carry 70 points, halved is 35
	if got := store.points(1, 7); got != 165 {
		t.Fatalf("want 200-35=165, got %d", got)
	}
}

func TestDecayUntouchedWithoutTrailingPoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	store.stats[statKey{1, 7}] = &db.UserStat{ChatID: 1, UserID: 7, TotalPoints: 100, SeasonID: "s1"}

	engine := NewDecayEngine(store, config.DefaultGame(), "s1", 7)
	decayed, err := engine.Apply(ctx, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if decayed != 0 {
		t.Fatalf("expected nobody decayed, got %d", decayed)
	}
	if got := store.points(1, 7); got != 100 {
		t.Fatalf("total must be untouched, got %d", got)
	}
}

func TestDecayFloorsAtZero(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	store.stats[statKey{1, 7}] = &db.UserStat{ChatID: 1, UserID: 7, TotalPoints: 10, SeasonID: "s1"}
	store.results["2026-08-28"] = &db.DailyResult{
		ChatID: 1, DateKey: "2026-08-28",
		Payload: payloadOf(db.Offender{UserID: 7, Points: 100}),
	}

	engine := NewDecayEngine(store, config.DefaultGame(), "s1", 7)
	if _, err := engine.Apply(ctx, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := store.points(1, 7); got != 0 {
		t.Fatalf("decay floors at zero, got %d", got)
	}
}

func TestDecaySkipsStaleSeason(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	store.stats[statKey{1, 7}] = &db.UserStat{ChatID: 1, UserID: 7, TotalPoints: 100, SeasonID: "s0"}
	store.results["2026-08-28"] = &db.DailyResult{
		ChatID: 1, DateKey: "2026-08-28",
		Payload: payloadOf(db.Offender{UserID: 7, Points: 40}),
	}

	engine := NewDecayEngine(store, config.DefaultGame(), "s1", 7)
	if _, err := engine.Apply(ctx, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := store.points(1, 7); got != 100 {
		t.Fatalf("stale season stat must not decay, got %d", got)
	}
}
