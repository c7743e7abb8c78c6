package analysis

import (
	"context"
	"testing"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

func TestRankBoundaries(t *testing.T) {
	t.Parallel()

	game := config.DefaultGame()
	tests := []struct {
		points int64
		want   string
	}{
		{0, game.Ranks[0].Title},
		{49, game.Ranks[0].Title},
		{50, game.Ranks[1].Title},
		{249, game.Ranks[1].Title},
		{250, game.Ranks[2].Title},
		{749, game.Ranks[2].Title},
		{750, game.Ranks[3].Title},
		{1499, game.Ranks[3].Title},
		{1500, game.Ranks[4].Title},
		{99999, game.Ranks[4].Title},
	}
	for _, tt := range tests {
		if got := game.RankFor(tt.points); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestAddPointsFloorsAtZero(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	ledger := NewLedger(store, config.DefaultGame(), "s1")

	stat, err := ledger.AddPoints(ctx, 1, 7, "vasya", 30)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stat.TotalPoints != 30 {
		t.Fatalf("expected 30, got %d", stat.TotalPoints)
	}

	stat, err = ledger.AddPoints(ctx, 1, 7, "", -100)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if stat.TotalPoints != 0 {
		t.Fatalf("total must floor at zero, got %d", stat.TotalPoints)
	}
	if stat.Username != "vasya" {
		t.Fatalf("empty username must not clobber, got %q", stat.Username)
	}
}

func TestAddPointsUpdatesRank(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	game := config.DefaultGame()
	ledger := NewLedger(store, game, "s1")

	stat, err := ledger.AddPoints(ctx, 1, 7, "vasya", 49)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stat.CurrentRank != game.Ranks[0].Title {
		t.Fatalf("expected base rank at 49, got %q", stat.CurrentRank)
	}

	stat, err = ledger.AddPoints(ctx, 1, 7, "", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stat.CurrentRank != game.Ranks[1].Title {
		t.Fatalf("expected promotion at 50, got %q", stat.CurrentRank)
	}
}

func TestStaleSeasonReadsAsReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newFakeStore()
	game := config.DefaultGame()
	ledger := NewLedger(store, game, "s2")

	store.stats[statKey{1, 7}] = &db.UserStat{
		ChatID: 1, UserID: 7, Username: "vasya",
		TotalPoints: 900, ViolationDayCount: 12, FalseReportCount: 2, SeasonID: "s1",
	}

	stat, err := ledger.AddPoints(ctx, 1, 7, "", 10)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stat.TotalPoints != 10 {
		t.Fatalf("stale season must score from zero, got %d", stat.TotalPoints)
	}
	if stat.SeasonID != "s2" {
		t.Fatalf("season not rolled: %s", stat.SeasonID)
	}
	if stat.ViolationDayCount != 0 {
		t.Fatalf("violation days must reset, got %d", stat.ViolationDayCount)
	}
	if stat.FalseReportCount != 0 {
		t.Fatalf("false reports must reset, got %d", stat.FalseReportCount)
	}
}
