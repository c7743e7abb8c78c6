package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

type statStore interface {
	GetUserStat(ctx context.Context, chatID, userID int64) (*db.UserStat, error)
	GetUserStats(ctx context.Context, chatID int64) ([]db.UserStat, error)
	UpsertUserStat(ctx context.Context, stat *db.UserStat) error
}

// Ledger owns the cumulative per-user score. Mutations are plain
// read-modify-write; per-user write frequency is low enough that the
// race window is accepted rather than closed with transactions.
type Ledger struct {
	store  statStore
	game   config.Game
	season string
}

func NewLedger(store statStore, game config.Game, season string) *Ledger {
	return &Ledger{store: store, game: game, season: season}
}

// AddPoints applies an immediate delta outside the batched daily path:
// accepted reports, gamble outcomes, false-report penalties. The total
// floors at zero and the rank is recomputed from the result.
func (l *Ledger) AddPoints(ctx context.Context, chatID, userID int64, username string, delta int64) (*db.UserStat, error) {
	stat, err := l.loadOrInit(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if username != "" {
		stat.Username = username
	}
	stat.TotalPoints = floorZero(stat.TotalPoints + delta)
	stat.CurrentRank = l.game.RankFor(stat.TotalPoints)
	if err := l.store.UpsertUserStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("upsert user stat: %w", err)
	}
	return stat, nil
}

// loadOrInit returns the member's stat for the active season. A row
// tagged with a stale season keeps its history in storage but comes
// back zeroed for scoring.
func (l *Ledger) loadOrInit(ctx context.Context, chatID, userID int64) (*db.UserStat, error) {
	stat, err := l.store.GetUserStat(ctx, chatID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return &db.UserStat{
			ChatID:      chatID,
			UserID:      userID,
			SeasonID:    l.season,
			CurrentRank: l.game.RankFor(0),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user stat: %w", err)
	}
	if stat.SeasonID != l.season {
		stat.ResetForSeason(l.season)
		stat.CurrentRank = l.game.RankFor(0)
	}
	return stat, nil
}

func (l *Ledger) Season() string { return l.season }

func (l *Ledger) Rank(points int64) string { return l.game.RankFor(points) }

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// daysBetween counts whole days from earlier to later.
func daysBetween(earlier, later time.Time) int {
	if later.Before(earlier) {
		return 0
	}
	return int(later.Sub(earlier).Hours() / 24)
}
