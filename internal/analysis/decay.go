package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

type decayStore interface {
	statStore
	GetTrailingResults(ctx context.Context, chatID int64, limit int) ([]db.DailyResult, error)
}

// DecayEngine is the weekly amnesty. It halves only the points a
// member accumulated over the trailing window of recorded days, never
// the all-time total; old sins stay priced in. There is deliberately
// no guard against running it twice in the same week — the schedule
// owns that cadence.
type DecayEngine struct {
	store      decayStore
	game       config.Game
	season     string
	windowDays int
}

func NewDecayEngine(store decayStore, game config.Game, season string, windowDays int) *DecayEngine {
	return &DecayEngine{store: store, game: game, season: season, windowDays: windowDays}
}

// Apply returns how many members actually lost points.
func (e *DecayEngine) Apply(ctx context.Context, chatID int64) (int, error) {
	results, err := e.store.GetTrailingResults(ctx, chatID, e.windowDays)
	if err != nil {
		return 0, fmt.Errorf("load trailing results: %w", err)
	}

	trailing := make(map[int64]int64)
	for _, result := range results {
		for _, offender := range result.Payload.Offenders {
			trailing[offender.UserID] += offender.Points
		}
	}

	decayed := 0
	for userID, sum := range trailing {
		cut := sum / 2
		if cut == 0 {
			continue
		}
		stat, err := e.store.GetUserStat(ctx, chatID, userID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return decayed, fmt.Errorf("load stat for decay: %w", err)
		}
		if stat.SeasonID != e.season {
			continue
		}
		stat.TotalPoints = floorZero(stat.TotalPoints - cut)
		stat.CurrentRank = e.game.RankFor(stat.TotalPoints)
		if err := e.store.UpsertUserStat(ctx, stat); err != nil {
			return decayed, fmt.Errorf("decay stat: %w", err)
		}
		decayed++
	}
	return decayed, nil
}
