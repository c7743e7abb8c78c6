package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

type store interface {
	GetUserStat(ctx context.Context, chatID, userID int64) (*db.UserStat, error)
	UpsertUserStat(ctx context.Context, stat *db.UserStat) error
}

// Counter tracks rejected reports per member. The count only ever
// grows; every time it crosses a full multiple of the limit the
// reporter takes the penalty.
type Counter struct {
	store  store
	game   config.Game
	season string
}

// Strike is the result of recording one rejected report.
type Strike struct {
	Count     int64
	Penalized bool
	NewTotal  int64
	NewRank   string
}

func NewCounter(store store, game config.Game, season string) *Counter {
	return &Counter{store: store, game: game, season: season}
}

// RecordRejected bumps the reporter's false-report count and, on every
// multiple of the configured limit, charges the penalty in the same
// write.
func (c *Counter) RecordRejected(ctx context.Context, chatID, userID int64, username string) (*Strike, error) {
	stat, err := c.store.GetUserStat(ctx, chatID, userID)
	if errors.Is(err, db.ErrNotFound) {
		stat = &db.UserStat{ChatID: chatID, UserID: userID, SeasonID: c.season}
	} else if err != nil {
		return nil, fmt.Errorf("load stat: %w", err)
	}
	if stat.SeasonID != c.season {
		stat.ResetForSeason(c.season)
	}
	if username != "" {
		stat.Username = username
	}

	stat.FalseReportCount++
	strike := &Strike{Count: stat.FalseReportCount}
	if stat.FalseReportCount%c.game.FalseReportLimit == 0 {
		strike.Penalized = true
		stat.TotalPoints += c.game.FalseReportPenalty
	}
	stat.CurrentRank = c.game.RankFor(stat.TotalPoints)

	if err := c.store.UpsertUserStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("persist strike: %w", err)
	}
	strike.NewTotal = stat.TotalPoints
	strike.NewRank = stat.CurrentRank
	return strike, nil
}
