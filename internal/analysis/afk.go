package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
)

// AFKDetector flags members who went quiet. The penalty escalates by
// a fixed increment for every day past the threshold. Members without
// any recorded activity are never penalized; punishing someone the bot
// has only just seen would be unfair.
type AFKDetector struct {
	store statStore
	game  config.Game
}

func NewAFKDetector(store statStore, game config.Game) *AFKDetector {
	return &AFKDetector{store: store, game: game}
}

func (d *AFKDetector) Scan(ctx context.Context, chatID int64, now time.Time) ([]db.Offender, error) {
	stats, err := d.store.GetUserStats(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}

	var offenders []db.Offender
	for _, stat := range stats {
		if stat.LastActiveAt == nil {
			continue
		}
		daysInactive := daysBetween(*stat.LastActiveAt, now)
		if daysInactive < d.game.AFKThresholdDays {
			continue
		}
		extra := int64(daysInactive - d.game.AFKThresholdDays)
		offenders = append(offenders, db.Offender{
			UserID:   stat.UserID,
			Username: stat.Username,
			Category: "afk",
			Points:   d.game.AFKBasePoints + extra*d.game.AFKDailyPoints,
			Reason:   fmt.Sprintf("молчит уже %d дн.", daysInactive),
		})
	}
	return offenders, nil
}
