package casino

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/observability"
)

// ErrAlreadyGambled gates the daily play.
var ErrAlreadyGambled = errors.New("already gambled today")

type store interface {
	GetUserStat(ctx context.Context, chatID, userID int64) (*db.UserStat, error)
	UpsertUserStat(ctx context.Context, stat *db.UserStat) error
}

// Casino runs the once-a-day gamble. The gate is a plain string
// comparison of the last play date read before the draw and written
// after it; two plays racing through that window can both land. With
// one human behind each user id that race stays theoretical.
type Casino struct {
	store    store
	game     config.Game
	season   string
	tzOffset int
	draw     func() float64
	now      func() time.Time
}

// Outcome describes a finished play.
type Outcome struct {
	Won      bool
	Delta    int64
	NewTotal int64
	NewRank  string
}

func New(store store, game config.Game, season string, tzOffsetHours int) *Casino {
	return &Casino{
		store:    store,
		game:     game,
		season:   season,
		tzOffset: tzOffsetHours,
		draw:     rand.Float64,
		now:      time.Now,
	}
}

func (c *Casino) Play(ctx context.Context, chatID, userID int64, username string) (*Outcome, error) {
	stat, err := c.store.GetUserStat(ctx, chatID, userID)
	if errors.Is(err, db.ErrNotFound) {
		stat = &db.UserStat{ChatID: chatID, UserID: userID, SeasonID: c.season}
	} else if err != nil {
		return nil, fmt.Errorf("load stat: %w", err)
	}
	if stat.SeasonID != c.season {
		stat.ResetForSeason(c.season)
	}

	localDate := c.localDate()
	if stat.LastGambleDate == localDate {
		return nil, ErrAlreadyGambled
	}

	outcome := &Outcome{Won: c.draw() < c.game.GambleWinChance}
	if outcome.Won {
		outcome.Delta = -c.game.GambleWinPoints
		observability.RecordGamble("win")
	} else {
		outcome.Delta = c.game.GambleLossPoints
		observability.RecordGamble("loss")
	}

	total := stat.TotalPoints + outcome.Delta
	if total < 0 {
		total = 0
	}
	stat.TotalPoints = total
	stat.CurrentRank = c.game.RankFor(total)
	stat.LastGambleDate = localDate
	if username != "" {
		stat.Username = username
	}
	if err := c.store.UpsertUserStat(ctx, stat); err != nil {
		return nil, fmt.Errorf("persist play: %w", err)
	}

	outcome.NewTotal = stat.TotalPoints
	outcome.NewRank = stat.CurrentRank
	return outcome, nil
}

func (c *Casino) localDate() string {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", c.tzOffset), c.tzOffset*3600)
	return c.now().In(zone).Format("2006-01-02")
}
