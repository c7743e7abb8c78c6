package analysis

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/observability"
)

type resultStore interface {
	statStore
	GetDailyResult(ctx context.Context, chatID int64, dateKey string) (*db.DailyResult, error)
	PutDailyResult(ctx context.Context, result *db.DailyResult) error
}

// Reconciler makes daily scoring idempotent under re-runs. Its
// contract: applying the same payload for a date key any number of
// times leaves the ledger as if it had been applied exactly once, no
// matter how the offender set changed between runs.
//
// The mechanism is full revert-then-reapply rather than diffing:
// offender membership can change entirely between runs, and runs are
// infrequent enough that reversal stays cheap.
type Reconciler struct {
	store  resultStore
	game   config.Game
	season string
}

func NewReconciler(store resultStore, game config.Game, season string) *Reconciler {
	return &Reconciler{store: store, game: game, season: season}
}

func (r *Reconciler) Apply(ctx context.Context, chatID int64, dateKey string, payload db.ResultPayload) error {
	prior, err := r.store.GetDailyResult(ctx, chatID, dateKey)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("load prior result: %w", err)
	}
	if prior != nil {
		if err := r.revert(ctx, chatID, prior.Payload.Offenders); err != nil {
			return err
		}
	}

	result := &db.DailyResult{ChatID: chatID, DateKey: dateKey, Payload: payload}
	if err := r.store.PutDailyResult(ctx, result); err != nil {
		return fmt.Errorf("store daily result: %w", err)
	}

	for _, offender := range payload.Offenders {
		if err := r.attribute(ctx, chatID, offender); err != nil {
			return err
		}
	}
	observability.RecordOffenders(len(payload.Offenders))
	return nil
}

// revert backs out a previously applied offender set. Members whose
// stat moved to another season keep their historical row untouched.
func (r *Reconciler) revert(ctx context.Context, chatID int64, offenders []db.Offender) error {
	for _, offender := range offenders {
		stat, err := r.store.GetUserStat(ctx, chatID, offender.UserID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load stat for revert: %w", err)
		}
		if stat.SeasonID != r.season {
			log.WithField("context", "reconciler").
				WithField("user_id", offender.UserID).
				Debug("skipping revert for stale season stat")
			continue
		}
		stat.TotalPoints = floorZero(stat.TotalPoints - offender.Points)
		stat.ViolationDayCount = floorZero(stat.ViolationDayCount - 1)
		stat.CurrentRank = r.game.RankFor(stat.TotalPoints)
		if err := r.store.UpsertUserStat(ctx, stat); err != nil {
			return fmt.Errorf("revert stat: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) attribute(ctx context.Context, chatID int64, offender db.Offender) error {
	stat, err := r.store.GetUserStat(ctx, chatID, offender.UserID)
	if errors.Is(err, db.ErrNotFound) {
		stat = &db.UserStat{ChatID: chatID, UserID: offender.UserID, SeasonID: r.season}
	} else if err != nil {
		return fmt.Errorf("load stat for attribution: %w", err)
	}
	if stat.SeasonID != r.season {
		stat.ResetForSeason(r.season)
	}
	if offender.Username != "" {
		stat.Username = offender.Username
	}
	stat.TotalPoints = floorZero(stat.TotalPoints + offender.Points)
	stat.ViolationDayCount++
	stat.CurrentRank = r.game.RankFor(stat.TotalPoints)
	if err := r.store.UpsertUserStat(ctx, stat); err != nil {
		return fmt.Errorf("attribute stat: %w", err)
	}
	return nil
}
