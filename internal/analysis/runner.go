package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/adjudicator"
	"github.com/snitchlab/snitchbot/internal/agreements"
	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/i18n"
	"github.com/snitchlab/snitchbot/internal/observability"
)

type runnerStore interface {
	resultStore
	GetLogEvents(ctx context.Context, chatID int64, start, end time.Time) ([]db.LogEvent, error)
	GetActiveAgreements(ctx context.Context, chatID int64) ([]db.Agreement, error)
	GetActiveChats(ctx context.Context) ([]db.Chat, error)
}

// Notifier delivers announcements best-effort; a failed send never
// fails scoring.
type Notifier interface {
	Announce(ctx context.Context, chatID int64, text string) error
}

// Runner drives one chat's analysis from lock to unlock, and the
// sequential sweep across all active chats. A failing chat is logged
// and skipped; the sweep always finishes.
type Runner struct {
	store      runnerStore
	locks      *LockManager
	judge      adjudicator.Adjudicator
	agreements *agreements.Manager
	reconciler *Reconciler
	afk        *AFKDetector
	decay      *DecayEngine
	notifier   Notifier
	cfg        config.Analysis
	lang       string
	now        func() time.Time
	logger     *log.Entry
}

func NewRunner(
	store runnerStore,
	locks *LockManager,
	judge adjudicator.Adjudicator,
	agreementManager *agreements.Manager,
	reconciler *Reconciler,
	afk *AFKDetector,
	decay *DecayEngine,
	notifier Notifier,
	cfg config.Analysis,
	lang string,
) *Runner {
	return &Runner{
		store:      store,
		locks:      locks,
		judge:      judge,
		agreements: agreementManager,
		reconciler: reconciler,
		afk:        afk,
		decay:      decay,
		notifier:   notifier,
		cfg:        cfg,
		lang:       lang,
		now:        time.Now,
		logger:     log.WithField("context", "runner"),
	}
}

// RunDaily closes out one chat's analysis window. External failures
// degrade rather than abort: no logs means a quiet day, a failed
// classification means zero verdict offenders.
func (r *Runner) RunDaily(ctx context.Context, chatID int64) error {
	l := r.logger.WithField("chat_id", chatID)

	if err := r.locks.Acquire(ctx, chatID); err != nil {
		observability.RecordAnalysisRun("locked")
		return err
	}
	defer r.locks.Release(ctx, chatID)

	window := ResolveWindow(r.now(), r.cfg.TimezoneOffsetHours, r.cfg.CutoffHour)
	l = l.WithField("date_key", window.DateKey)

	events, err := r.store.GetLogEvents(ctx, chatID, window.Start, window.End)
	if err != nil {
		l.WithError(err).Error("cant fetch logs, treating day as quiet")
		events = nil
	}
	if len(events) == 0 {
		r.announce(ctx, chatID, i18n.Get("Too quiet today... No snitch found.", r.lang))
		observability.RecordAnalysisRun("no_logs")
		return nil
	}

	active, err := r.store.GetActiveAgreements(ctx, chatID)
	if err != nil {
		l.WithError(err).Error("cant fetch active agreements, classifying without them")
		active = nil
	}

	payload := db.ResultPayload{}
	verdict, err := r.judge.Classify(ctx, events, active, window.DateKey)
	if err != nil {
		l.WithError(err).Error("classification failed, applying empty verdict")
	} else if verdict != nil {
		payload = *verdict
	}

	afkOffenders, err := r.afk.Scan(ctx, chatID, r.now())
	if err != nil {
		l.WithError(err).Error("afk scan failed")
	}
	payload.Offenders = append(payload.Offenders, afkOffenders...)

	if err := r.reconciler.Apply(ctx, chatID, window.DateKey, payload); err != nil {
		observability.RecordAnalysisRun("error")
		return fmt.Errorf("reconcile %s: %w", window.DateKey, err)
	}

	r.applyAgreementDeltas(ctx, l, chatID, payload)
	r.announce(ctx, chatID, r.dailySummary(payload.Offenders))
	observability.RecordAnalysisRun("ok")
	return nil
}

// RunDecay applies the weekly amnesty to one chat.
func (r *Runner) RunDecay(ctx context.Context, chatID int64) error {
	decayed, err := r.decay.Apply(ctx, chatID)
	if err != nil {
		return fmt.Errorf("decay chat %d: %w", chatID, err)
	}
	if decayed > 0 {
		r.announce(ctx, chatID, i18n.Get("Weekly amnesty! Points earned this week are halved.", r.lang))
	}
	return nil
}

// SweepDaily runs the daily analysis for every active chat in turn.
func (r *Runner) SweepDaily(ctx context.Context) error {
	return r.sweep(ctx, "daily", r.RunDaily)
}

// SweepDecay runs the weekly amnesty for every active chat in turn.
func (r *Runner) SweepDecay(ctx context.Context) error {
	return r.sweep(ctx, "decay", r.RunDecay)
}

func (r *Runner) sweep(ctx context.Context, kind string, run func(context.Context, int64) error) error {
	chats, err := r.store.GetActiveChats(ctx)
	if err != nil {
		return fmt.Errorf("list active chats for %s sweep: %w", kind, err)
	}
	for _, chat := range chats {
		if err := run(ctx, chat.ID); err != nil {
			if errors.Is(err, ErrLockHeld) {
				r.logger.WithField("chat_id", chat.ID).Infof("%s run already in flight, skipping", kind)
				continue
			}
			r.logger.WithField("chat_id", chat.ID).WithError(err).Errorf("%s run failed", kind)
		}
	}
	return nil
}

func (r *Runner) applyAgreementDeltas(ctx context.Context, l *log.Entry, chatID int64, payload db.ResultPayload) {
	for _, draft := range payload.NewAgreements {
		if _, err := r.agreements.Create(ctx, chatID, draft); err != nil {
			l.WithError(err).Error("cant create agreement")
		}
	}
	for _, resolution := range payload.ResolvedAgreements {
		if err := r.agreements.Resolve(ctx, resolution.ID, resolution.Status, resolution.Reason); err != nil {
			l.WithError(err).WithField("agreement_id", resolution.ID).Error("cant resolve agreement")
		}
	}
	for _, amendment := range payload.UpdatedAgreements {
		if err := r.agreements.Amend(ctx, amendment.ID, amendment.NewText, amendment.Reason); err != nil {
			l.WithError(err).WithField("agreement_id", amendment.ID).Error("cant amend agreement")
		}
	}
}

func (r *Runner) dailySummary(offenders []db.Offender) string {
	if len(offenders) == 0 {
		return i18n.Get("Harmony reigned today. Not a single violation!", r.lang)
	}
	var b strings.Builder
	b.WriteString(i18n.Get("DAILY VERDICT", r.lang))
	b.WriteString("\n\n")
	for i, offender := range offenders {
		fmt.Fprintf(&b, "%d. %s (+%d)\n", i+1, offender.Username, offender.Points)
		if offender.Reason != "" {
			fmt.Fprintf(&b, "   %s\n", offender.Reason)
		}
		if offender.Quote != "" {
			fmt.Fprintf(&b, "   «%s»\n", offender.Quote)
		}
	}
	return b.String()
}

func (r *Runner) announce(ctx context.Context, chatID int64, text string) {
	if err := r.notifier.Announce(ctx, chatID, text); err != nil {
		r.logger.WithField("chat_id", chatID).WithError(err).Error("cant announce")
	}
}
