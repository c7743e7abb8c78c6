package scheduler

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Sweeper runs the scheduled jobs across all active chats.
type Sweeper interface {
	SweepDaily(ctx context.Context) error
	SweepDecay(ctx context.Context) error
}

// Scheduler fires the daily verdict sweep at 23:50 chat-local time and
// the weekly amnesty on Sunday at 23:59. The sweeps are idempotent, so
// a missed or doubled tick costs nothing.
type Scheduler struct {
	sweeper   Sweeper
	zone      *time.Location
	now       func() time.Time
	logger    *log.Entry
	cancel    context.CancelFunc
	done      chan struct{}
	nextDaily time.Time
	nextDecay time.Time
}

const (
	dailyHour   = 23
	dailyMinute = 50
	decayHour   = 23
	decayMinute = 59
)

func New(sweeper Sweeper, tzOffsetHours int) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		zone:    time.FixedZone(fmt.Sprintf("UTC%+d", tzOffsetHours), tzOffsetHours*3600),
		now:     time.Now,
		logger:  log.WithField("context", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.loop(runCtx)
	}()
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	now := s.now().In(s.zone)
	s.nextDaily = nextAt(now, dailyHour, dailyMinute)
	s.nextDecay = nextSunday(now, decayHour, decayMinute)

	for {
		now = s.now().In(s.zone)
		next := s.nextDaily
		if s.nextDecay.Before(next) {
			next = s.nextDecay
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runDue(ctx)
	}
}

// runDue fires every slot whose time has passed, including slots that came
// due while an earlier job was still running. A daily sweep overrunning the
// Sunday 23:59 slot must not swallow that week's decay.
func (s *Scheduler) runDue(ctx context.Context) {
	for {
		now := s.now().In(s.zone)
		switch {
		case !s.nextDaily.After(now):
			s.runJob(ctx, "daily", s.sweeper.SweepDaily)
			s.nextDaily = nextAt(s.nextDaily, dailyHour, dailyMinute)
		case !s.nextDecay.After(now):
			s.runJob(ctx, "decay", s.sweeper.SweepDecay)
			s.nextDecay = nextSunday(s.nextDecay, decayHour, decayMinute)
		default:
			return
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, name string, job func(context.Context) error) {
	s.logger.WithField("job", name).Info("sweep starting")
	if err := job(ctx); err != nil {
		s.logger.WithField("job", name).WithError(err).Error("sweep failed")
	}
}

// nextAt returns the next occurrence of hh:mm strictly after now.
func nextAt(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextSunday returns the next Sunday hh:mm strictly after now.
func nextSunday(now time.Time, hour, minute int) time.Time {
	next := nextAt(now, hour, minute)
	for next.Weekday() != time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
