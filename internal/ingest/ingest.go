package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/adjudicator"
	"github.com/snitchlab/snitchbot/internal/agreements"
	"github.com/snitchlab/snitchbot/internal/analysis"
	"github.com/snitchlab/snitchbot/internal/casino"
	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/cooldown"
	"github.com/snitchlab/snitchbot/internal/db"
	"github.com/snitchlab/snitchbot/internal/i18n"
	"github.com/snitchlab/snitchbot/internal/infra"
	"github.com/snitchlab/snitchbot/internal/reports"
)

const updateTimeout = 60 // seconds, long poll

type store interface {
	InsertLogEvent(ctx context.Context, event *db.LogEvent) error
	TouchLastActive(ctx context.Context, chatID, userID int64, username string, at time.Time) error
	MarkReported(ctx context.Context, chatID, messageID int64) error
	GetRecentLogEvents(ctx context.Context, chatID int64, limit int) ([]db.LogEvent, error)
	GetUserStat(ctx context.Context, chatID, userID int64) (*db.UserStat, error)
	GetTopUserStats(ctx context.Context, chatID int64, limit int) ([]db.UserStat, error)
	UpsertChat(ctx context.Context, chat *db.Chat) error
}

type responder interface {
	Announce(ctx context.Context, chatID int64, text string) error
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
}

type updateSource interface {
	GetUpdatesChan(config api.UpdateConfig) api.UpdatesChannel
	StopReceivingUpdates()
}

// Listener is the chat-facing half of the bot: it logs every group
// message for the nightly verdict and serves the player commands.
type Listener struct {
	bot     updateSource
	store   store
	out     responder
	judge   adjudicator.Adjudicator
	ledger  *analysis.Ledger
	pacts   *agreements.Manager
	games   *casino.Casino
	strikes *reports.Counter
	quips   *cooldown.Store
	game    config.Game
	lang    string
	draw    func() float64
	now     func() time.Time
	logger  *log.Entry

	cancel context.CancelFunc
	done   chan struct{}
}

var cynicalRemarks = []string{
	"I saw that. It goes in the file.",
	"Keep talking. The file grows thicker.",
	"Interesting. Noted.",
}

func NewListener(
	bot updateSource,
	store store,
	out responder,
	judge adjudicator.Adjudicator,
	ledger *analysis.Ledger,
	pacts *agreements.Manager,
	games *casino.Casino,
	strikes *reports.Counter,
	quips *cooldown.Store,
	game config.Game,
	lang string,
) *Listener {
	return &Listener{
		bot:     bot,
		store:   store,
		out:     out,
		judge:   judge,
		ledger:  ledger,
		pacts:   pacts,
		games:   games,
		strikes: strikes,
		quips:   quips,
		game:    game,
		lang:    lang,
		draw:    rand.Float64,
		now:     time.Now,
		logger:  log.WithField("context", "ingest"),
	}
}

func (l *Listener) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel
	l.done = make(chan struct{})

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = updateTimeout
	updates := l.bot.GetUpdatesChan(updateConfig)

	// close(done) sits inside the recoverable body: a panic respawns the
	// loop, and only a clean exit releases Stop.
	go infra.GoRecoverable(-1, "ingest", func() {
		l.loop(runCtx, updates)
		close(l.done)
	})
	l.logger.Info("listening for updates")
	return nil
}

func (l *Listener) Stop(_ context.Context) error {
	l.bot.StopReceivingUpdates()
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
	return nil
}

func (l *Listener) loop(ctx context.Context, updates api.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := l.handle(ctx, &u); err != nil {
				l.logger.WithError(errors.WithMessage(err, "handling error")).Error("cant handle update")
			}
		}
	}
}

func (l *Listener) handle(ctx context.Context, u *api.Update) error {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}
	if msg.Chat.IsPrivate() {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("I am the snitch bot. I am watching you.", l.lang))
	}

	if msg.IsCommand() {
		return l.handleCommand(ctx, msg)
	}
	if msg.Text == "" {
		return nil
	}
	return l.logMessage(ctx, msg)
}

func (l *Listener) handleCommand(ctx context.Context, msg *api.Message) error {
	switch msg.Command() {
	case "start":
		return l.handleStart(ctx, msg)
	case "status":
		return l.handleStatus(ctx, msg)
	case "stats":
		return l.handleStats(ctx, msg)
	case "report":
		return l.handleReport(ctx, msg)
	case "gamble":
		return l.handleGamble(ctx, msg)
	case "dispute":
		return l.handleDispute(ctx, msg)
	}
	return nil
}

// logMessage records the event for the nightly analysis and, rarely,
// lets the bot sneer at the chat.
func (l *Listener) logMessage(ctx context.Context, msg *api.Message) error {
	event := &db.LogEvent{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.MessageID),
		UserID:    msg.From.ID,
		Username:  displayName(msg.From),
		Text:      msg.Text,
		SentAt:    time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.ReplyToMessage != nil {
		replyTo := int64(msg.ReplyToMessage.MessageID)
		event.ReplyTo = &replyTo
	}
	if err := l.store.InsertLogEvent(ctx, event); err != nil {
		return fmt.Errorf("insert log event: %w", err)
	}
	if err := l.store.TouchLastActive(ctx, msg.Chat.ID, msg.From.ID, event.Username, l.now()); err != nil {
		l.logger.WithError(err).Warn("cant touch last active")
	}

	if l.draw() < l.game.CynicalCommentChance && l.quips.Allow(quipKey(msg.Chat.ID)) {
		remark := cynicalRemarks[rand.Intn(len(cynicalRemarks))]
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get(remark, l.lang))
	}
	return nil
}

func (l *Listener) handleStart(ctx context.Context, msg *api.Message) error {
	chat := &db.Chat{
		ID:       msg.Chat.ID,
		Title:    msg.Chat.Title,
		Active:   true,
		Language: l.lang,
	}
	if err := l.store.UpsertChat(ctx, chat); err != nil {
		return fmt.Errorf("register chat: %w", err)
	}
	return l.out.Announce(ctx, msg.Chat.ID, i18n.Get("I am the snitch bot. I am watching you.", l.lang))
}

func (l *Listener) handleStatus(ctx context.Context, msg *api.Message) error {
	stat, err := l.store.GetUserStat(ctx, msg.Chat.ID, msg.From.ID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && stat.SeasonID != l.ledger.Season()) {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("No stats yet.", l.lang))
	}
	if err != nil {
		return fmt.Errorf("load stat: %w", err)
	}
	text := fmt.Sprintf(
		i18n.Get("Dossier on %s\nRank: %s\nPoints: %d\nViolation days: %d\nFalse reports: %d", l.lang),
		stat.Username, stat.CurrentRank, stat.TotalPoints, stat.ViolationDayCount, stat.FalseReportCount,
	)
	return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, text)
}

func (l *Listener) handleStats(ctx context.Context, msg *api.Message) error {
	top, err := l.store.GetTopUserStats(ctx, msg.Chat.ID, 10)
	if err != nil {
		return fmt.Errorf("load top stats: %w", err)
	}
	season := make([]db.UserStat, 0, len(top))
	for _, stat := range top {
		if stat.SeasonID == l.ledger.Season() {
			season = append(season, stat)
		}
	}
	if len(season) == 0 {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("No stats yet.", l.lang))
	}
	var b strings.Builder
	b.WriteString(i18n.Get("Top snitches", l.lang))
	b.WriteString("\n\n")
	for i, stat := range season {
		b.WriteString(fmt.Sprintf("%d. %s — %d (%s)\n", i+1, stat.Username, stat.TotalPoints, stat.CurrentRank))
	}
	return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, b.String())
}

func (l *Listener) handleReport(ctx context.Context, msg *api.Message) error {
	reported := msg.ReplyToMessage
	if reported == nil || reported.From == nil {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("Reply to a message to report it.", l.lang))
	}
	if err := l.store.MarkReported(ctx, msg.Chat.ID, int64(reported.MessageID)); err != nil {
		l.logger.WithError(err).Warn("cant mark reported")
	}

	recent, err := l.store.GetRecentLogEvents(ctx, msg.Chat.ID, l.game.ReportContextLimit)
	if err != nil {
		l.logger.WithError(err).Warn("cant load report context")
	}
	reportedEvent := db.LogEvent{
		ChatID:    msg.Chat.ID,
		MessageID: int64(reported.MessageID),
		UserID:    reported.From.ID,
		Username:  displayName(reported.From),
		Text:      reported.Text,
		SentAt:    time.Unix(int64(reported.Date), 0).UTC(),
	}
	verdict, err := l.judge.JudgeReport(ctx, recent, reportedEvent)
	if err != nil {
		return fmt.Errorf("judge report: %w", err)
	}

	if verdict.Accepted {
		points := verdict.Points
		if points <= 0 {
			points = l.game.PointsSnitching
		}
		if _, err := l.ledger.AddPoints(ctx, msg.Chat.ID, reportedEvent.UserID, reportedEvent.Username, points); err != nil {
			return fmt.Errorf("score reported user: %w", err)
		}
		text := i18n.Get("Report accepted.", l.lang)
		if verdict.Reason != "" {
			text += "\n" + verdict.Reason
		}
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, text)
	}

	strike, err := l.strikes.RecordRejected(ctx, msg.Chat.ID, msg.From.ID, displayName(msg.From))
	if err != nil {
		return fmt.Errorf("record rejected report: %w", err)
	}
	text := i18n.Get("Report rejected.", l.lang)
	if strike.Penalized {
		text += "\n" + i18n.Get("False report penalty applied.", l.lang)
	}
	return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, text)
}

func (l *Listener) handleGamble(ctx context.Context, msg *api.Message) error {
	outcome, err := l.games.Play(ctx, msg.Chat.ID, msg.From.ID, displayName(msg.From))
	if errors.Is(err, casino.ErrAlreadyGambled) {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("You already gambled today. Come back tomorrow.", l.lang))
	}
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	key := "You lost! Points added."
	if outcome.Won {
		key = "You won! Points deducted."
	}
	text := fmt.Sprintf("%s\n%s: %d (%s)", i18n.Get(key, l.lang), displayName(msg.From), outcome.NewTotal, outcome.NewRank)
	return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, text)
}

// handleDispute freezes an agreement by its ordinal in the active list.
// Without an argument it prints the list, so the ordinal the player
// names is always read from a fresh snapshot.
func (l *Listener) handleDispute(ctx context.Context, msg *api.Message) error {
	active, err := l.pacts.ListActive(ctx, msg.Chat.ID)
	if err != nil {
		return fmt.Errorf("list agreements: %w", err)
	}
	if len(active) == 0 {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("No agreements on record.", l.lang))
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		var b strings.Builder
		for i, agreement := range active {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, agreement.Text))
		}
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, b.String())
	}

	ordinal, err := strconv.Atoi(args)
	if err != nil || ordinal < 1 || ordinal > len(active) {
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("Agreement not found.", l.lang))
	}
	switch err := l.pacts.Dispute(ctx, active[ordinal-1].ID); {
	case errors.Is(err, agreements.ErrTooLate):
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("Dispute window closed.", l.lang))
	case errors.Is(err, agreements.ErrNotFound):
		return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("Agreement not found.", l.lang))
	case err != nil:
		return fmt.Errorf("dispute: %w", err)
	}
	return l.out.Reply(ctx, msg.Chat.ID, msg.MessageID, i18n.Get("Dispute accepted.", l.lang))
}

func displayName(user *api.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

func quipKey(chatID int64) string {
	return "quip:" + strconv.FormatInt(chatID, 10)
}
