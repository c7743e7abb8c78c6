package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/snitchlab/snitchbot/internal/adapters"
	"github.com/snitchlab/snitchbot/internal/adapters/llm/gemini"
	"github.com/snitchlab/snitchbot/internal/adapters/llm/openai"
	"github.com/snitchlab/snitchbot/internal/adjudicator"
	"github.com/snitchlab/snitchbot/internal/agreements"
	"github.com/snitchlab/snitchbot/internal/analysis"
	"github.com/snitchlab/snitchbot/internal/casino"
	"github.com/snitchlab/snitchbot/internal/config"
	"github.com/snitchlab/snitchbot/internal/cooldown"
	"github.com/snitchlab/snitchbot/internal/db/sqlite"
	"github.com/snitchlab/snitchbot/internal/infra"
	"github.com/snitchlab/snitchbot/internal/ingest"
	"github.com/snitchlab/snitchbot/internal/lifecycle"
	"github.com/snitchlab/snitchbot/internal/notify"
	"github.com/snitchlab/snitchbot/internal/observability"
	"github.com/snitchlab/snitchbot/internal/reports"
	"github.com/snitchlab/snitchbot/internal/scheduler"
	"github.com/snitchlab/snitchbot/internal/triggers"
)

func main() {
	log.SetFormatter(&config.LogFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	workDir := infra.WorkDir(cfg.DotPath)
	dbClient, err := sqlite.NewSQLiteClient(ctx, workDir, "snitch.db")
	if err != nil {
		log.WithError(err).Fatalln("cant open database")
	}
	defer dbClient.Close()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	var model adapters.LLM
	switch cfg.LLM.Type {
	case "gemini":
		model = gemini.NewGemini(cfg.LLM.APIKey, cfg.LLM.Model, log.WithField("context", "gemini"))
	default:
		model = openai.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, log.WithField("context", "openai"))
	}

	game := config.DefaultGame()
	judge := adjudicator.New(model)
	announcer := notify.NewAnnouncer(botAPI)
	ledger := analysis.NewLedger(dbClient, game, cfg.Season)
	locks := analysis.NewLockManager(dbClient, cfg.Analysis.LockTTL)
	pacts := agreements.NewManager(dbClient, cfg.Analysis.DisputeWindow)
	reconciler := analysis.NewReconciler(dbClient, game, cfg.Season)
	afk := analysis.NewAFKDetector(dbClient, game)
	decay := analysis.NewDecayEngine(dbClient, game, cfg.Season, cfg.Analysis.DecayWindowDays)
	runner := analysis.NewRunner(
		dbClient, locks, judge, pacts, reconciler, afk, decay,
		announcer, cfg.Analysis, cfg.DefaultLanguage,
	)

	listener := ingest.NewListener(
		botAPI,
		dbClient,
		announcer,
		judge,
		ledger,
		pacts,
		casino.New(dbClient, game, cfg.Season, cfg.Analysis.TimezoneOffsetHours),
		reports.NewCounter(dbClient, game, cfg.Season),
		cooldown.NewStore(time.Duration(game.CynicalCommentCooldown)*time.Second),
		game,
		cfg.DefaultLanguage,
	)

	runtime := lifecycle.NewRuntime(
		listener,
		scheduler.New(runner, cfg.Analysis.TimezoneOffsetHours),
		triggers.NewServer(cfg.ListenAddr, runner, cfg.SecretToken),
	)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}

	select {
	case <-ctx.Done():
		log.Infoln("shutdown signal received")
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Errorln("unclean shutdown")
	}
}
