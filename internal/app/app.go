package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/config"
	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/scheduler"
	"github.com/ykvlv/duty-bot/internal/skins"
	"github.com/ykvlv/duty-bot/internal/store"
	"github.com/ykvlv/duty-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    *store.SQLiteRepo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting duty-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.cfg.Timezone),
		zap.Bool("economy", a.cfg.Economy),
	)

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	cal := domain.NewCalendar(loc, time.Now)

	files, err := store.OpenFiles(a.cfg.DataDir, cal, a.log.Named("files"))
	if err != nil {
		a.log.Error("open data dir failed", zap.Error(err))
		return err
	}

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	rollover := scheduler.NewRollover(files, files, repo, cal, a.log.Named("rollover"))
	sched, err := scheduler.New(rollover, a.log.Named("scheduler"), loc, a.cfg.RolloverCron)
	if err != nil {
		_ = repo.Close()
		return err
	}

	a.router = telegram.NewRouter(a.bot, a.log.Named("telegram"), telegram.Deps{
		Schedules: files,
		Stats:     files,
		Bindings:  repo,
		History:   repo,
		Calendar:  cal,
		Rollover:  rollover,
		Skins:     skins.New(a.cfg.SkinsDir),
		Admins:    a.cfg.AdminIDs,
		Economy:   a.cfg.Economy,
	})

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			a.log.Error("scheduler error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}

			<-schedDone
			if err := a.repo.Close(); err != nil {
				a.log.Warn("sqlite close error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
