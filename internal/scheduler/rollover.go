package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/store"
)

// Rollover advances every chat's rotation by one day and folds the day that
// ended into statistics.
//
// It takes no locks: a command editing today while the rollover rewrites it
// loses one of the two writes.
type Rollover struct {
	schedules store.ScheduleRepo
	stats     store.StatsRepo
	history   store.HistoryRepo
	cal       *domain.Calendar
	log       *zap.Logger
}

// NewRollover creates the job. history may be nil.
func NewRollover(schedules store.ScheduleRepo, stats store.StatsRepo, history store.HistoryRepo, cal *domain.Calendar, log *zap.Logger) *Rollover {
	return &Rollover{schedules: schedules, stats: stats, history: history, cal: cal, log: log}
}

// Report summarizes one RunAll pass.
type Report struct {
	Chats  int
	Failed []int64
}

// RunAll rolls over every known chat. One chat failing does not stop the rest.
func (r *Rollover) RunAll(ctx context.Context) (Report, error) {
	chats, err := r.schedules.ListChats(ctx)
	if err != nil {
		r.log.Error("list chats failed", zap.Error(err))
		return Report{}, err
	}

	rep := Report{Chats: len(chats)}
	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := r.RunChat(ctx, chatID); err != nil {
			r.log.Error("rollover failed", zap.Error(err), zap.Int64("chat_id", chatID))
			rep.Failed = append(rep.Failed, chatID)
			continue
		}
	}
	r.log.Info("rollover done", zap.Int("chats", rep.Chats), zap.Int("failed", len(rep.Failed)))
	return rep, nil
}

// RunChat performs the rollover for a single chat. Statistics are computed from
// the old today before the rotation replaces it. Load failures abort the chat;
// save failures are collected and returned after the remaining steps ran.
func (r *Rollover) RunChat(ctx context.Context, chatID int64) error {
	today, err := r.schedules.LoadSchedule(ctx, chatID, domain.KindToday)
	if err != nil {
		return err
	}
	tomorrow, err := r.loadTomorrow(ctx, chatID)
	if err != nil {
		return err
	}
	stats, err := r.stats.LoadStats(ctx, chatID)
	if err != nil {
		return err
	}

	newTomorrowDate := r.cal.Tomorrow()
	defaultKind := domain.DefaultKindFor(newTomorrowDate)
	seed, err := r.schedules.LoadSchedule(ctx, chatID, defaultKind)
	if err != nil {
		return err
	}

	ended := r.cal.Today().AddDate(0, 0, -1)
	tally := today.Tally()
	stats.Fold(tally, ended)

	var errs []error
	if err := r.stats.SaveStats(ctx, chatID, stats); err != nil {
		errs = append(errs, fmt.Errorf("save stats: %w", err))
	}
	if r.history != nil {
		if err := r.history.AddDailyHours(ctx, chatID, ended, tally); err != nil {
			errs = append(errs, fmt.Errorf("record history: %w", err))
		}
	}

	if err := r.schedules.SaveSchedule(ctx, chatID, domain.KindToday, tomorrow.Clone()); err != nil {
		errs = append(errs, fmt.Errorf("save today: %w", err))
	}
	if err := r.schedules.SaveSchedule(ctx, chatID, domain.KindTomorrow, seed.Clone()); err != nil {
		errs = append(errs, fmt.Errorf("save tomorrow: %w", err))
	}

	r.log.Debug("chat rolled over",
		zap.Int64("chat_id", chatID),
		zap.Int("users", len(tally)),
		zap.String("seed", string(defaultKind)),
	)
	return errors.Join(errs...)
}

// loadTomorrow returns the stored tomorrow. A chat that never saved one gets
// the template of the day tomorrow is about to become, i.e. the new today.
func (r *Rollover) loadTomorrow(ctx context.Context, chatID int64) (domain.Schedule, error) {
	ok, err := r.schedules.HasSchedule(ctx, chatID, domain.KindTomorrow)
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.Template(domain.IsWeekend(r.cal.Today())), nil
	}
	return r.schedules.LoadSchedule(ctx, chatID, domain.KindTomorrow)
}
