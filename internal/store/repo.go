package store

import (
	"context"
	"time"

	"github.com/ykvlv/duty-bot/internal/domain"
)

// ScheduleRepo persists per-chat schedule documents.
type ScheduleRepo interface {
	LoadSchedule(ctx context.Context, chatID int64, kind domain.Kind) (domain.Schedule, error)
	SaveSchedule(ctx context.Context, chatID int64, kind domain.Kind, s domain.Schedule) error
	HasSchedule(ctx context.Context, chatID int64, kind domain.Kind) (bool, error)
	ListChats(ctx context.Context) ([]int64, error)
}

// StatsRepo persists per-chat statistics.
type StatsRepo interface {
	LoadStats(ctx context.Context, chatID int64) (domain.Stats, error)
	SaveStats(ctx context.Context, chatID int64, s domain.Stats) error
}

// BindingRepo correlates rendered messages with the schedule they show.
type BindingRepo interface {
	BindMessage(ctx context.Context, b Binding) error
	LookupMessage(ctx context.Context, chatID int64, messageID int) (*Binding, error)
}

// HistoryRepo keeps per-day hour tallies for period leaderboards.
type HistoryRepo interface {
	AddDailyHours(ctx context.Context, chatID int64, day time.Time, hours map[int64]int) error
	SumHours(ctx context.Context, chatID int64, from, to time.Time) (map[int64]int, error)
}
