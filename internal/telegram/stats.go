package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
)

const topSize = 10

func rankedIDs(rows []domain.Ranked) []int64 {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}
	return ids
}

func positive(rows []domain.Ranked) []domain.Ranked {
	out := rows[:0]
	for _, row := range rows {
		if row.Value > 0 {
			out = append(out, row)
		}
	}
	return out
}

func (r *Router) handleChatStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := r.stats.LoadStats(ctx, msg.Chat.ID)
	if err != nil {
		r.log.Error("load stats failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		r.reply(msg, textLoadFailed)
		return
	}
	if len(stats) == 0 {
		r.reply(msg, textNoStatsChat)
		return
	}
	rows := domain.Top(stats.Metric(func(u *domain.UserStats) int { return u.Total }), 0)
	names := displayNames(ctx, r.names, stats, rankedIDs(rows))

	var b strings.Builder
	b.WriteString("📊 Chat statistics\n")
	for _, row := range rows {
		u := stats[row.UserID]
		fmt.Fprintf(&b, "%s: %d hours total, %d yesterday\n", names[row.UserID], u.Total, u.Yesterday)
	}
	r.reply(msg, b.String())
}

// handleUserStats shows one user's record, with their profile skin when set.
// who is the Telegram user when known and is used for the fallback name.
func (r *Router) handleUserStats(ctx context.Context, msg *tgbotapi.Message, id int64, who *tgbotapi.User) {
	stats, err := r.stats.LoadStats(ctx, msg.Chat.ID)
	if err != nil {
		r.log.Error("load stats failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		r.reply(msg, textLoadFailed)
		return
	}
	var name string
	if who != nil {
		name = whoName(stats, who)
	} else {
		name = displayNames(ctx, r.names, stats, []int64{id})[id]
	}

	u, ok := stats[id]
	if !ok || u == nil {
		if id == msg.From.ID {
			r.reply(msg, textNoStats)
		} else {
			r.reply(msg, fmt.Sprintf("%s has no statistics yet.", name))
		}
		return
	}
	r.replyWithSkin(msg, "profile", u.Skin["profile"], userStatsText(name, u))
}

// handleYourStat lets an admin inspect someone else's record.
func (r *Router) handleYourStat(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg, textNoAccess)
		return
	}
	target, _, err := r.resolveTarget(ctx, msg, args, r.chatStats(ctx, msg.Chat.ID))
	if err != nil {
		r.reply(msg, usageText(err))
		return
	}
	var who *tgbotapi.User
	if rep := msg.ReplyToMessage; rep != nil && rep.From != nil && rep.From.ID == target {
		who = rep.From
	}
	r.handleUserStats(ctx, msg, target, who)
}

func (r *Router) handleTopMetric(ctx context.Context, msg *tgbotapi.Message, title, unit string, metric func(*domain.UserStats) int) {
	stats, err := r.stats.LoadStats(ctx, msg.Chat.ID)
	if err != nil {
		r.log.Error("load stats failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		r.reply(msg, textLoadFailed)
		return
	}
	rows := positive(domain.Top(stats.Metric(metric), topSize))
	names := displayNames(ctx, r.names, stats, rankedIDs(rows))
	r.reply(msg, topText(title, rows, names, unit))
}

// handleTopDays ranks the last days that already ended,
// shifted back by skip days.
func (r *Router) handleTopDays(ctx context.Context, msg *tgbotapi.Message, title string, days, skip int) {
	today := r.cal.Today()
	r.topHistory(ctx, msg, title, today.AddDate(0, 0, -days-skip), today.AddDate(0, 0, -1-skip))
}

func (r *Router) handleTopPeriod(ctx context.Context, msg *tgbotapi.Message, args []string) {
	from, to, err := parsePeriod(args, r.cal.Location())
	if err != nil {
		r.reply(msg, usageText(err))
		return
	}
	title := fmt.Sprintf("📆 Top from %s to %s", from.Format("02.01.2006"), to.Format("02.01.2006"))
	r.topHistory(ctx, msg, title, from, to)
}

func (r *Router) topHistory(ctx context.Context, msg *tgbotapi.Message, title string, from, to time.Time) {
	if r.history == nil {
		r.reply(msg, "Period statistics are not available.")
		return
	}
	sums, err := r.history.SumHours(ctx, msg.Chat.ID, from, to)
	if err != nil {
		r.log.Error("sum hours failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		r.reply(msg, textLoadFailed)
		return
	}
	rows := positive(domain.Top(sums, topSize))
	names := displayNames(ctx, r.names, r.chatStats(ctx, msg.Chat.ID), rankedIDs(rows))
	r.reply(msg, topText(title, rows, names, "hours"))
}

// resolveTarget picks the user an admin command addresses: the author of the
// replied message, otherwise the first argument. The remaining arguments are returned.
func (r *Router) resolveTarget(ctx context.Context, msg *tgbotapi.Message, args []string, stats domain.Stats) (int64, []string, error) {
	if rep := msg.ReplyToMessage; rep != nil && rep.From != nil && !rep.From.IsBot {
		return rep.From.ID, args, nil
	}
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w: name a user by @username or id, or reply to their message", errUsage)
	}
	id, username, err := parseUserRef(args[0])
	if err != nil {
		return 0, nil, err
	}
	if username == "" {
		return id, args[1:], nil
	}

	ids := make([]int64, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		_, un, err := r.names.Lookup(ctx, id)
		if err != nil {
			continue
		}
		if strings.EqualFold(un, username) {
			return id, args[1:], nil
		}
	}
	return 0, nil, fmt.Errorf("%w: @%s", errUnknownUser, username)
}

func usageText(err error) string {
	switch {
	case errors.Is(err, errUnknownUser):
		return "I do not know this user. They need to appear in the statistics first."
	case errors.Is(err, errUsage):
		return "Usage error: " + strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	}
	return err.Error()
}

func (r *Router) handleResetStat(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg, textNoAccess)
		return
	}
	stats := r.chatStats(ctx, msg.Chat.ID)
	target, _, err := r.resolveTarget(ctx, msg, args, stats)
	if err != nil {
		r.reply(msg, usageText(err))
		return
	}
	r.setPending(pendingKey{chatID: msg.Chat.ID, userID: msg.From.ID}, target)
	name := displayNames(ctx, r.names, stats, []int64{target})[target]
	r.reply(msg, fmt.Sprintf("Reset all statistics of %s and remove them from every schedule? Answer yes or no.", name))
}

func (r *Router) handleResetConfirm(ctx context.Context, msg *tgbotapi.Message, key pendingKey, text string) {
	target, ok := r.takePending(key)
	if !ok {
		return
	}
	if !strings.EqualFold(text, "yes") {
		r.reply(msg, "Reset cancelled.")
		return
	}
	if err := r.resetUser(ctx, msg.Chat.ID, target); err != nil {
		r.log.Error("reset user failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID), zap.Int64("user_id", target))
		r.reply(msg, "The reset did not complete. Please check the schedules and try again.")
		return
	}
	r.log.Info("user reset", zap.Int64("chat_id", msg.Chat.ID), zap.Int64("user_id", target), zap.Int64("admin_id", msg.From.ID))
	r.reply(msg, "Statistics reset.")
}

// resetUser removes userID from every schedule of the chat and drops their record.
func (r *Router) resetUser(ctx context.Context, chatID, userID int64) error {
	var errs []error
	for _, kind := range domain.Kinds {
		doc, err := r.schedules.LoadSchedule(ctx, chatID, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if doc.RemoveUser(userID) {
			if err := r.schedules.SaveSchedule(ctx, chatID, kind, doc); err != nil {
				errs = append(errs, err)
			}
		}
	}
	stats, err := r.stats.LoadStats(ctx, chatID)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	if _, ok := stats[userID]; ok {
		delete(stats, userID)
		if err := r.stats.SaveStats(ctx, chatID, stats); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
