package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
)

// handleAction posts a hug, kiss or dance with the sender's skin for it.
// Hug and kiss need a target: the replied author or a custom name.
func (r *Router) handleAction(ctx context.Context, msg *tgbotapi.Message, args []string, action string) {
	stats := r.chatStats(ctx, msg.Chat.ID)

	var target string
	if action != "dance" {
		var ok bool
		target, ok = r.actionTarget(ctx, msg, args, stats)
		if !ok {
			r.reply(msg, "Reply to someone's message or give their name, e.g. /"+action+" Captain")
			return
		}
	}

	var gender, skin string
	if u, ok := stats[msg.From.ID]; ok && u != nil {
		gender, skin = u.Gender, u.Skin[action]
	}
	r.log.Debug("action", zap.String("action", action), zap.Int64("chat_id", msg.Chat.ID), zap.Int64("user_id", msg.From.ID))
	r.replyWithSkin(msg, action, skin, actionText(action, whoName(stats, msg.From), gender, target))
}

// actionTarget names the user an interaction addresses.
func (r *Router) actionTarget(ctx context.Context, msg *tgbotapi.Message, args []string, stats domain.Stats) (string, bool) {
	if rep := msg.ReplyToMessage; rep != nil && rep.From != nil && !rep.From.IsBot {
		return whoName(stats, rep.From), true
	}
	if len(args) == 0 {
		return "", false
	}
	name := strings.TrimPrefix(strings.Join(args, " "), "@")
	for _, u := range stats {
		if u != nil && u.Name != "" && strings.EqualFold(u.Name, name) {
			return u.Name, true
		}
	}
	if id, _, err := r.resolveTarget(ctx, msg, args[:1], stats); err == nil {
		return displayNames(ctx, r.names, stats, []int64{id})[id], true
	}
	return "", false
}
