package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/store"
)

// --- Generic helpers ---

func (r *Router) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := r.bot.Send(out); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// chatStats loads statistics for rendering. Failures degrade to an empty set.
func (r *Router) chatStats(ctx context.Context, chatID int64) domain.Stats {
	st, err := r.stats.LoadStats(ctx, chatID)
	if err != nil {
		r.log.Error("load stats failed", zap.Error(err), zap.Int64("chat_id", chatID))
		return domain.Stats{}
	}
	return st
}

// --- Core commands ---

func (r *Router) handleStart(msg *tgbotapi.Message) {
	out := tgbotapi.NewMessage(msg.Chat.ID, startText)
	out.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(out)
}

func (r *Router) handleHelp(msg *tgbotapi.Message) {
	text := helpText
	if r.economy {
		text += helpEconomyText
	}
	if r.isAdmin(msg.From.ID) {
		text += helpAdminText
	}
	r.reply(msg, text)
}

// handleShow posts a schedule and remembers which schedule the message shows.
func (r *Router) handleShow(ctx context.Context, msg *tgbotapi.Message, kind domain.Kind) {
	chatID := msg.Chat.ID
	doc, err := r.schedules.LoadSchedule(ctx, chatID, kind)
	if err != nil {
		r.log.Error("load schedule failed", zap.Error(err), zap.Int64("chat_id", chatID), zap.String("kind", string(kind)))
		r.reply(msg, textLoadFailed)
		return
	}

	text := renderSchedule(ctx, r.names, r.chatStats(ctx, chatID), scheduleLabel(kind, r.cal), doc)
	sent, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		r.log.Error("send schedule failed", zap.Error(err), zap.Int64("chat_id", chatID))
		return
	}

	b := store.Binding{ChatID: chatID, MessageID: sent.MessageID, Kind: kind}
	switch kind {
	case domain.KindToday:
		b.Date = domain.DateKey(r.cal.Today())
	case domain.KindTomorrow:
		b.Date = domain.DateKey(r.cal.Tomorrow())
	}
	if err := r.bindings.BindMessage(ctx, b); err != nil {
		r.log.Warn("bind message failed", zap.Error(err), zap.Int64("chat_id", chatID), zap.Int("message_id", sent.MessageID))
	}
}

// handleEdit applies +/- commands sent as a reply to a posted schedule and
// rewrites that message in place.
func (r *Router) handleEdit(ctx context.Context, msg *tgbotapi.Message, text string) {
	target := msg.ReplyToMessage
	if target == nil {
		return
	}
	chatID := msg.Chat.ID

	b, err := r.bindings.LookupMessage(ctx, chatID, target.MessageID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Error("lookup message failed", zap.Error(err), zap.Int64("chat_id", chatID))
		}
		return
	}
	kind, ok := b.Resolve(r.cal.Today())
	if !ok {
		r.reply(msg, "This schedule is outdated. Request /today or /tomorrow again.")
		return
	}

	edits, errs := domain.ParseEdits(text)
	if len(edits) == 0 {
		if len(errs) > 0 {
			r.reply(msg, textBadHour)
		}
		return
	}

	doc, err := r.schedules.LoadSchedule(ctx, chatID, kind)
	if err != nil {
		r.log.Error("load schedule failed", zap.Error(err), zap.Int64("chat_id", chatID), zap.String("kind", string(kind)))
		r.reply(msg, textLoadFailed)
		return
	}

	userID := msg.From.ID
	// one result per op, in order of first appearance
	var results []domain.EditResult
	var changed []string
	for _, e := range edits {
		res, err := domain.Apply(doc, e, userID, r.isAdmin(userID))
		if errors.Is(err, domain.ErrUnknownSlot) {
			r.reply(msg, unknownSlotText(e.Op, e.Raw))
			return
		}
		if err != nil {
			r.log.Error("apply edit failed", zap.Error(err), zap.String("edit", e.Raw))
			return
		}
		changed = append(changed, res.Changed...)
		results = mergeByOp(results, res)
	}

	dirty := false
	for _, res := range results {
		dirty = dirty || !res.Empty()
	}
	if dirty {
		if err := r.schedules.SaveSchedule(ctx, chatID, kind, doc); err != nil {
			r.reply(msg, textSaveFailed)
			return
		}
	}
	r.log.Info("schedule edited",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.Strings("changed", changed),
	)

	stats := r.chatStats(ctx, chatID)
	body := renderSchedule(ctx, r.names, stats, scheduleLabel(kind, r.cal), doc)
	body += "\n" + confirmationText(whoName(stats, msg.From), results...)
	if len(errs) > 0 {
		body += "\n" + textBadHour
	}
	if _, err := r.bot.Send(tgbotapi.NewEditMessageText(chatID, target.MessageID, body)); err != nil {
		r.log.Warn("edit message failed", zap.Error(err), zap.Int64("chat_id", chatID), zap.Int("message_id", target.MessageID))
		r.reply(msg, textEditFailed)
	}
}

func mergeByOp(results []domain.EditResult, res domain.EditResult) []domain.EditResult {
	for i := range results {
		if results[i].Op == res.Op {
			results[i].Merge(res)
			return results
		}
	}
	return append(results, res)
}

// replyWithSkin answers with the skin picture and text as its caption, or with
// plain text when no skin is worn or its file is gone.
func (r *Router) replyWithSkin(msg *tgbotapi.Message, category, skin, text string) {
	if skin != "" && r.skins != nil {
		if path, ok := r.skins.Path(category, skin); ok {
			photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(path))
			photo.Caption = text
			photo.ReplyToMessageID = msg.MessageID
			_, err := r.bot.Send(photo)
			if err == nil {
				return
			}
			r.log.Warn("send skin failed", zap.Error(err), zap.String("skin", skin))
		}
	}
	r.reply(msg, text)
}

// handleUpdate runs the rollover on demand.
func (r *Router) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg, textNoAccess)
		return
	}
	rep, err := r.rollover.RunAll(ctx)
	if err != nil {
		r.log.Error("manual rollover failed", zap.Error(err))
		r.reply(msg, fmt.Sprintf("Rotation failed: %v", err))
		return
	}
	if len(rep.Failed) > 0 {
		r.reply(msg, fmt.Sprintf(textRolloverFailed, len(rep.Failed)))
		return
	}
	r.reply(msg, textRolloverDone)
}
