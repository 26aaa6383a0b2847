package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/skins"
)

func walletErrText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotEnoughCurrency):
		return "Not enough " + currencyName + "."
	case errors.Is(err, domain.ErrNameLength):
		return "The name must be 3 to 20 characters long."
	case errors.Is(err, domain.ErrNameSpaces):
		return "The name must not contain spaces."
	case errors.Is(err, domain.ErrNameTaken):
		return "This name is already taken."
	case errors.Is(err, domain.ErrBadGender):
		return "Choose one of: " + strings.Join(domain.Genders, ", ") + "."
	case errors.Is(err, domain.ErrSkinNotOwned):
		return "You do not own this skin. Buy it with /buy_skin first."
	case errors.Is(err, domain.ErrSkinOwned):
		return "You already own this skin. Use /change_skin to wear it."
	case errors.Is(err, domain.ErrAnonymous):
		return "Anonymous admins cannot earn " + currencyName + "."
	}
	return "Something went wrong."
}

// mutateStats loads the chat's statistics, applies fn and saves on success.
// A load failure aborts without writing, so a damaged file is never overwritten.
func (r *Router) mutateStats(ctx context.Context, msg *tgbotapi.Message, fn func(domain.Stats) (string, error)) {
	chatID := msg.Chat.ID
	stats, err := r.stats.LoadStats(ctx, chatID)
	if err != nil {
		r.log.Error("load stats failed", zap.Error(err), zap.Int64("chat_id", chatID))
		r.reply(msg, textLoadFailed)
		return
	}
	text, err := fn(stats)
	if err != nil {
		r.reply(msg, text)
		return
	}
	if err := r.stats.SaveStats(ctx, chatID, stats); err != nil {
		r.reply(msg, textSaveFailed)
		return
	}
	r.reply(msg, text)
}

func (r *Router) handleEarn(ctx context.Context, msg *tgbotapi.Message) {
	now := r.cal.Now()
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		hours := 0
		if u, ok := stats[msg.From.ID]; ok {
			hours = u.Yesterday
		}
		earned, err := domain.Earn(stats, msg.From.ID, now, 0.7+r.rng()*0.8)
		if errors.Is(err, domain.ErrAlreadyEarned) {
			return fmt.Sprintf("You have already earned today. Come back in %s.", formatWait(domain.UntilMidnight(now))), err
		}
		if err != nil {
			return walletErrText(err), err
		}
		return fmt.Sprintf("You earned %d %s for %d hours yesterday. Balance: %d %s.",
			earned, currencyName, hours, stats[msg.From.ID].Currency, currencyName), nil
	})
}

func (r *Router) handleMoney(ctx context.Context, msg *tgbotapi.Message, args []string, set bool) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg, textNoAccess)
		return
	}
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		target, rest, err := r.resolveTarget(ctx, msg, args, stats)
		if err != nil {
			return usageText(err), err
		}
		if len(rest) != 1 {
			return "Usage: /" + msg.Command() + " <@user|id> <amount>, or reply with /" + msg.Command() + " <amount>", errUsage
		}
		amount, err := strconv.Atoi(rest[0])
		if err != nil || (set && amount < 0) {
			return "The amount must be a whole number.", errUsage
		}
		u := stats.User(target)
		if set {
			u.Currency = amount
		} else {
			u.Currency = max(u.Currency+amount, 0)
		}
		r.log.Info("balance changed", zap.Int64("chat_id", msg.Chat.ID), zap.Int64("user_id", target), zap.Int("balance", u.Currency))
		name := displayNames(ctx, r.names, stats, []int64{target})[target]
		return fmt.Sprintf("Balance of %s: %d %s.", name, u.Currency, currencyName), nil
	})
}

func (r *Router) handleSetName(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		if err := domain.SetName(stats, msg.From.ID, name); err != nil {
			return walletErrText(err), err
		}
		return fmt.Sprintf("Your name is now %s.", name), nil
	})
}

func (r *Router) handleSetGender(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) != 1 {
		r.reply(msg, walletErrText(domain.ErrBadGender))
		return
	}
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		if err := domain.SetGender(stats, msg.From.ID, args[0]); err != nil {
			return walletErrText(err), err
		}
		return "Gender saved: " + stats[msg.From.ID].Gender + ".", nil
	})
}

func (r *Router) handleShop(_ context.Context, msg *tgbotapi.Message, args []string) {
	category, page, err := parseShopArgs(args)
	if err != nil {
		r.reply(msg, usageText(err))
		return
	}
	if category == "" {
		r.reply(msg, shopCategoriesText())
		return
	}
	names, pages, err := r.skins.Page(category, page)
	if err != nil {
		r.log.Error("list skins failed", zap.Error(err), zap.String("category", category))
		r.reply(msg, "The shop is unavailable right now.")
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, shopPageText(category, names, page, pages))
	if kb := shopPagerKeyboard(category, page, pages); kb != nil {
		out.ReplyMarkup = *kb
	}
	_, _ = r.bot.Send(out)
}

func (r *Router) handleShopCallback(_ context.Context, cb *tgbotapi.CallbackQuery) {
	_ = r.answerCallback(cb.ID, "")
	category, page, ok := parseShopData(cb.Data)
	if !ok {
		return
	}
	names, pages, err := r.skins.Page(category, page)
	if err != nil {
		r.log.Error("list skins failed", zap.Error(err), zap.String("category", category))
		return
	}
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	text := shopPageText(category, names, page, pages)
	var edit tgbotapi.EditMessageTextConfig
	if kb := shopPagerKeyboard(category, page, pages); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, msgID, text)
	}
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Warn("edit shop page failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// findSkin resolves a skin by file name; it replies and returns false when unknown.
func (r *Router) findSkin(msg *tgbotapi.Message, args []string) (category, name, path string, ok bool) {
	if len(args) != 1 {
		r.reply(msg, "Name exactly one skin, e.g. /"+msg.Command()+" cat.png")
		return "", "", "", false
	}
	category, path, ok = r.skins.Find(args[0])
	if !ok {
		r.reply(msg, "No such skin. Browse them with /shop.")
		return "", "", "", false
	}
	return category, args[0], path, true
}

func (r *Router) handleBuySkin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	category, name, _, ok := r.findSkin(msg, args)
	if !ok {
		return
	}
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		if err := domain.BuySkin(stats, msg.From.ID, category, name); err != nil {
			return walletErrText(err), err
		}
		return fmt.Sprintf("You bought %s and are wearing it now.", name), nil
	})
}

func (r *Router) handleChangeSkin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	category, name, _, ok := r.findSkin(msg, args)
	if !ok {
		return
	}
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		if err := domain.ChangeSkin(stats, msg.From.ID, category, name); err != nil {
			return walletErrText(err), err
		}
		return fmt.Sprintf("You are wearing %s now.", name), nil
	})
}

func (r *Router) handlePreviewSkin(_ context.Context, msg *tgbotapi.Message, args []string) {
	_, name, path, ok := r.findSkin(msg, args)
	if !ok {
		return
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(path))
	photo.Caption = name
	photo.ReplyToMessageID = msg.MessageID
	if _, err := r.bot.Send(photo); err != nil {
		r.log.Warn("send preview failed", zap.Error(err), zap.String("skin", name))
	}
}

func (r *Router) handleSetSkin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if !r.isAdmin(msg.From.ID) {
		r.reply(msg, textNoAccess)
		return
	}
	r.mutateStats(ctx, msg, func(stats domain.Stats) (string, error) {
		target, rest, err := r.resolveTarget(ctx, msg, args, stats)
		if err != nil {
			return usageText(err), err
		}
		if len(rest) != 2 || !skins.IsCategory(rest[0]) {
			return "Usage: /set_skin <@user|id> <" + strings.Join(skins.Categories, "|") + "> <name>", errUsage
		}
		category, _, ok := r.skins.Find(rest[1])
		if !ok || category != rest[0] {
			return "No such skin in this category.", errUsage
		}
		domain.GrantSkin(stats, target, category, rest[1])
		name := displayNames(ctx, r.names, stats, []int64{target})[target]
		return fmt.Sprintf("%s is wearing %s now.", name, rest[1]), nil
	})
}
