package telegram

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/scheduler"
	"github.com/ykvlv/duty-bot/internal/skins"
	"github.com/ykvlv/duty-bot/internal/store"
)

// Bot is the part of the Telegram client the router uses. *tgbotapi.BotAPI satisfies it.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

// Rollover is the job behind /update.
type Rollover interface {
	RunAll(ctx context.Context) (scheduler.Report, error)
}

// Deps groups what the router needs besides the bot.
type Deps struct {
	Schedules store.ScheduleRepo
	Stats     store.StatsRepo
	Bindings  store.BindingRepo
	History   store.HistoryRepo
	Calendar  *domain.Calendar
	Rollover  Rollover
	Skins     *skins.Catalog
	Admins    []int64
	Economy   bool
}

type pendingKey struct {
	chatID int64
	userID int64
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot       Bot
	log       *zap.Logger
	schedules store.ScheduleRepo
	stats     store.StatsRepo
	bindings  store.BindingRepo
	history   store.HistoryRepo
	cal       *domain.Calendar
	rollover  Rollover
	skins     *skins.Catalog
	names     NameResolver
	admins    map[int64]bool
	economy   bool
	rng       func() float64

	state map[pendingKey]int64 // admin awaiting /reset_stat confirmation -> target
	mu    sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot Bot, log *zap.Logger, d Deps) *Router {
	admins := make(map[int64]bool, len(d.Admins))
	for _, id := range d.Admins {
		admins[id] = true
	}
	return &Router{
		bot:       bot,
		log:       log,
		schedules: d.Schedules,
		stats:     d.Stats,
		bindings:  d.Bindings,
		history:   d.History,
		cal:       d.Calendar,
		rollover:  d.Rollover,
		skins:     d.Skins,
		names:     ChatNames{Bot: bot},
		admins:    admins,
		economy:   d.Economy,
		rng:       rand.Float64,
		state:     make(map[pendingKey]int64),
	}
}

func (r *Router) isAdmin(userID int64) bool {
	return r.admins[userID]
}

// setPending remembers that an admin must confirm a reset of target.
func (r *Router) setPending(k pendingKey, target int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[k] = target
}

// takePending returns and clears the pending reset for k.
func (r *Router) takePending(k pendingKey) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.state[k]
	delete(r.state, k)
	return target, ok
}

func (r *Router) hasPending(k pendingKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.state[k]
	return ok
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil && upd.Message.From != nil {
		msg := upd.Message
		if msg.IsCommand() {
			r.handleCommand(ctx, msg)
			return
		}

		text := strings.TrimSpace(msg.Text)
		key := pendingKey{chatID: msg.Chat.ID, userID: msg.From.ID}
		switch {
		case r.hasPending(key):
			r.handleResetConfirm(ctx, msg, key, text)
		case strings.HasPrefix(text, "+"), strings.HasPrefix(text, "-"):
			r.handleEdit(ctx, msg, text)
		}
		return
	}

	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cb := upd.CallbackQuery
		switch {
		case strings.HasPrefix(cb.Data, "shop:"):
			r.handleShopCallback(ctx, cb)
		default:
			_ = r.answerCallback(cb.ID, "")
		}
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		r.handleStart(msg)
	case "help":
		r.handleHelp(msg)
	case "today":
		r.handleShow(ctx, msg, domain.KindToday)
	case "tomorrow":
		r.handleShow(ctx, msg, domain.KindTomorrow)
	case "default":
		r.handleShow(ctx, msg, domain.DefaultKindFor(r.cal.Today()))
	case "weekday":
		r.handleShow(ctx, msg, domain.KindWeekdayDefault)
	case "weekend":
		r.handleShow(ctx, msg, domain.KindWeekendDefault)
	case "update":
		r.handleUpdate(ctx, msg)

	case "stat":
		r.handleChatStats(ctx, msg)
	case "my_stat":
		r.handleUserStats(ctx, msg, msg.From.ID, msg.From)
	case "your_stat":
		r.handleYourStat(ctx, msg, args)
	case "top", "top_workers":
		r.handleTopMetric(ctx, msg, "🏆 Top workers", "hours", func(u *domain.UserStats) int { return u.Total })
	case "top_yesterday":
		r.handleTopMetric(ctx, msg, "🌙 Top of yesterday", "hours", func(u *domain.UserStats) int { return u.Yesterday })
	case "top_week":
		r.handleTopDays(ctx, msg, "📅 Top of the week", 7, 0)
	case "top_last_week":
		r.handleTopDays(ctx, msg, "📅 Top of the previous week", 7, 7)
	case "top_month":
		r.handleTopDays(ctx, msg, "🗓 Top of the month", 30, 0)
	case "top_last_month":
		r.handleTopDays(ctx, msg, "🗓 Top of the previous month", 30, 30)
	case "top_period":
		r.handleTopPeriod(ctx, msg, args)
	case "reset_stat":
		r.handleResetStat(ctx, msg, args)
	case "hug":
		r.handleAction(ctx, msg, args, "hug")
	case "kiss":
		r.handleAction(ctx, msg, args, "kiss")
	case "dance":
		r.handleAction(ctx, msg, args, "dance")

	case "earn", "top_earners", "add_money", "set_money", "set_name", "set_gender",
		"shop", "buy_skin", "change_skin", "preview_skin", "set_skin":
		if !r.economy {
			r.reply(msg, textEconomyOff)
			return
		}
		r.handleEconomy(ctx, msg, args)
	}
}

func (r *Router) handleEconomy(ctx context.Context, msg *tgbotapi.Message, args []string) {
	switch msg.Command() {
	case "earn":
		r.handleEarn(ctx, msg)
	case "top_earners":
		r.handleTopMetric(ctx, msg, "💰 Top earners", currencyName, func(u *domain.UserStats) int { return u.Currency })
	case "add_money":
		r.handleMoney(ctx, msg, args, false)
	case "set_money":
		r.handleMoney(ctx, msg, args, true)
	case "set_name":
		r.handleSetName(ctx, msg)
	case "set_gender":
		r.handleSetGender(ctx, msg, args)
	case "shop":
		r.handleShop(ctx, msg, args)
	case "buy_skin":
		r.handleBuySkin(ctx, msg, args)
	case "change_skin":
		r.handleChangeSkin(ctx, msg, args)
	case "preview_skin":
		r.handlePreviewSkin(ctx, msg, args)
	case "set_skin":
		r.handleSetSkin(ctx, msg, args)
	}
}
