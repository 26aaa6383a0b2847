package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/skins"
)

// UI texts in English
const (
	startText = "👋 I keep the duty schedule of this chat.\n\n" +
		"Use /today, /tomorrow and /default to see schedules. " +
		"Reply to a schedule with +9-12 to sign up or -9-12 to drop out.\n" +
		"See /help for everything else."

	helpText = "📋 Schedules\n" +
		"/today, /tomorrow: rotation days\n" +
		"/default: template for today's kind of day\n" +
		"/weekday, /weekend: recurring templates\n" +
		"Reply to a schedule with:\n" +
		"  +9 or +9-12 to sign up, -9 or -9-12 to drop out\n" +
		"  a trailing ! creates missing hours (+7-9!); admins can delete hours with -7!\n" +
		"  several edits at once: +9-11, -15\n\n" +
		"📊 Statistics\n" +
		"/stat, /my_stat\n" +
		"/top, /top_yesterday, /top_week, /top_last_week, /top_month, /top_last_month\n" +
		"/top_period YYYY-MM-DD YYYY-MM-DD\n\n" +
		"🫂 Fun\n" +
		"/hug, /kiss (reply to someone or give their name), /dance\n"

	helpEconomyText = "\n✨ Shine\n" +
		"/earn once a day for yesterday's hours\n" +
		"/top_earners, /set_name <name>, /set_gender <male|female>\n" +
		"/shop [category] [page], /buy_skin <name>, /change_skin <name>, /preview_skin <name>\n"

	helpAdminText = "\n🛠 Admins\n" +
		"/update forces the daily rollover\n" +
		"/your_stat <@user|id> (or reply to someone)\n" +
		"/add_money, /set_money <@user|id> <amount> (or reply with <amount>)\n" +
		"/set_skin <@user|id> <category> <name>\n" +
		"/reset_stat <@user|id>\n"

	currencyName = "shine✨"

	textNoAccess       = "You do not have access to this command."
	textBadHour        = "Please enter a valid hour or range (0-24), e.g. +9 or +9-12."
	textLoadFailed     = "Could not read the schedule. Please try again later."
	textSaveFailed     = "The change may not have been saved. Please check the schedule."
	textEditFailed     = "Could not update the message. Please request the schedule again."
	textNoStats        = "You have no statistics yet."
	textNoStatsChat    = "No statistics for this chat yet."
	textEconomyOff     = "The shine economy is disabled in this chat."
	textRolloverDone   = "Schedules rotated."
	textRolloverFailed = "Rotation finished with errors for %d chat(s)."
)

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func scheduleLabel(kind domain.Kind, cal *domain.Calendar) string {
	switch kind {
	case domain.KindToday:
		return cal.Today().Format("02.01.2006")
	case domain.KindTomorrow:
		return cal.Tomorrow().Format("02.01.2006")
	case domain.KindWeekdayDefault:
		return "default schedule (weekday)"
	case domain.KindWeekendDefault:
		return "default schedule (weekend)"
	}
	return "unknown schedule"
}

func unknownSlotText(op domain.Op, raw string) string {
	verb := "add"
	if op == domain.OpRemove {
		verb = "remove"
	}
	return fmt.Sprintf("Some of these hours are not in the schedule. To %s hours that do not exist, end the command with !, e.g. %s!",
		verb, strings.TrimSuffix(raw, "!"))
}

// confirmationText reports each edit result on its own line.
func confirmationText(who string, results ...domain.EditResult) string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, resultText(who, res))
	}
	return strings.Join(lines, "\n")
}

func resultText(who string, res domain.EditResult) string {
	var b strings.Builder
	if from, to, ok := res.Span(); ok {
		if res.Op == domain.OpAdd {
			fmt.Fprintf(&b, "%s was added to the schedule for %s - %s.", who, from, to)
		} else {
			fmt.Fprintf(&b, "%s was removed from the schedule for %s - %s.", who, from, to)
		}
	} else if res.Op == domain.OpAdd {
		b.WriteString("No hours were added.")
	} else {
		b.WriteString("No hours were removed.")
	}
	if len(res.Created) > 0 {
		fmt.Fprintf(&b, "\nNew hours: %s.", strings.Join(res.Created, ", "))
	}
	if len(res.Deleted) > 0 {
		fmt.Fprintf(&b, "\nDeleted hours: %s.", strings.Join(res.Deleted, ", "))
	}
	return b.String()
}

// possessive picks the pronoun for a user's gender.
func possessive(gender string) string {
	switch gender {
	case "male":
		return "his"
	case "female":
		return "her"
	}
	return "their"
}

// actionText describes an interaction. target is ignored for dance.
func actionText(action, who, gender, target string) string {
	switch action {
	case "hug":
		return fmt.Sprintf("%s wraps %s in %s arms 🤗", who, target, possessive(gender))
	case "kiss":
		return fmt.Sprintf("%s plants %s kiss on %s 😘", who, possessive(gender), target)
	case "dance":
		return fmt.Sprintf("%s shows off %s best moves 💃", who, possessive(gender))
	}
	return ""
}

func userStatsText(name string, u *domain.UserStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics of %s:\n", name)
	fmt.Fprintf(&b, "Total: %d hours\n", u.Total)
	if u.Yesterday > 0 {
		fmt.Fprintf(&b, "Yesterday: %d hours\n", u.Yesterday)
	}
	if u.Currency > 0 {
		fmt.Fprintf(&b, "Balance: %d %s\n", u.Currency, currencyName)
	}
	if u.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", u.Gender)
	}
	for _, cat := range skins.Categories {
		if s := u.Skin[cat]; s != "" {
			fmt.Fprintf(&b, "Skin (%s): %s\n", cat, s)
		}
	}
	b.WriteString("\nBy weekday:\n")
	for i, day := range weekdayNames {
		fmt.Fprintf(&b, "%s: %d hours\n", day, u.DailyHours(i))
	}
	return b.String()
}

func topText(title string, rows []domain.Ranked, names map[int64]string, unit string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString("Nobody yet.\n")
	}
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. %s: %d %s\n", i+1, names[row.UserID], row.Value, unit)
	}
	return b.String()
}

func shopCategoriesText() string {
	var b strings.Builder
	b.WriteString("Choose a category:\n")
	for _, c := range skins.Categories {
		fmt.Fprintf(&b, "/shop %s\n", c)
	}
	return b.String()
}

func shopPageText(category string, names []string, page, pages int) string {
	var b strings.Builder
	if len(names) == 0 {
		return fmt.Sprintf("No %s skins on this page.", category)
	}
	fmt.Fprintf(&b, "Skins for %s (page %d of %d):\n", category, page+1, pages)
	for _, n := range names {
		fmt.Fprintf(&b, "%s: %d %s\n", n, domain.SkinCost, currencyName)
	}
	b.WriteString("\nUse /buy_skin <name> to buy, /preview_skin <name> to look first.")
	return b.String()
}

// mainMenuKeyboard builds a reply keyboard with the schedule commands.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/today"),
			tgbotapi.NewKeyboardButton("/tomorrow"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/default"),
			tgbotapi.NewKeyboardButton("/my_stat"),
		),
	)
}

// shopPagerKeyboard offers previous/next buttons; nil when there is one page.
func shopPagerKeyboard(category string, page, pages int) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if page > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", fmt.Sprintf("shop:%s:%d", category, page-1)))
	}
	if page < pages-1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("shop:%s:%d", category, page+1)))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
