package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/duty-bot/internal/domain"
)

const (
	unknownName   = "unknown"
	emptySlot     = "–"
	lookupWorkers = 8
)

// NameResolver looks up a Telegram user's first name and username.
type NameResolver interface {
	Lookup(ctx context.Context, userID int64) (first, username string, err error)
}

// ChatNames resolves names through getChat.
type ChatNames struct {
	Bot Bot
}

func (c ChatNames) Lookup(_ context.Context, userID int64) (string, string, error) {
	chat, err := c.Bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: userID}})
	if err != nil {
		return "", "", err
	}
	return chat.FirstName, chat.UserName, nil
}

// displayNames returns a name for every id. A custom name from stats wins;
// otherwise the shortened first name; "unknown" when the lookup fails.
func displayNames(ctx context.Context, res NameResolver, stats domain.Stats, ids []int64) map[int64]string {
	out := make(map[int64]string, len(ids))
	var lookup []int64
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		if u, ok := stats[id]; ok && u.Name != "" {
			out[id] = u.Name
			continue
		}
		out[id] = unknownName
		lookup = append(lookup, id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupWorkers)
	for _, id := range lookup {
		id := id
		g.Go(func() error {
			first, _, err := res.Lookup(gctx, id)
			if err != nil || first == "" {
				return nil
			}
			mu.Lock()
			out[id] = domain.ShortName(first)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// renderSchedule formats a document as the message body shown in the chat.
func renderSchedule(ctx context.Context, res NameResolver, stats domain.Stats, label string, s domain.Schedule) string {
	slots := s.Slots()
	var ids []int64
	for _, slot := range slots {
		ids = append(ids, s[slot]...)
	}
	names := displayNames(ctx, res, stats, ids)

	var b strings.Builder
	fmt.Fprintf(&b, "Duty schedule for %s\n\n", label)
	for _, slot := range slots {
		users := s[slot]
		if len(users) == 0 {
			fmt.Fprintf(&b, "%s – %s\n", slot, emptySlot)
			continue
		}
		parts := make([]string, len(users))
		for i, id := range users {
			parts[i] = names[id]
		}
		fmt.Fprintf(&b, "%s – %s\n", slot, strings.Join(parts, " – "))
	}
	return b.String()
}

// whoName names the author of a command, preferring the custom name.
func whoName(stats domain.Stats, u *tgbotapi.User) string {
	if s, ok := stats[u.ID]; ok && s.Name != "" {
		return s.Name
	}
	if u.FirstName != "" {
		return domain.ShortName(u.FirstName)
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return unknownName
}
