package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
	"github.com/ykvlv/duty-bot/internal/scheduler"
	"github.com/ykvlv/duty-bot/internal/skins"
	"github.com/ykvlv/duty-bot/internal/store"
)

type fakeBot struct {
	mu     sync.Mutex
	nextID int
	sent   []tgbotapi.Chattable
	users  map[int64]tgbotapi.Chat
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: 1000 + b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.users[cfg.ChatID]
	if !ok {
		return tgbotapi.Chat{}, errors.New("chat not found")
	}
	return c, nil
}

// last returns the text of the most recent outgoing message or edit.
func (b *fakeBot) last(t *testing.T) (string, tgbotapi.Chattable) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	c := b.sent[len(b.sent)-1]
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text, c
	case tgbotapi.EditMessageTextConfig:
		return m.Text, c
	case tgbotapi.PhotoConfig:
		return m.Caption, c
	}
	return "", c
}

type memBindings struct {
	rows map[[2]int64]store.Binding
}

func (m *memBindings) BindMessage(_ context.Context, b store.Binding) error {
	m.rows[[2]int64{b.ChatID, int64(b.MessageID)}] = b
	return nil
}

func (m *memBindings) LookupMessage(_ context.Context, chatID int64, messageID int) (*store.Binding, error) {
	b, ok := m.rows[[2]int64{chatID, int64(messageID)}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

type memHistory struct {
	sums map[int64]int
	from time.Time
	to   time.Time
}

func (m *memHistory) AddDailyHours(context.Context, int64, time.Time, map[int64]int) error {
	return nil
}

func (m *memHistory) SumHours(_ context.Context, _ int64, from, to time.Time) (map[int64]int, error) {
	m.from, m.to = from, to
	return m.sums, nil
}

type stubRollover struct{ calls int }

func (s *stubRollover) RunAll(context.Context) (scheduler.Report, error) {
	s.calls++
	return scheduler.Report{Chats: 1}, nil
}

const (
	chatID  int64 = -100
	anna    int64 = 11
	boris   int64 = 22
	adminID int64 = 99
)

type env struct {
	r        *Router
	bot      *fakeBot
	files    *store.FileStore
	bindings *memBindings
	history  *memHistory
	rollover *stubRollover
	cal      *domain.Calendar
	skinsDir string
}

// newEnv pins the clock to Wednesday 2025-05-14 12:00 Kyiv.
func newEnv(t *testing.T) *env {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	now := time.Date(2025, time.May, 14, 12, 0, 0, 0, loc)
	cal := domain.NewCalendar(loc, func() time.Time { return now })
	files, err := store.OpenFiles(t.TempDir(), cal, zap.NewNop())
	if err != nil {
		t.Fatalf("open files: %v", err)
	}
	bot := &fakeBot{users: map[int64]tgbotapi.Chat{
		anna:  {ID: anna, FirstName: "Anna Petrenko", UserName: "anna_p"},
		boris: {ID: boris, FirstName: "Boris", UserName: "boris"},
	}}
	e := &env{
		bot:      bot,
		files:    files,
		bindings: &memBindings{rows: map[[2]int64]store.Binding{}},
		history:  &memHistory{},
		rollover: &stubRollover{},
		cal:      cal,
		skinsDir: t.TempDir(),
	}
	e.r = NewRouter(bot, zap.NewNop(), Deps{
		Schedules: files,
		Stats:     files,
		Bindings:  e.bindings,
		History:   e.history,
		Calendar:  cal,
		Rollover:  e.rollover,
		Skins:     skins.New(e.skinsDir),
		Admins:    []int64{adminID},
		Economy:   true,
	})
	e.r.rng = func() float64 { return 0.5 }
	return e
}

var firstNames = map[int64]string{anna: "Anna Petrenko", boris: "Boris", adminID: "Admin"}

func message(from int64, text string) *tgbotapi.Message {
	m := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: firstNames[from]},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return m
}

func (e *env) send(m *tgbotapi.Message) {
	e.r.HandleUpdate(context.Background(), tgbotapi.Update{Message: m})
}

// show posts a schedule and returns the id of the bot's message.
func (e *env) show(t *testing.T, cmd string) int {
	t.Helper()
	e.send(message(anna, cmd))
	_, c := e.bot.last(t)
	if _, ok := c.(tgbotapi.MessageConfig); !ok {
		t.Fatalf("want schedule message, got %T", c)
	}
	return 1000 + e.bot.nextID
}

func (e *env) replyTo(from int64, msgID int, text string) {
	m := message(from, text)
	m.ReplyToMessage = &tgbotapi.Message{MessageID: msgID, Chat: m.Chat}
	e.send(m)
}

func (e *env) schedule(t *testing.T, kind domain.Kind) domain.Schedule {
	t.Helper()
	s, err := e.files.LoadSchedule(context.Background(), chatID, kind)
	if err != nil {
		t.Fatalf("load %s: %v", kind, err)
	}
	return s
}

func TestShowAndEditInPlace(t *testing.T) {
	e := newEnv(t)
	id := e.show(t, "/today")

	b := e.bindings.rows[[2]int64{chatID, int64(id)}]
	if b.Kind != domain.KindToday || b.Date != "2025-05-14" {
		t.Fatalf("unexpected binding: %+v", b)
	}

	e.replyTo(anna, id, "+15-17")
	doc := e.schedule(t, domain.KindToday)
	if doc["15:00 - 16:00"][0] != anna || doc["16:00 - 17:00"][0] != anna {
		t.Fatalf("anna not added: %v", doc)
	}

	text, c := e.bot.last(t)
	edit, ok := c.(tgbotapi.EditMessageTextConfig)
	if !ok || edit.MessageID != id {
		t.Fatalf("want edit of %d, got %T", id, c)
	}
	for _, want := range []string{
		"Duty schedule for 14.05.2025",
		"15:00 - 16:00 – Anna",
		"17:00 - 18:00 – –",
		"Anna was added to the schedule for 15:00 - 17:00.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("edited text misses %q:\n%s", want, text)
		}
	}

	e.replyTo(boris, id, "+16")
	if text, _ := e.bot.last(t); !strings.Contains(text, "16:00 - 17:00 – Anna – Boris") {
		t.Fatalf("names must be joined in insertion order:\n%s", text)
	}
}

func TestEditTomorrowAfterDateMoves(t *testing.T) {
	e := newEnv(t)
	e.bindings.rows[[2]int64{chatID, 500}] = store.Binding{ChatID: chatID, MessageID: 500, Kind: domain.KindTomorrow, Date: "2025-05-14"}
	e.bindings.rows[[2]int64{chatID, 501}] = store.Binding{ChatID: chatID, MessageID: 501, Kind: domain.KindToday, Date: "2025-05-13"}

	// posted yesterday as "tomorrow", it now addresses today
	e.replyTo(anna, 500, "+20")
	if got := e.schedule(t, domain.KindToday)["20:00 - 21:00"]; len(got) != 1 || got[0] != anna {
		t.Fatalf("edit must land on today: %v", got)
	}
	if got := e.schedule(t, domain.KindTomorrow)["20:00 - 21:00"]; len(got) != 0 {
		t.Fatalf("tomorrow must stay untouched: %v", got)
	}

	e.replyTo(anna, 501, "+21")
	if text, _ := e.bot.last(t); !strings.Contains(text, "outdated") {
		t.Fatalf("stale message must be refused, got %q", text)
	}
	if got := e.schedule(t, domain.KindToday)["21:00 - 22:00"]; len(got) != 0 {
		t.Fatalf("stale edit applied: %v", got)
	}
}

func TestEditUnknownSlotIsAtomic(t *testing.T) {
	e := newEnv(t)
	id := e.show(t, "/today")

	e.replyTo(anna, id, "+15, +7-9")
	text, _ := e.bot.last(t)
	if !strings.Contains(text, "+7-9!") {
		t.Fatalf("want force hint, got %q", text)
	}
	if got := e.schedule(t, domain.KindToday)["15:00 - 16:00"]; len(got) != 0 {
		t.Fatalf("nothing may be saved: %v", got)
	}

	e.replyTo(anna, id, "+7-9!")
	doc := e.schedule(t, domain.KindToday)
	if len(doc["07:00 - 08:00"]) != 1 || len(doc["08:00 - 09:00"]) != 1 {
		t.Fatalf("forced add must create slots: %v", doc.Slots())
	}
}

func TestEditIgnoresUnboundReplies(t *testing.T) {
	e := newEnv(t)
	e.replyTo(anna, 777, "+15")
	if len(e.bot.sent) != 0 {
		t.Fatalf("reply to an unknown message must be ignored, sent %d", len(e.bot.sent))
	}
	e.send(message(anna, "+15"))
	if len(e.bot.sent) != 0 {
		t.Fatalf("edit without reply must be ignored")
	}
}

func TestForceRemoveNeedsAdmin(t *testing.T) {
	e := newEnv(t)
	id := e.show(t, "/weekday")

	e.replyTo(anna, id, "-15!")
	if _, ok := e.schedule(t, domain.KindWeekdayDefault)["15:00 - 16:00"]; !ok {
		t.Fatalf("non-admin must not delete slots")
	}
	e.replyTo(adminID, id, "-15!")
	if _, ok := e.schedule(t, domain.KindWeekdayDefault)["15:00 - 16:00"]; ok {
		t.Fatalf("admin must delete the slot")
	}
	if text, _ := e.bot.last(t); !strings.Contains(text, "Deleted hours: 15:00 - 16:00.") {
		t.Fatalf("confirmation must list deleted slot:\n%s", text)
	}
}

func TestUpdateRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.send(message(anna, "/update"))
	if text, _ := e.bot.last(t); text != textNoAccess || e.rollover.calls != 0 {
		t.Fatalf("non-admin ran rollover: %q", text)
	}
	e.send(message(adminID, "/update"))
	if text, _ := e.bot.last(t); text != textRolloverDone || e.rollover.calls != 1 {
		t.Fatalf("admin rollover: %q, calls %d", text, e.rollover.calls)
	}
}

func TestEarnOncePerDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := domain.Stats{}
	st.User(anna).Yesterday = 3
	if err := e.files.SaveStats(ctx, chatID, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	e.send(message(anna, "/earn"))
	got, _ := e.files.LoadStats(ctx, chatID)
	// 3 hours * 10 * (0.7 + 0.5*0.8)
	if got[anna].Currency != 33 {
		t.Fatalf("currency = %d, want 33", got[anna].Currency)
	}

	e.send(message(anna, "/earn"))
	if text, _ := e.bot.last(t); !strings.Contains(text, "Come back in 12h 0m") {
		t.Fatalf("second earn: %q", text)
	}
	got, _ = e.files.LoadStats(ctx, chatID)
	if got[anna].Currency != 33 {
		t.Fatalf("second earn paid out: %d", got[anna].Currency)
	}
}

func TestAdminMoneyByUsername(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	st := domain.Stats{}
	st.User(anna).Total = 1
	st.User(boris).Total = 1
	if err := e.files.SaveStats(ctx, chatID, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	e.send(message(adminID, "/add_money @Boris 50"))
	e.send(message(adminID, "/add_money @boris 25"))
	got, _ := e.files.LoadStats(ctx, chatID)
	if got[boris].Currency != 75 {
		t.Fatalf("boris balance = %d", got[boris].Currency)
	}

	e.send(message(adminID, "/set_money 11 5"))
	got, _ = e.files.LoadStats(ctx, chatID)
	if got[anna].Currency != 5 {
		t.Fatalf("anna balance = %d", got[anna].Currency)
	}

	e.send(message(anna, "/set_money 11 500"))
	if text, _ := e.bot.last(t); text != textNoAccess {
		t.Fatalf("non-admin set money: %q", text)
	}
}

func TestResetStatConfirmation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.show(t, "/tomorrow")
	e.replyTo(anna, id, "+18")
	st, _ := e.files.LoadStats(ctx, chatID)
	st.User(anna).Total = 40
	if err := e.files.SaveStats(ctx, chatID, st); err != nil {
		t.Fatalf("save: %v", err)
	}

	e.send(message(adminID, "/reset_stat 11"))
	e.send(message(adminID, "no"))
	if got, _ := e.files.LoadStats(ctx, chatID); got[anna] == nil {
		t.Fatalf("cancelled reset removed stats")
	}

	e.send(message(adminID, "/reset_stat 11"))
	e.send(message(adminID, "yes"))
	if got, _ := e.files.LoadStats(ctx, chatID); got[anna] != nil {
		t.Fatalf("stats not reset: %+v", got[anna])
	}
	if got := e.schedule(t, domain.KindTomorrow)["18:00 - 19:00"]; len(got) != 0 {
		t.Fatalf("user not removed from tomorrow: %v", got)
	}
}

func TestTopWeekUsesEndedDays(t *testing.T) {
	e := newEnv(t)
	e.history.sums = map[int64]int{anna: 5, boris: 9}
	e.send(message(anna, "/top_week"))

	if domain.DateKey(e.history.from) != "2025-05-07" || domain.DateKey(e.history.to) != "2025-05-13" {
		t.Fatalf("window %s..%s", domain.DateKey(e.history.from), domain.DateKey(e.history.to))
	}
	text, _ := e.bot.last(t)
	if !strings.Contains(text, "1. Boris: 9 hours\n2. Anna: 5 hours") {
		t.Fatalf("unexpected leaderboard:\n%s", text)
	}
}

func TestEconomyDisabled(t *testing.T) {
	e := newEnv(t)
	e.r.economy = false
	e.send(message(anna, "/earn"))
	if text, _ := e.bot.last(t); text != textEconomyOff {
		t.Fatalf("got %q", text)
	}
}

func (e *env) saveStats(t *testing.T, st domain.Stats) {
	t.Helper()
	if err := e.files.SaveStats(context.Background(), chatID, st); err != nil {
		t.Fatalf("save stats: %v", err)
	}
}

func (e *env) addSkin(t *testing.T, category, name string) {
	t.Helper()
	dir := filepath.Join(e.skinsDir, category+"_skins")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
		t.Fatalf("write skin: %v", err)
	}
}

func isText(c tgbotapi.Chattable) bool {
	_, ok := c.(tgbotapi.MessageConfig)
	return ok
}

func TestEditReportsEachOp(t *testing.T) {
	e := newEnv(t)
	id := e.show(t, "/today")
	e.replyTo(anna, id, "+15-17")

	e.replyTo(anna, id, "+19, -16")
	text, _ := e.bot.last(t)
	want := "Anna was added to the schedule for 19:00 - 20:00.\n" +
		"Anna was removed from the schedule for 16:00 - 17:00."
	if !strings.Contains(text, want) {
		t.Fatalf("want separate lines %q in:\n%s", want, text)
	}
}

func TestMyStatShowsProfileSkin(t *testing.T) {
	e := newEnv(t)
	e.addSkin(t, "profile", "cat.png")
	st := domain.Stats{}
	st.User(anna).Total = 4
	st.User(anna).Skin = map[string]string{"profile": "cat.png"}
	st.User(boris).Total = 2
	st.User(boris).Skin = map[string]string{"profile": "gone.png"}
	e.saveStats(t, st)

	e.send(message(anna, "/my_stat"))
	text, c := e.bot.last(t)
	photo, ok := c.(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("want photo, got %T", c)
	}
	if fp, ok := photo.File.(tgbotapi.FilePath); !ok || filepath.Base(string(fp)) != "cat.png" {
		t.Fatalf("unexpected file: %v", photo.File)
	}
	if !strings.Contains(text, "Statistics of Anna") || !strings.Contains(text, "Total: 4 hours") {
		t.Fatalf("caption:\n%s", text)
	}

	// a skin without its file falls back to text
	e.send(message(boris, "/my_stat"))
	if _, c := e.bot.last(t); !isText(c) {
		t.Fatalf("want text, got %T", c)
	}
}

func TestYourStatNeedsAdmin(t *testing.T) {
	e := newEnv(t)
	st := domain.Stats{}
	st.User(boris).Total = 7
	e.saveStats(t, st)

	m := message(anna, "/your_stat")
	m.ReplyToMessage = &tgbotapi.Message{MessageID: 5, From: &tgbotapi.User{ID: boris, FirstName: "Boris"}, Chat: m.Chat}
	e.send(m)
	if text, _ := e.bot.last(t); text != textNoAccess {
		t.Fatalf("non-admin got %q", text)
	}

	e.send(message(adminID, "/your_stat @boris"))
	if text, _ := e.bot.last(t); !strings.Contains(text, "Statistics of Boris") || !strings.Contains(text, "Total: 7 hours") {
		t.Fatalf("admin got:\n%s", text)
	}
}

func TestHugAndKiss(t *testing.T) {
	e := newEnv(t)
	e.addSkin(t, "kiss", "rose.png")
	st := domain.Stats{}
	st.User(anna).Gender = "female"
	st.User(anna).Skin = map[string]string{"kiss": "rose.png"}
	st.User(boris).Name = "Captain"
	e.saveStats(t, st)

	m := message(anna, "/hug")
	m.ReplyToMessage = &tgbotapi.Message{MessageID: 5, From: &tgbotapi.User{ID: boris, FirstName: "Boris"}, Chat: m.Chat}
	e.send(m)
	if text, c := e.bot.last(t); text != "Anna wraps Captain in her arms 🤗" {
		t.Fatalf("hug: %q (%T)", text, c)
	}

	e.send(message(anna, "/kiss captain"))
	text, c := e.bot.last(t)
	if _, ok := c.(tgbotapi.PhotoConfig); !ok || text != "Anna plants her kiss on Captain 😘" {
		t.Fatalf("kiss: %q (%T)", text, c)
	}

	e.send(message(boris, "/hug"))
	if text, _ := e.bot.last(t); !strings.HasPrefix(text, "Reply to someone's message") {
		t.Fatalf("hug without target: %q", text)
	}

	e.send(message(boris, "/dance"))
	if text, _ := e.bot.last(t); text != "Captain shows off their best moves 💃" {
		t.Fatalf("dance: %q", text)
	}
}

func TestTopPreviousWindows(t *testing.T) {
	e := newEnv(t)
	e.history.sums = map[int64]int{anna: 2}
	for _, tc := range []struct {
		cmd, from, to string
	}{
		{"/top_last_week", "2025-04-30", "2025-05-06"},
		{"/top_month", "2025-04-14", "2025-05-13"},
		{"/top_last_month", "2025-03-15", "2025-04-13"},
	} {
		e.send(message(anna, tc.cmd))
		if got := domain.DateKey(e.history.from) + ".." + domain.DateKey(e.history.to); got != tc.from+".."+tc.to {
			t.Fatalf("%s window %s", tc.cmd, got)
		}
	}

	st := domain.Stats{}
	st.User(boris).Total = 3
	e.saveStats(t, st)
	e.send(message(anna, "/top"))
	if text, _ := e.bot.last(t); !strings.Contains(text, "1. Boris: 3 hours") {
		t.Fatalf("/top:\n%s", text)
	}
}

func TestAddMoneyFloorsAtZero(t *testing.T) {
	e := newEnv(t)
	st := domain.Stats{}
	st.User(boris).Currency = 30
	e.saveStats(t, st)

	e.send(message(adminID, "/add_money 22 -50"))
	got, _ := e.files.LoadStats(context.Background(), chatID)
	if got[boris].Currency != 0 {
		t.Fatalf("balance = %d, want 0", got[boris].Currency)
	}
	if text, _ := e.bot.last(t); !strings.Contains(text, ": 0 ") {
		t.Fatalf("reply: %q", text)
	}
}
