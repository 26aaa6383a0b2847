package store

import (
	"errors"
	"time"

	"github.com/ykvlv/duty-bot/internal/domain"
)

// ErrNotFound is returned when a lookup has no row.
var ErrNotFound = errors.New("not found")

// Binding ties a posted Telegram message to a schedule kind.
// Date is set for today/tomorrow renderings and empty for templates.
type Binding struct {
	ChatID    int64
	MessageID int
	Kind      domain.Kind
	Date      string
	CreatedAt time.Time
}

// Resolve maps a binding to the kind it addresses now, given today's date.
// A dated binding from another day no longer addresses anything.
func (b Binding) Resolve(today time.Time) (domain.Kind, bool) {
	if b.Kind.IsDefault() {
		return b.Kind, true
	}
	switch b.Date {
	case domain.DateKey(today):
		return domain.KindToday, true
	case domain.DateKey(today.AddDate(0, 0, 1)):
		return domain.KindTomorrow, true
	}
	return "", false
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
