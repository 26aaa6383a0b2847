package domain

import (
	"fmt"
	"time"
)

// Kind identifies one of the four per-chat schedule documents.
type Kind string

const (
	KindToday          Kind = "today"
	KindTomorrow       Kind = "tomorrow"
	KindWeekdayDefault Kind = "weekday_default"
	KindWeekendDefault Kind = "weekend_default"
)

// Kinds lists every schedule kind in a stable order.
var Kinds = []Kind{KindToday, KindTomorrow, KindWeekdayDefault, KindWeekendDefault}

// IsDefault reports whether k is a recurring template rather than a dated rotation.
func (k Kind) IsDefault() bool {
	return k == KindWeekdayDefault || k == KindWeekendDefault
}

// ParseKind validates a stored kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown schedule kind %q", s)
}

// MidnightSlot is the slot that always renders last.
const MidnightSlot = "00:00 - 01:00"

var weekdaySlots = []string{
	"15:00 - 16:00",
	"16:00 - 17:00",
	"17:00 - 18:00",
	"18:00 - 19:00",
	"19:00 - 20:00",
	"20:00 - 21:00",
	"21:00 - 22:00",
	"22:00 - 23:00",
	"23:00 - 00:00",
	"00:00 - 01:00",
}

var weekendSlots = []string{
	"09:00 - 10:00",
	"10:00 - 11:00",
	"11:00 - 12:00",
	"12:00 - 13:00",
	"13:00 - 14:00",
	"14:00 - 15:00",
	"15:00 - 16:00",
	"16:00 - 17:00",
	"17:00 - 18:00",
	"18:00 - 19:00",
	"19:00 - 20:00",
	"20:00 - 21:00",
	"21:00 - 22:00",
	"22:00 - 23:00",
	"23:00 - 00:00",
	"00:00 - 01:00",
}

// DefaultSlots returns a copy of the weekend or weekday slot labels in display order.
func DefaultSlots(weekend bool) []string {
	src := weekdaySlots
	if weekend {
		src = weekendSlots
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Template builds an empty schedule over the weekend or weekday slots.
func Template(weekend bool) Schedule {
	s := make(Schedule)
	for _, slot := range DefaultSlots(weekend) {
		s[slot] = []int64{}
	}
	return s
}

// IsWeekend reports whether d falls on Saturday or Sunday in its own location.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekdayIndex maps d to 0=Monday..6=Sunday.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// SlotLabel returns the label of the slot starting at hour (0..23).
// Hour 23 ends at "00:00", never "24:00".
func SlotLabel(hour int) string {
	if hour == 23 {
		return "23:00 - 00:00"
	}
	return fmt.Sprintf("%02d:00 - %02d:00", hour, hour+1)
}

// Calendar answers "today" and "tomorrow" questions in a fixed zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a Calendar; now defaults to time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the calendar zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the calendar zone.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns local midnight of the current day.
func (c *Calendar) Today() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// Tomorrow returns local midnight of the next day.
func (c *Calendar) Tomorrow() time.Time {
	return c.Today().AddDate(0, 0, 1)
}

// TemplateFor returns the initial document for a kind that has never been saved.
func (c *Calendar) TemplateFor(k Kind) Schedule {
	switch k {
	case KindWeekdayDefault:
		return Template(false)
	case KindWeekendDefault:
		return Template(true)
	case KindTomorrow:
		return Template(IsWeekend(c.Tomorrow()))
	default:
		return Template(IsWeekend(c.Today()))
	}
}

// DefaultKindFor picks the template that seeds a rotation day on date d.
func DefaultKindFor(d time.Time) Kind {
	if IsWeekend(d) {
		return KindWeekendDefault
	}
	return KindWeekdayDefault
}

// DateKey formats a date the way it is stored in bindings and history.
func DateKey(d time.Time) string {
	return d.Format("2006-01-02")
}
