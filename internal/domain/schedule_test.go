package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// helper: build a local midnight in the given tz
func mustLocalDate(t *testing.T, tz string, y int, m time.Month, d int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestIsWeekend(t *testing.T) {
	cases := []struct {
		day  int
		want bool
	}{
		{13, false}, // Tuesday 2025-05-13
		{16, false}, // Friday
		{17, true},  // Saturday
		{18, true},  // Sunday
		{19, false}, // Monday
	}
	for _, c := range cases {
		d := mustLocalDate(t, "Europe/Kyiv", 2025, time.May, c.day)
		if got := IsWeekend(d); got != c.want {
			t.Fatalf("%s: want %v, got %v", d.Format("Mon 02"), c.want, got)
		}
	}
}

func TestCalendar_UsesItsZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	// Friday 22:30 UTC is already Saturday 01:30 in Kyiv (UTC+3 in May).
	now := time.Date(2025, time.May, 16, 22, 30, 0, 0, time.UTC)
	cal := NewCalendar(loc, func() time.Time { return now })
	if !IsWeekend(cal.Today()) {
		t.Fatalf("want weekend today in Kyiv, got %s", cal.Today().Weekday())
	}
	if got := len(cal.TemplateFor(KindToday)); got != 16 {
		t.Fatalf("want weekend template, got %d slots", got)
	}
}

func TestDefaultSlots(t *testing.T) {
	wd := DefaultSlots(false)
	we := DefaultSlots(true)
	if len(wd) != 10 || wd[0] != "15:00 - 16:00" || wd[9] != MidnightSlot {
		t.Fatalf("unexpected weekday slots: %v", wd)
	}
	if len(we) != 16 || we[0] != "09:00 - 10:00" || we[15] != MidnightSlot {
		t.Fatalf("unexpected weekend slots: %v", we)
	}
	for _, s := range append(wd, we...) {
		if strings.Contains(s, "24:00") {
			t.Fatalf("slot %q uses 24:00", s)
		}
	}
	wd[0] = "mutated"
	if DefaultSlots(false)[0] != "15:00 - 16:00" {
		t.Fatalf("DefaultSlots must return a copy")
	}
}

func TestSchedule_MarshalOrdersMidnightLast(t *testing.T) {
	s := Template(false)
	s["15:00 - 16:00"] = []int64{7, 3}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	if !strings.HasPrefix(got, `{"15:00 - 16:00":[7,3],`) {
		t.Fatalf("unexpected head: %s", got)
	}
	if !strings.HasSuffix(got, `"23:00 - 00:00":[],"00:00 - 01:00":[]}`) {
		t.Fatalf("midnight slot must be last: %s", got)
	}

	var back Schedule
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 10 || len(back["15:00 - 16:00"]) != 2 {
		t.Fatalf("round trip lost data: %v", back)
	}
}

func TestSchedule_CloneIsDeep(t *testing.T) {
	s := Schedule{"09:00 - 10:00": {1}}
	c := s.Clone()
	c["09:00 - 10:00"][0] = 2
	c["10:00 - 11:00"] = nil
	if s["09:00 - 10:00"][0] != 1 || len(s) != 1 {
		t.Fatalf("clone shares state with original: %v", s)
	}
}

func TestSchedule_TallyAndRemoveUser(t *testing.T) {
	s := Schedule{
		"15:00 - 16:00": {1, 2},
		"16:00 - 17:00": {1},
		"17:00 - 18:00": {2, 1},
	}
	tally := s.Tally()
	if tally[1] != 3 || tally[2] != 2 {
		t.Fatalf("unexpected tally: %v", tally)
	}
	if !s.RemoveUser(1) {
		t.Fatalf("want change")
	}
	if s.RemoveUser(1) {
		t.Fatalf("second removal must be a no-op")
	}
	if len(s["17:00 - 18:00"]) != 1 || s["17:00 - 18:00"][0] != 2 {
		t.Fatalf("unexpected slot after removal: %v", s["17:00 - 18:00"])
	}
}
