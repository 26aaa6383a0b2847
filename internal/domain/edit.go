package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNotAnEdit   = errors.New("not an edit command")
	ErrBadHour     = errors.New("invalid hour")
	ErrBadRange    = errors.New("invalid hour range")
	ErrUnknownSlot = errors.New("slot does not exist")
)

// Op is the direction of an edit.
type Op int

const (
	OpAdd Op = iota
	OpRemove
)

// Edit is one parsed "+H", "-H1-H2!" style command.
type Edit struct {
	Op    Op
	Start int // first hour, 0..23
	End   int // exclusive end hour
	Force bool
	Raw   string
}

// Slots enumerates the labels covered by the edit.
func (e Edit) Slots() []string {
	out := make([]string, 0, e.End-e.Start)
	for h := e.Start; h < e.End; h++ {
		out = append(out, SlotLabel(h%24))
	}
	return out
}

// Hours accept an optional ":MM" tail, which is ignored.
var editRe = regexp.MustCompile(`^([+-])\s*(-?\d{1,3})(?::\d{2})?(?:\s*-\s*(-?\d{1,3})(?::\d{2})?)?\s*(!)?$`)

// ParseEdit parses a single edit command.
func ParseEdit(s string) (Edit, error) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '+' && s[0] != '-') {
		return Edit{}, ErrNotAnEdit
	}
	m := editRe.FindStringSubmatch(s)
	if m == nil {
		return Edit{}, fmt.Errorf("%w: %q", ErrBadHour, s)
	}

	e := Edit{Raw: s, Force: m[4] == "!"}
	if m[1] == "-" {
		e.Op = OpRemove
	}

	start, err := strconv.Atoi(m[2])
	if err != nil {
		return Edit{}, fmt.Errorf("%w: %q", ErrBadHour, m[2])
	}

	if m[3] == "" {
		if start < 0 {
			start += 24
		}
		if start == 24 {
			start = 0
		}
		if start < 0 || start > 23 {
			return Edit{}, fmt.Errorf("%w: %d", ErrBadHour, start)
		}
		e.Start, e.End = start, start+1
		return e, nil
	}

	end, err := strconv.Atoi(m[3])
	if err != nil {
		return Edit{}, fmt.Errorf("%w: %q", ErrBadHour, m[3])
	}
	if start < 0 {
		start += 24
	}
	if end < 0 {
		end += 24
	}
	if start < 0 || end > 24 || start >= end {
		return Edit{}, fmt.Errorf("%w: %d-%d", ErrBadRange, start, end)
	}
	e.Start, e.End = start, end
	return e, nil
}

// ParseEdits splits a message on commas and parses every operation.
// Valid edits are returned even when some parts fail; failures are returned alongside.
func ParseEdits(s string) ([]Edit, []error) {
	var (
		edits []Edit
		errs  []error
	)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e, err := ParseEdit(part)
		if errors.Is(err, ErrNotAnEdit) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		edits = append(edits, e)
	}
	return edits, errs
}

// EditResult describes what Apply did to a document.
type EditResult struct {
	Op      Op
	Changed []string // slots whose membership changed, in command order
	Created []string // slots created by a forced add
	Deleted []string // slots deleted by a forced remove
}

// Empty reports whether nothing at all happened.
func (r EditResult) Empty() bool {
	return len(r.Changed) == 0 && len(r.Created) == 0 && len(r.Deleted) == 0
}

// Span returns the start of the first and the end of the last changed slot.
func (r EditResult) Span() (from, to string, ok bool) {
	if len(r.Changed) == 0 {
		return "", "", false
	}
	from, _, _ = strings.Cut(r.Changed[0], " - ")
	_, to, _ = strings.Cut(r.Changed[len(r.Changed)-1], " - ")
	return from, to, true
}

// Merge appends other to r, keeping the op of the latest edit.
func (r *EditResult) Merge(other EditResult) {
	r.Op = other.Op
	r.Changed = append(r.Changed, other.Changed...)
	r.Created = append(r.Created, other.Created...)
	r.Deleted = append(r.Deleted, other.Deleted...)
}

// Apply mutates s for userID. A plain add to a slot the document lacks fails
// with ErrUnknownSlot before anything is touched. isAdmin gates forced removal.
func Apply(s Schedule, e Edit, userID int64, isAdmin bool) (EditResult, error) {
	res := EditResult{Op: e.Op}
	slots := e.Slots()

	if e.Op == OpAdd && !e.Force {
		for _, slot := range slots {
			if _, ok := s[slot]; !ok {
				return res, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
			}
		}
	}

	for _, slot := range slots {
		switch e.Op {
		case OpAdd:
			if _, ok := s[slot]; !ok {
				s[slot] = []int64{}
				res.Created = append(res.Created, slot)
			}
			if indexOf(s[slot], userID) >= 0 {
				continue
			}
			s[slot] = append(s[slot], userID)
			res.Changed = append(res.Changed, slot)

		case OpRemove:
			if e.Force && isAdmin {
				if _, ok := s[slot]; ok {
					delete(s, slot)
					res.Deleted = append(res.Deleted, slot)
				}
			}
			users, ok := s[slot]
			if !ok {
				continue
			}
			i := indexOf(users, userID)
			if i < 0 {
				continue
			}
			s[slot] = append(users[:i:i], users[i+1:]...)
			res.Changed = append(res.Changed, slot)
		}
	}
	return res, nil
}
