package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Schedule maps a slot label to the user IDs signed up for it, in signup order.
type Schedule map[string][]int64

// Slots returns the labels in display order: lexical, with MidnightSlot last.
func (s Schedule) Slots() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := keys[i] == MidnightSlot, keys[j] == MidnightSlot
		if mi != mj {
			return mj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for k, v := range s {
		users := make([]int64, len(v))
		copy(users, v)
		out[k] = users
	}
	return out
}

// Tally counts how many slots each user holds.
func (s Schedule) Tally() map[int64]int {
	out := make(map[int64]int)
	for _, users := range s {
		for _, u := range users {
			out[u]++
		}
	}
	return out
}

// RemoveUser drops userID from every slot and reports whether anything changed.
func (s Schedule) RemoveUser(userID int64) bool {
	changed := false
	for k, users := range s {
		if i := indexOf(users, userID); i >= 0 {
			s[k] = append(users[:i:i], users[i+1:]...)
			changed = true
		}
	}
	return changed
}

// MarshalJSON writes slots in display order so files stay stable.
func (s Schedule) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Slots() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		users := s[k]
		if users == nil {
			users = []int64{}
		}
		val, err := json.Marshal(users)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func indexOf(users []int64, id int64) int {
	for i, u := range users {
		if u == id {
			return i
		}
	}
	return -1
}
