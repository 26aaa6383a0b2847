package domain

import (
	"sort"
	"strconv"
	"time"
)

// UserStats is the per-user record kept in a chat's statistics file.
type UserStats struct {
	Total          int                 `json:"total"`
	Daily          map[string]int      `json:"daily"`
	Yesterday      int                 `json:"yesterday"`
	Currency       int                 `json:"currency"`
	Name           string              `json:"name,omitempty"`
	Gender         string              `json:"gender,omitempty"`
	LastEarn       string              `json:"last_earn,omitempty"`
	PurchasedSkins map[string][]string `json:"purchased_skins,omitempty"`
	Skin           map[string]string   `json:"skin,omitempty"`
}

// Stats holds every user record of one chat, keyed by user ID.
type Stats map[int64]*UserStats

// User returns the record for id, creating an empty one when absent.
func (s Stats) User(id int64) *UserStats {
	u, ok := s[id]
	if !ok || u == nil {
		u = &UserStats{}
		s[id] = u
	}
	if u.Daily == nil {
		u.Daily = make(map[string]int)
	}
	return u
}

// DailyHours returns the bucket for a weekday index (0=Monday).
func (u *UserStats) DailyHours(weekday int) int {
	return u.Daily[strconv.Itoa(weekday)]
}

// Fold records a finished day: tally holds hours per user for the day that ended.
// Every user's yesterday is reset first so absentees read zero.
func (s Stats) Fold(tally map[int64]int, ended time.Time) {
	for _, u := range s {
		if u != nil {
			u.Yesterday = 0
		}
	}
	bucket := strconv.Itoa(WeekdayIndex(ended))
	for id, hours := range tally {
		u := s.User(id)
		u.Total += hours
		u.Daily[bucket] += hours
		u.Yesterday = hours
	}
}

// Ranked is one leaderboard row.
type Ranked struct {
	UserID int64
	Value  int
}

// Top ranks users by metric, highest first, ties by user ID, at most n rows.
func Top(values map[int64]int, n int) []Ranked {
	out := make([]Ranked, 0, len(values))
	for id, v := range values {
		out = append(out, Ranked{UserID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].UserID < out[j].UserID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Metric projects a field of every record into a map usable by Top.
func (s Stats) Metric(f func(*UserStats) int) map[int64]int {
	out := make(map[int64]int, len(s))
	for id, u := range s {
		if u == nil {
			continue
		}
		out[id] = f(u)
	}
	return out
}
