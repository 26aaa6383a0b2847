package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// AnonymousAdminID is the identity Telegram uses for anonymous group admins.
	AnonymousAdminID int64 = 1087968824

	NameCost   = 100
	GenderCost = 100
	SkinCost   = 100

	earnRate     = 10
	lastEarnForm = "2006-01-02 15:04:05"
)

var (
	ErrAlreadyEarned     = errors.New("already earned today")
	ErrAnonymous         = errors.New("anonymous admins cannot earn")
	ErrNotEnoughCurrency = errors.New("not enough currency")
	ErrNameLength        = errors.New("name must be 3 to 20 characters")
	ErrNameSpaces        = errors.New("name must not contain spaces")
	ErrNameTaken         = errors.New("name already taken")
	ErrBadGender         = errors.New("unknown gender")
	ErrSkinNotOwned      = errors.New("skin not owned")
	ErrSkinOwned         = errors.New("skin already owned")
)

// Genders accepted by SetGender.
var Genders = []string{"male", "female"}

// EarnedOn reports whether the last payout happened on the same local day as now.
func (u *UserStats) EarnedOn(now time.Time) bool {
	if u.LastEarn == "" {
		return false
	}
	last, err := time.ParseInLocation(lastEarnForm, u.LastEarn, now.Location())
	if err != nil {
		return false
	}
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly == ny && lm == nm && ld == nd
}

// UntilMidnight returns the wait before the next payout window.
func UntilMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}

// Earn pays out yesterday's hours scaled by multiplier (expected in [0.7, 1.5)).
func Earn(s Stats, userID int64, now time.Time, multiplier float64) (int, error) {
	if userID == AnonymousAdminID {
		return 0, ErrAnonymous
	}
	u := s.User(userID)
	if u.EarnedOn(now) {
		return 0, ErrAlreadyEarned
	}
	earned := int(float64(u.Yesterday*earnRate) * multiplier)
	u.Currency += earned
	u.LastEarn = now.Format(lastEarnForm)
	return earned, nil
}

func charge(u *UserStats, cost int) error {
	if u.Currency < cost {
		return fmt.Errorf("%w: balance %d, need %d", ErrNotEnoughCurrency, u.Currency, cost)
	}
	u.Currency -= cost
	return nil
}

// SetName buys a custom display name.
func SetName(s Stats, userID int64, name string) error {
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 20 {
		return ErrNameLength
	}
	if strings.ContainsAny(name, " \t\n") {
		return ErrNameSpaces
	}
	for id, other := range s {
		if id != userID && other != nil && other.Name == name {
			return ErrNameTaken
		}
	}
	u := s.User(userID)
	if err := charge(u, NameCost); err != nil {
		return err
	}
	u.Name = name
	return nil
}

// SetGender sets the gender; the first choice is free, later changes cost GenderCost.
func SetGender(s Stats, userID int64, gender string) error {
	gender = strings.ToLower(strings.TrimSpace(gender))
	valid := false
	for _, g := range Genders {
		if g == gender {
			valid = true
		}
	}
	if !valid {
		return ErrBadGender
	}
	u := s.User(userID)
	if u.Gender != "" {
		if err := charge(u, GenderCost); err != nil {
			return err
		}
	}
	u.Gender = gender
	return nil
}

// BuySkin charges SkinCost, records the purchase and activates the skin.
func BuySkin(s Stats, userID int64, category, skin string) error {
	u := s.User(userID)
	for _, owned := range u.PurchasedSkins[category] {
		if owned == skin {
			return ErrSkinOwned
		}
	}
	if err := charge(u, SkinCost); err != nil {
		return err
	}
	if u.PurchasedSkins == nil {
		u.PurchasedSkins = make(map[string][]string)
	}
	u.PurchasedSkins[category] = append(u.PurchasedSkins[category], skin)
	activate(u, category, skin)
	return nil
}

// ChangeSkin activates a skin the user already owns.
func ChangeSkin(s Stats, userID int64, category, skin string) error {
	u := s.User(userID)
	for _, owned := range u.PurchasedSkins[category] {
		if owned == skin {
			activate(u, category, skin)
			return nil
		}
	}
	return ErrSkinNotOwned
}

// GrantSkin activates a skin without charging; used by admins.
func GrantSkin(s Stats, userID int64, category, skin string) {
	activate(s.User(userID), category, skin)
}

func activate(u *UserStats, category, skin string) {
	if u.Skin == nil {
		u.Skin = make(map[string]string)
	}
	u.Skin[category] = skin
}
