package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ykvlv/duty-bot/internal/skins"
)

var (
	errUsage       = errors.New("usage")
	errUnknownUser = errors.New("unknown user")
)

// parseUserRef reads a numeric user id or an @username.
func parseUserRef(s string) (id int64, username string, err error) {
	if u, ok := strings.CutPrefix(s, "@"); ok {
		if u == "" {
			return 0, "", fmt.Errorf("%w: empty username", errUsage)
		}
		return 0, u, nil
	}
	id, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q is neither an id nor an @username", errUsage, s)
	}
	return id, "", nil
}

// parsePeriod reads two YYYY-MM-DD dates in loc, inclusive on both ends.
func parsePeriod(args []string, loc *time.Location) (from, to time.Time, err error) {
	if len(args) != 2 {
		return from, to, fmt.Errorf("%w: /top_period YYYY-MM-DD YYYY-MM-DD", errUsage)
	}
	from, err = time.ParseInLocation("2006-01-02", args[0], loc)
	if err != nil {
		return from, to, fmt.Errorf("%w: bad start date %q", errUsage, args[0])
	}
	to, err = time.ParseInLocation("2006-01-02", args[1], loc)
	if err != nil {
		return from, to, fmt.Errorf("%w: bad end date %q", errUsage, args[1])
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("%w: start date is after end date", errUsage)
	}
	return from, to, nil
}

// parseShopArgs reads "[category] [page]"; pages are 1-based for users and 0-based here.
func parseShopArgs(args []string) (category string, page int, err error) {
	if len(args) == 0 {
		return "", 0, nil
	}
	category = strings.ToLower(args[0])
	if !skins.IsCategory(category) {
		return "", 0, fmt.Errorf("%w: unknown category %q", errUsage, args[0])
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("%w: bad page %q", errUsage, args[1])
		}
		page = n - 1
	}
	return category, page, nil
}

// parseShopData decodes "shop:<category>:<page>" callback data.
func parseShopData(data string) (category string, page int, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "shop" || !skins.IsCategory(parts[1]) {
		return "", 0, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil || page < 0 {
		return "", 0, false
	}
	return parts[1], page, true
}

// formatWait renders a duration as "3h 25m".
func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
