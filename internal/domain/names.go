package domain

import (
	"strings"

	"github.com/forPelevin/gomoji"
)

// ShortName trims a Telegram first name for schedule lines: the first emoji is
// kept as a prefix, then the text up to the first ")" or else the first word.
func ShortName(name string) string {
	var prefix string
	if found := gomoji.FindAll(name); len(found) > 0 {
		prefix = found[0].Character
	}
	clean := strings.TrimSpace(gomoji.RemoveEmojis(name))

	if strings.Contains(clean, "(") {
		if i := strings.Index(clean, ")"); i >= 0 {
			clean = strings.TrimSpace(clean[:i+1])
		}
	} else if fields := strings.Fields(clean); len(fields) > 0 {
		clean = fields[0]
	}
	return strings.TrimSpace(prefix + clean)
}
