package app

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxNameLen = 20

var namePolicy = bluemonday.StrictPolicy()

// SanitizeName strips markup from a display name and truncates it. The
// original clients sanitized names on the way out; doing it here closes the
// trust boundary for names arriving over the wire.
func SanitizeName(raw string) string {
	clean := strings.TrimSpace(namePolicy.Sanitize(raw))
	if clean == "" {
		return "Player"
	}
	runes := []rune(clean)
	if len(runes) > maxNameLen {
		runes = runes[:maxNameLen]
	}
	return string(runes)
}
