package featureflags

import (
	"os"
	"strings"
)

// Flags currently in use.
const (
	// LiveFeed gates the websocket attendance feed.
	LiveFeed = "live_feed"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// EnabledDefault is Enabled with a fallback for flags that ship on: an unset
// variable yields def, an explicit off value still wins.
func EnabledDefault(name string, def bool) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	if v == "" {
		return def
	}
	return Enabled(name)
}
