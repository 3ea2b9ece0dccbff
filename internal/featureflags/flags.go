// Package featureflags reads boolean flags from the environment. The one
// flag in use today is FLAG_STRICT_TRANSITIONS, which hardens the
// complaint status machine.
package featureflags

import (
	"os"
	"strings"
)

// Enabled reports whether FLAG_<NAME> is set to a truthy value
// (1/true/yes/on, case-insensitive). Unset or anything else is off.
func Enabled(name string) bool {
	switch strings.ToLower(os.Getenv("FLAG_" + strings.ToUpper(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
