// Package cooldown holds the arithmetic for the per-user placement window.
// The authoritative check happens inside the database transaction; handlers
// use these helpers so both paths report identical remaining times.
package cooldown

import (
	"time"
)

// Window is the fixed interval during which a user may not place a second pixel.
const Window = 60 * time.Second

// Remaining returns how long the user must still wait before the next
// placement. A user who never placed a pixel has no cooldown.
func Remaining(lastPlaced *time.Time, now time.Time) time.Duration {
	if lastPlaced == nil {
		return 0
	}

	remaining := Window - now.Sub(*lastPlaced)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds reports Remaining rounded up to whole seconds, the unit
// exposed to clients.
func RemainingSeconds(lastPlaced *time.Time, now time.Time) int {
	return int((Remaining(lastPlaced, now) + time.Second - 1) / time.Second)
}
