package database

import (
	"errors"
	"fmt"
	"time"
)

// ErrAccountBanned is returned by PlacePixel when the acting account has been
// banned by a moderator.
var ErrAccountBanned = errors.New("account is banned")

// CooldownError reports a placement rejected because the account's cooldown
// window is still open. Remaining is the exact time left in the window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for another %s", e.Remaining)
}

// RemainingSeconds rounds the remaining window up to whole seconds for
// reporting to clients.
func (e *CooldownError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}
