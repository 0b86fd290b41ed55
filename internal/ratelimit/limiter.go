// Package ratelimit provides fixed-window counter limits shared by the
// ledger engine and the auth endpoints. Counters live in redis when
// configured, or in-process otherwise; both enforce a hard ceiling: once a
// window's counter reaches the limit, further hits are rejected without
// incrementing.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Window is the fixed counting window applied to every key.
const Window = time.Hour

// Limiter answers whether an action exceeds its ceiling for the current
// window. Implementations must make the check-and-increment atomic so
// concurrent requests cannot slip past the ceiling.
type Limiter interface {
	// CheckAndIncrement counts one hit against key and reports true when
	// the ceiling has been reached. The first hit in a window starts the
	// counter; hits at or above limit are rejected without incrementing.
	// A limit of zero disables the ceiling.
	CheckAndIncrement(ctx context.Context, key string, limit int64) (bool, error)
}

// Key joins scope parts into a counter key.
func Key(parts ...string) string {
	return "rl:" + strings.Join(parts, ":")
}
