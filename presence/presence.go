package presence

import (
	"fmt"
	"time"

	"github.com/campushub/chatkit/config"
)

// IsOnline reports whether a user whose last activity was at lastSeenAt
// counts as online right now. A nil timestamp means the user was never seen.
// The verdict is recomputed on every call; nothing is cached.
func IsOnline(lastSeenAt *time.Time) bool {
	return isOnlineAt(lastSeenAt, time.Now())
}

// Label renders presence for display: "Online" while within the threshold,
// then a relative phrase at minute/hour/day granularity, then a short
// absolute date once the last activity is more than a week old.
func Label(lastSeenAt *time.Time) string {
	return labelAt(lastSeenAt, time.Now())
}

func isOnlineAt(lastSeenAt *time.Time, now time.Time) bool {
	if lastSeenAt == nil {
		return false
	}
	return now.Sub(*lastSeenAt) < config.OnlineThreshold
}

func labelAt(lastSeenAt *time.Time, now time.Time) string {
	if lastSeenAt == nil {
		return "Offline"
	}
	if isOnlineAt(lastSeenAt, now) {
		return "Online"
	}

	elapsed := now.Sub(*lastSeenAt)
	switch {
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour")
	case elapsed <= 7*24*time.Hour:
		return plural(int(elapsed.Hours()/24), "day")
	default:
		return lastSeenAt.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
