package outbox

import (
	"math/rand"
	"time"
	"unicode/utf8"
)

// backoff doubles from one second per failed attempt and is capped at maxBackoff.
func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	if attempts > 32 {
		return maxBackoff
	}
	return min(time.Second<<(attempts-1), maxBackoff)
}

// jitter is uniform in [0, maxJitter].
func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if r == nil || maxJitter <= 0 {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}

// truncateError keeps last_error within the column budget without splitting a rune.
func truncateError(err error, maxBytes int) string {
	if err == nil {
		return ""
	}
	return truncateString(err.Error(), maxBytes)
}

func truncateString(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
