package proto

import (
	"strconv"
	"strings"
	"time"
)

// PongPrefix starts the only structured server reply.
const PongPrefix = "PONG"

// FormatPong builds the reply to PING carrying the server time in epoch millis.
func FormatPong(now time.Time) string {
	return PongPrefix + " " + strconv.FormatInt(now.UnixMilli(), 10)
}

// ParsePong extracts the server timestamp from a PONG line.
func ParsePong(line string) (time.Time, bool) {
	verb, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.EqualFold(verb, PongPrefix) {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Latency returns the round trip derived from a PONG timestamp, clamped at zero.
func Latency(serverTime, now time.Time) time.Duration {
	d := now.Sub(serverTime)
	if d < 0 {
		return 0
	}
	return d
}
