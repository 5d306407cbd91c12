package reminder

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDelay applies when no time expression can be parsed.
const DefaultDelay = 5 * time.Second

var (
	relativeRe = regexp.MustCompile(`\bin (\d+) (seconds?|minutes?|hours?)\b`)
	absoluteRe = regexp.MustCompile(`\bat (\d{1,2}):(\d{2})\b`)
	triggers   = []string{"remind me", "set reminder"}
)

// Parse extracts the trigger time and message from a reminder request.
// It never fails: anything it cannot read, including delays too long to
// represent, fires DefaultDelay after now.
func Parse(text string, now time.Time) (time.Time, string) {
	msg := strings.ToLower(strings.TrimSpace(text))
	for _, t := range triggers {
		if _, after, ok := strings.Cut(msg, t); ok {
			msg = after
			break
		}
	}

	at := now.Add(DefaultDelay)

	if m := relativeRe.FindStringSubmatchIndex(msg); m != nil {
		n, err := strconv.ParseInt(msg[m[2]:m[3]], 10, 64)
		u := unit(msg[m[4]:m[5]])
		if err == nil && n <= math.MaxInt64/int64(u) {
			at = now.Add(time.Duration(n) * u)
			msg = msg[:m[0]] + msg[m[1]:]
		}
	} else if m := absoluteRe.FindStringSubmatchIndex(msg); m != nil {
		hh, _ := strconv.Atoi(msg[m[2]:m[3]])
		mm, _ := strconv.Atoi(msg[m[4]:m[5]])
		if hh < 24 && mm < 60 {
			at = nextOccurrence(now, hh, mm)
			msg = msg[:m[0]] + msg[m[1]:]
		}
	}

	msg = strings.Join(strings.Fields(msg), " ")
	if msg == "" {
		msg = "your reminder"
	}
	return at, msg
}

func unit(s string) time.Duration {
	switch {
	case strings.HasPrefix(s, "hour"):
		return time.Hour
	case strings.HasPrefix(s, "minute"):
		return time.Minute
	default:
		return time.Second
	}
}

// nextOccurrence returns today's hh:mm in now's location, or tomorrow's if
// that moment is already behind now.
func nextOccurrence(now time.Time, h, m int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if t.Before(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
