package handler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/secretary/internal/timezone"
)

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dotDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?$`)
	clockRe   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
)

// parseDay resolves an absolute or relative day expression to midnight in now's location.
func parseDay(s string, now time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := timezone.StartOfDay(now)
	switch s {
	case "", "today", "сегодня", "бүгін":
		return today, true
	case "tomorrow", "завтра", "ертең":
		return today.AddDate(0, 0, 1), true
	case "послезавтра", "бүрсігүні":
		return today.AddDate(0, 0, 2), true
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return validDate(y, mo, d, now.Location())
	}
	if m := dotDateRe.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y := now.Year()
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
		}
		return validDate(y, mo, d, now.Location())
	}
	return time.Time{}, false
}

func validDate(y, mo, d int, loc *time.Location) (time.Time, bool) {
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// parseClock parses "14", "14:30" and "9:05" into hours and minutes.
func parseClock(s string) (int, int, bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mi := 0
	if m[2] != "" {
		mi, _ = strconv.Atoi(m[2])
	}
	if h > 23 || mi > 59 {
		return 0, 0, false
	}
	return h, mi, true
}

// parseDateTime accepts a day and an optional clock, or a single "YYYY-MM-DD HH:MM" value.
// withClock reports whether a time of day was present.
func parseDateTime(day, clock string, now time.Time) (t time.Time, withClock bool, ok bool) {
	if clock == "" {
		if d, c, ok := strings.Cut(strings.TrimSpace(day), " "); ok {
			day, clock = d, c
		} else if len(day) > 10 && day[10] == 'T' {
			day, clock = day[:10], strings.TrimSuffix(day[11:], ":00")
		}
	}
	date, ok := parseDay(day, now)
	if !ok {
		return time.Time{}, false, false
	}
	if clock == "" {
		return date, false, true
	}
	h, mi, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false, false
	}
	return date.Add(time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute), true, true
}

func formatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}
