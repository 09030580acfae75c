package retrieve

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finleyapp/finance-advisor/internal/domain"
)

// PeriodParser extracts a date range from query text, or nil when the text
// names no period. The strategy is pluggable because the phrasing heuristic
// materially affects aggregation results.
type PeriodParser func(text string, now time.Time) *domain.DateRange

var lastNDays = regexp.MustCompile(`(?:last|past)\s+(\d{1,3})\s+days?`)

// CalendarPeriods is the default PeriodParser. Relative phrases resolve to
// calendar boundaries ("this month" is the 1st through now, not a rolling 30
// days); "last N days" is the one rolling window.
func CalendarPeriods(text string, now time.Time) *domain.DateRange {
	t := strings.ToLower(text)

	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}

	switch {
	case strings.Contains(t, "this month"):
		return &domain.DateRange{From: day(now.Year(), now.Month(), 1), To: now}
	case strings.Contains(t, "last month"):
		first := day(now.Year(), now.Month(), 1)
		return &domain.DateRange{From: first.AddDate(0, -1, 0), To: first.AddDate(0, 0, -1)}
	case strings.Contains(t, "this week"):
		// Week starts Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return &domain.DateRange{From: day(now.Year(), now.Month(), now.Day()-offset), To: now}
	case strings.Contains(t, "today"):
		return &domain.DateRange{From: day(now.Year(), now.Month(), now.Day()), To: now}
	case strings.Contains(t, "this year"):
		return &domain.DateRange{From: day(now.Year(), time.January, 1), To: now}
	case strings.Contains(t, "last year"):
		return &domain.DateRange{
			From: day(now.Year()-1, time.January, 1),
			To:   day(now.Year()-1, time.December, 31),
		}
	}

	if m := lastNDays.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return &domain.DateRange{From: now.AddDate(0, 0, -n), To: now}
		}
	}
	return nil
}
