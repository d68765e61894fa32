// Package recency decides whether a raw date string from a scraped page is
// fresh enough to keep. Sources emit anything from "3 hours ago" or "2일 전"
// to bare ISO timestamps, so classification is string-pattern first and
// absolute parsing last. Unparseable input is treated as stale.
package recency

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// negativeSlackFactor controls how far in the "future" an absolute date may
// sit and still count as recent, as a multiple of the window. Feeds stamped in
// a timezone ahead of the collector routinely produce small negative ages.
const negativeSlackFactor = 1

var (
	// amount + unit, optionally followed by "ago" / "전".
	relativeRe   = regexp.MustCompile(`(?i)(\d+)\s*(minutes?|mins?|hours?|hrs?|days?)(\s*ago)?`)
	relativeKoRe = regexp.MustCompile(`(\d+)\s*(분|시간|일)\s*전`)

	isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Phrases that mark an item as stale unconditionally, checked before anything else.
var oldPhrases = []string{
	"last week", "last month", "last year",
	"weeks ago", "week ago", "months ago", "month ago", "years ago", "year ago",
	"지난주", "지난달", "지난해", "작년",
	"주 전", "주일 전", "개월 전", "달 전", "년 전",
}

// Bare keywords with an implied age in hours, checked in declaration order.
var bareKeywords = []struct {
	keyword string
	hours   int
}{
	{"a minute ago", 0},
	{"an hour ago", 1},
	{"a day ago", 24},
	{"just now", 0},
	{"yesterday", 24},
	{"today", 0},
	{"오늘", 0},
	{"방금", 0},
	{"지금", 0},
	{"어제", 24},
}

// absoluteFormats is tried in order; the first successful parse wins.
var absoluteFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006년 1월 2일",
	"2006. 1. 2.",
}

// IsRecent reports whether dateStr falls inside the freshness window,
// measured against the wall clock.
func IsRecent(dateStr string, windowHours int) bool {
	return IsRecentAt(dateStr, windowHours, time.Now())
}

// IsRecentAt is IsRecent with an injected clock. The window boundary is
// inclusive: "48 hours ago" with a 48h window is still recent.
func IsRecentAt(dateStr string, windowHours int, now time.Time) bool {
	s := strings.ToLower(strings.TrimSpace(dateStr))
	if s == "" {
		return false
	}

	for _, phrase := range oldPhrases {
		if strings.Contains(s, phrase) {
			return false
		}
	}

	if amount, unit, ok := matchRelative(s); ok {
		return withinWindow(amount, unit, windowHours)
	}

	if hours, ok := matchBare(s); ok {
		return hours <= windowHours
	}

	if strings.Contains(s, now.Format("2006-01-02")) {
		return true
	}

	if t, ok := parseAbsolute(dateStr); ok {
		diff := now.Sub(t).Hours()
		window := float64(windowHours)
		return diff >= -window*negativeSlackFactor && diff <= window
	}

	// Nothing matched: discard rather than keep.
	return false
}

// AgeHoursAt returns a best-effort inferred age in hours for ranking.
// The second result is false when no age can be inferred at all.
func AgeHoursAt(dateStr string, now time.Time) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(dateStr))
	if s == "" {
		return 0, false
	}

	if amount, unit, ok := matchRelative(s); ok {
		switch unit {
		case unitMinute:
			return float64(amount) / 60, true
		case unitHour:
			return float64(amount), true
		default:
			return float64(amount) * 24, true
		}
	}

	if hours, ok := matchBare(s); ok {
		return float64(hours), true
	}

	if strings.Contains(s, now.Format("2006-01-02")) {
		return 0, true
	}

	if t, ok := parseAbsolute(dateStr); ok {
		diff := now.Sub(t).Hours()
		if diff < 0 {
			diff = 0
		}
		return diff, true
	}

	return 0, false
}

// Rank orders date strings by inferred age; smaller is more recent.
// Unparseable input ranks worst.
func Rank(dateStr string, now time.Time) float64 {
	if age, ok := AgeHoursAt(dateStr, now); ok {
		return age
	}
	return math.Inf(1)
}

type unit int

const (
	unitMinute unit = iota
	unitHour
	unitDay
)

func matchRelative(s string) (int, unit, bool) {
	if m := relativeKoRe.FindStringSubmatch(s); m != nil {
		amount, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "분":
			return amount, unitMinute, true
		case "시간":
			return amount, unitHour, true
		default:
			return amount, unitDay, true
		}
	}

	m := relativeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	switch {
	case strings.HasPrefix(m[2], "min"):
		return amount, unitMinute, true
	case strings.HasPrefix(m[2], "h"):
		return amount, unitHour, true
	default:
		return amount, unitDay, true
	}
}

func withinWindow(amount int, u unit, windowHours int) bool {
	switch u {
	case unitMinute:
		// Sub-hour granularity is never stale.
		return true
	case unitHour:
		return amount <= windowHours
	default:
		return amount*24 <= windowHours
	}
}

func matchBare(s string) (int, bool) {
	for _, b := range bareKeywords {
		if strings.Contains(s, b.keyword) {
			return b.hours, true
		}
	}
	return 0, false
}

func parseAbsolute(dateStr string) (time.Time, bool) {
	s := strings.TrimSpace(dateStr)
	for _, format := range absoluteFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
