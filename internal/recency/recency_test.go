package recency

import (
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func TestIsRecentRelative(t *testing.T) {
	tests := []struct {
		date   string
		window int
		want   bool
	}{
		{"2 hours ago", 48, true},
		{"48 hours ago", 48, true}, // boundary is inclusive
		{"49 hours ago", 48, false},
		{"3 days ago", 48, false},
		{"9 days ago", 48, false},
		{"1 day ago", 24, true},
		{"2 days ago", 24, false},
		{"30 minutes ago", 1, true},
		{"500 minutes ago", 1, true}, // minutes are never stale
		{"5 mins ago", 24, true},
		{"0 hours ago", 1, true},
		{"0 days ago", 1, true},
	}
	for _, tt := range tests {
		if got := IsRecentAt(tt.date, tt.window, testNow); got != tt.want {
			t.Errorf("IsRecentAt(%q, %d) = %v, want %v", tt.date, tt.window, got, tt.want)
		}
	}
}

func TestIsRecentKorean(t *testing.T) {
	tests := []struct {
		date   string
		window int
		want   bool
	}{
		{"3시간 전", 48, true},
		{"50시간 전", 48, false},
		{"10분 전", 1, true},
		{"1일 전", 24, true},
		{"3일 전", 48, false},
		{"오늘", 1, true},
		{"어제", 48, true},
		{"어제", 12, false},
		{"지난주", 168, false},
	}
	for _, tt := range tests {
		if got := IsRecentAt(tt.date, tt.window, testNow); got != tt.want {
			t.Errorf("IsRecentAt(%q, %d) = %v, want %v", tt.date, tt.window, got, tt.want)
		}
	}
}

func TestIsRecentBareKeywords(t *testing.T) {
	for _, date := range []string{"today", "just now", "Today"} {
		if !IsRecentAt(date, 0, testNow) {
			t.Errorf("IsRecentAt(%q, 0) = false, want true", date)
		}
	}
	if !IsRecentAt("yesterday", 24, testNow) {
		t.Error("yesterday should be recent in a 24h window")
	}
	if IsRecentAt("yesterday", 12, testNow) {
		t.Error("yesterday should not be recent in a 12h window")
	}
	if !IsRecentAt("a day ago", 24, testNow) {
		t.Error("'a day ago' should be recent in a 24h window")
	}
}

func TestIsRecentEmptyAndGarbage(t *testing.T) {
	for _, date := range []string{"", "   ", "no date here", "???", "0x41"} {
		for _, window := range []int{0, 24, 48, 1000} {
			if IsRecentAt(date, window, testNow) {
				t.Errorf("IsRecentAt(%q, %d) = true, want false", date, window)
			}
		}
	}
}

func TestIsRecentOldPhrases(t *testing.T) {
	for _, date := range []string{"last week", "last month", "2 weeks ago", "3 months ago", "a year ago"} {
		if IsRecentAt(date, 10000, testNow) {
			t.Errorf("IsRecentAt(%q) = true, want false even for a huge window", date)
		}
	}
}

func TestIsRecentTodayISODate(t *testing.T) {
	if !IsRecentAt("published 2025-06-10 09:12", 1, testNow) {
		t.Error("string containing today's ISO date should be recent")
	}
	if IsRecentAt("published 2025-06-01 09:12", 24, testNow) {
		t.Error("old ISO date should not be recent in a 24h window")
	}
}

func TestIsRecentAbsoluteFormats(t *testing.T) {
	tests := []struct {
		date   string
		window int
		want   bool
	}{
		{"2025-06-09T20:00:00Z", 24, true},
		{"2025-06-08T20:00:00Z", 24, false},
		{"Jun 9, 2025", 48, true},
		{"June 1, 2025", 48, false},
		{"2025/06/09", 48, true},
		{"2025년 6월 9일", 48, true},
		// Slightly in the future within slack: timezone skew tolerance.
		{"2025-06-10T18:00:00Z", 24, true},
	}
	for _, tt := range tests {
		if got := IsRecentAt(tt.date, tt.window, testNow); got != tt.want {
			t.Errorf("IsRecentAt(%q, %d) = %v, want %v", tt.date, tt.window, got, tt.want)
		}
	}
}

func TestAgeHoursAt(t *testing.T) {
	tests := []struct {
		date string
		want float64
	}{
		{"30 minutes ago", 0.5},
		{"2 hours ago", 2},
		{"3 days ago", 72},
		{"yesterday", 24},
		{"today", 0},
		{"2시간 전", 2},
	}
	for _, tt := range tests {
		got, ok := AgeHoursAt(tt.date, testNow)
		if !ok {
			t.Errorf("AgeHoursAt(%q): not parseable", tt.date)
			continue
		}
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("AgeHoursAt(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}

	if _, ok := AgeHoursAt("no date at all", testNow); ok {
		t.Error("garbage should not produce an age")
	}
}

func TestRankOrdersUnparseableLast(t *testing.T) {
	recent := Rank("1 hour ago", testNow)
	older := Rank("5 hours ago", testNow)
	garbage := Rank("???", testNow)

	if recent >= older {
		t.Errorf("expected 1 hour ago (%v) to rank before 5 hours ago (%v)", recent, older)
	}
	if !math.IsInf(garbage, 1) {
		t.Errorf("expected unparseable date to rank +Inf, got %v", garbage)
	}
}
