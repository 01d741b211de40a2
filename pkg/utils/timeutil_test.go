package utils

import (
	"testing"
	"time"
)

// ist builds a fixed IST instant for deterministic status checks.
func ist(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, IST)
}

func TestMarketStatusPhases(t *testing.T) {
	// 2026-01-07 is a Wednesday with no holiday.
	cases := []struct {
		at   time.Time
		want string
	}{
		{ist(2026, time.January, 7, 8, 30), "PRE-MARKET"},
		{ist(2026, time.January, 7, 9, 5), "PRE-OPEN SESSION"},
		{ist(2026, time.January, 7, 9, 15), "OPEN"},
		{ist(2026, time.January, 7, 12, 0), "OPEN"},
		{ist(2026, time.January, 7, 15, 30), "OPEN"},
		{ist(2026, time.January, 7, 16, 0), "CLOSED"},
	}
	for _, tc := range cases {
		if got := marketStatusAt(tc.at); got != tc.want {
			t.Errorf("marketStatusAt(%s): got %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestMarketStatusWeekend(t *testing.T) {
	// 2026-01-10 is a Saturday.
	if got := marketStatusAt(ist(2026, time.January, 10, 11, 0)); got != "CLOSED (Weekend)" {
		t.Errorf("saturday: got %q", got)
	}
}

func TestMarketStatusHoliday(t *testing.T) {
	// Republic Day 2026 falls on a Monday.
	if got := marketStatusAt(ist(2026, time.January, 26, 11, 0)); got != "CLOSED (Republic Day)" {
		t.Errorf("holiday: got %q", got)
	}
}

func TestMarketStatusConvertsZone(t *testing.T) {
	// 06:00 UTC is 11:30 IST, mid-session.
	at := time.Date(2026, time.January, 7, 6, 0, 0, 0, time.UTC)
	if got := marketStatusAt(at); got != "OPEN" {
		t.Errorf("UTC instant: got %q, want OPEN", got)
	}
}

func TestFormatDateTimeIST(t *testing.T) {
	at := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	want := "2026-01-07 15:30:00 IST"
	if got := FormatDateTimeIST(at); got != want {
		t.Errorf("FormatDateTimeIST: got %q, want %q", got, want)
	}
}

func TestNowISTOffset(t *testing.T) {
	_, offset := NowIST().Zone()
	if want := 5*60*60 + 30*60; offset != want {
		t.Errorf("NowIST offset: got %d, want %d", offset, want)
	}
}
