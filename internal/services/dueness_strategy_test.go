package services

import (
	"testing"
	"time"

	"divvy/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDailyChecker(t *testing.T) {
	c := DailyChecker{}
	now := date(2026, 8, 28)
	if !c.IsDue(time.Time{}, now, time.Time{}) {
		t.Error("never executed should be due")
	}
	if c.IsDue(now, now, time.Time{}) {
		t.Error("already ran today")
	}
	if !c.IsDue(date(2026, 8, 27), now, time.Time{}) {
		t.Error("ran yesterday, should be due")
	}
}

func TestWeeklyChecker(t *testing.T) {
	c := WeeklyChecker{}
	now := date(2026, 8, 28)
	if !c.IsDue(time.Time{}, now, time.Time{}) {
		t.Error("never executed should be due")
	}
	if c.IsDue(date(2026, 8, 25), now, time.Time{}) {
		t.Error("only 3 days passed")
	}
	if !c.IsDue(date(2026, 8, 21), now, time.Time{}) {
		t.Error("7 days passed, should be due")
	}
}

func TestMonthlyChecker(t *testing.T) {
	c := MonthlyChecker{}
	start := date(2026, 1, 15)

	if c.IsDue(date(2026, 8, 15), date(2026, 8, 28), start) {
		t.Error("already ran this month")
	}
	if c.IsDue(date(2026, 7, 15), date(2026, 8, 10), start) {
		t.Error("target day not reached")
	}
	if !c.IsDue(date(2026, 7, 15), date(2026, 8, 15), start) {
		t.Error("target day reached in new month")
	}

	// Anchored on the 31st, February clamps to its last day.
	startEnd := date(2026, 1, 31)
	if !c.IsDue(date(2026, 1, 31), date(2026, 2, 28), startEnd) {
		t.Error("clamped day not honored in February")
	}
}

func TestYearlyChecker(t *testing.T) {
	c := YearlyChecker{}
	start := date(2020, 6, 15)

	if c.IsDue(date(2026, 6, 15), date(2026, 12, 1), start) {
		t.Error("already ran this year")
	}
	if c.IsDue(date(2025, 6, 15), date(2026, 5, 1), start) {
		t.Error("target month not reached")
	}
	if !c.IsDue(date(2025, 6, 15), date(2026, 6, 15), start) {
		t.Error("anniversary reached")
	}
	if !c.IsDue(date(2025, 6, 15), date(2026, 7, 1), start) {
		t.Error("past target month")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, f := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetDuenessChecker(f); err != nil {
			t.Errorf("GetDuenessChecker(%s): %v", f, err)
		}
	}
	if _, err := GetDuenessChecker("fortnightly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
}
