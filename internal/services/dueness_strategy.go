// This file implements the strategy pattern for recurring expense dueness
// checking. Each frequency has its own checker encapsulating when a template
// should materialize again.

package services

import (
	"fmt"
	"time"

	"divvy/internal/core"
)

// DuenessChecker decides whether a recurring expense should be processed
// given its last execution time and the current time.
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, startDate time.Time) bool
}

// DailyChecker fires once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, now time.Time, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return lastExecution.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker fires when 7 or more days have passed since last execution.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution).Hours()/24 >= 7
}

// MonthlyChecker fires in a new month once the start date's day of month is
// reached, clamped to shorter months.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now time.Time, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now)
}

// YearlyChecker fires in a new year once the start date's month and day are
// reached.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now time.Time, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < startDate.Month():
		return false
	case now.Month() == startDate.Month():
		return now.Day() >= clampDay(startDate.Day(), now)
	default:
		return true
	}
}

// clampDay limits a target day of month to the length of now's month, so a
// template anchored on the 31st still fires in February.
func clampDay(day int, now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}
