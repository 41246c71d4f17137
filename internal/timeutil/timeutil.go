// Package timeutil provides utility functions and types for working with
// time-related operations.
package timeutil

import (
	"fmt"
	"time"
)

// DayLayout is the layout of a day key (YYYY-MM-DD).
const DayLayout = "2006-01-02"

const (
	secondsInAMinute = 60
	secondsInAnHour  = 3600
	minutesInAnHour  = 60
)

type Period string

const (
	PeriodAllTime   Period = "all-time"
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	Period7Days     Period = "7days"
	Period14Days    Period = "14days"
	Period30Days    Period = "30days"
	Period90Days    Period = "90days"
	Period180Days   Period = "180days"
	Period365Days   Period = "365days"
)

var Range = map[Period]int{
	PeriodAllTime:   0,
	PeriodToday:     0,
	PeriodYesterday: -1,
	Period7Days:     -6,
	Period14Days:    -13,
	Period30Days:    -29,
	Period90Days:    -89,
	Period180Days:   -179,
	Period365Days:   -364,
}

var PeriodCollection = []Period{
	PeriodAllTime,
	PeriodToday,
	PeriodYesterday,
	Period7Days,
	Period14Days,
	Period30Days,
	Period90Days,
	Period180Days,
	Period365Days,
}

// DayKey returns the calendar date of t in its own location, formatted as
// YYYY-MM-DD. No timezone normalisation is performed.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD day key in the local timezone.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, time.Local)
}

// WholeSeconds returns the number of whole seconds between from and to,
// clamped to zero when to is before from.
func WholeSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}

	return int64(d / time.Second)
}

// FormatHMS renders a number of seconds as HH:MM:SS. Negative values are
// treated as zero.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	h := seconds / secondsInAnHour
	m := (seconds % secondsInAnHour) / secondsInAMinute
	s := seconds % secondsInAMinute

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatLastSync describes how long ago the last successful sync happened
// relative to now.
func FormatLastSync(lastSync, now time.Time) string {
	if lastSync.IsZero() {
		return "Never"
	}

	minutes := int(now.Sub(lastSync) / time.Minute)

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < minutesInAnHour:
		return fmt.Sprintf("%d min ago", minutes)
	default:
		return fmt.Sprintf(
			"%dh %dm ago",
			minutes/minutesInAnHour,
			minutes%minutesInAnHour,
		)
	}
}

// RoundToStart resets the given time to the start of the day.
func RoundToStart(t time.Time) time.Time {
	return time.Date(
		t.Year(),
		t.Month(),
		t.Day(),
		0,
		0,
		0,
		0,
		t.Location(),
	)
}

// RoundToEnd resets the given time to the end of the day.
func RoundToEnd(t time.Time) time.Time {
	return time.Date(
		t.Year(),
		t.Month(),
		t.Day(),
		23,
		59,
		59,
		0,
		t.Location(),
	)
}

// PeriodRange returns the start and end time of the specified period relative
// to now. The all-time period has a zero start time.
func PeriodRange(period Period, now time.Time) (start, end time.Time) {
	start = RoundToStart(now)

	end = RoundToEnd(now)

	//nolint:exhaustive // other cases covered by default
	switch period {
	case PeriodToday:
		return
	case PeriodYesterday:
		start = RoundToStart(now.AddDate(0, 0, Range[period]))
		end = RoundToEnd(start)

		return
	case PeriodAllTime:
		start = time.Time{}
		return
	default:
		start = RoundToStart(now.AddDate(0, 0, Range[period]))
	}

	return
}

// FormatDuration renders seconds as a short human readable duration such as
// "2h 05m", "12m 30s" or "45s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	h := seconds / secondsInAnHour
	m := (seconds % secondsInAnHour) / secondsInAMinute
	s := seconds % secondsInAMinute

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// DaysBetween returns the number of calendar days covered by start and end,
// counting both ends. It is at least one.
func DaysBetween(start, end time.Time) int {
	s := RoundToStart(start)
	e := RoundToStart(end)

	days := 1

	for d := s; d.Before(e); d = d.AddDate(0, 0, 1) {
		days++
	}

	return days
}
