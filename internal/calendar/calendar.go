// Package calendar provides the canonical date/time strings the rest of
// swingbot uses to key entities and schedule jobs, all pinned to the
// exchange's own timezone rather than the host machine's.
package calendar

import "time"

// Location is the single market timezone every job, key, and log timestamp
// in this module is pinned to.
var Location = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.UTC
	}
	return loc
}()

const (
	dateLayout = "20060102"
	timeLayout = "150405"
)

// Today returns the current session date as YYYYMMDD in market time.
func Today() string {
	return time.Now().In(Location).Format(dateLayout)
}

// Yesterday returns the prior calendar day as YYYYMMDD in market time.
func Yesterday() string {
	return DaysAgo(1)
}

// DaysAgo returns the date n calendar days before today, as YYYYMMDD.
func DaysAgo(n int) string {
	return time.Now().In(Location).AddDate(0, 0, -n).Format(dateLayout)
}

// Now returns the current wall-clock time as HHMMSS in market time.
func Now() string {
	return time.Now().In(Location).Format(timeLayout)
}

// FormatDate formats an arbitrary time.Time as YYYYMMDD in market time.
func FormatDate(t time.Time) string {
	return t.In(Location).Format(dateLayout)
}

// ParseDate parses a YYYYMMDD string into a time.Time at midnight market
// time. Returns the zero time on malformed input.
func ParseDate(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, Location)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DayBefore returns the calendar day immediately preceding the given
// YYYYMMDD session date, as YYYYMMDD. Used to bound "most recent prior
// session" lookups so a same-day bar ingested ahead of a job's own
// session cutoff is never picked up in its place.
func DayBefore(session string) string {
	t := ParseDate(session)
	if t.IsZero() {
		return session
	}
	return FormatDate(t.AddDate(0, 0, -1))
}

// IsWeekday reports whether the given YYYYMMDD session date falls on a
// trading weekday (Mon-Fri). Exchange holidays are not modeled here; the
// scheduler relies on the brokerage rejecting calls on closed days.
func IsWeekday(session string) bool {
	t := ParseDate(session)
	if t.IsZero() {
		return false
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// InMarketHours reports whether the current market-time wall clock falls
// within the intraday trading window (09:00-15:59 inclusive), the same
// window the buy/sell cron expressions cover (§4.10).
func InMarketHours() bool {
	now := time.Now().In(Location)
	h, m := now.Hour(), now.Minute()
	minutes := h*60 + m
	return minutes >= 9*60 && minutes <= 15*60+59
}
