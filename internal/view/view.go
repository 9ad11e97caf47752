// Package view computes calendar layouts for the household dashboard: which
// days a view shows, which events land in which day, and where timed events
// sit inside the scrollable time grid. Everything here is a pure function of
// its inputs; "now" is always passed in so tests can pin the clock.
package view

import (
	"time"

	"famcal/internal/model"
)

// Config carries the layout constants of the engine. Zero values are not
// meaningful; construct via DefaultConfig or fill every field.
type Config struct {
	// WeekStart is the first day of the week in week/month layouts.
	WeekStart time.Weekday

	// VisibleStartHour / VisibleEndHour bound the time grid, e.g. [6, 22).
	VisibleStartHour int
	VisibleEndHour   int

	// PxPerMinute converts minutes to pixels in the time grid.
	PxPerMinute int

	// MinEventHeightPx keeps zero-duration events visible.
	MinEventHeightPx int

	// PreferredScrollHour is where the grid initially scrolls to.
	PreferredScrollHour int

	// LaneLayout enables interval-coloring lane assignment for overlapping
	// timed events. When false, overlapping events keep identical horizontal
	// bounds and stack in source order.
	LaneLayout bool

	// FallbackColor is resolved for events whose member has no roster entry.
	FallbackColor string
}

// DefaultConfig matches the dashboard UI: Sunday weeks, 6-22 visible window,
// 60px hours, 20px minimum event height, initial scroll to 8 AM.
func DefaultConfig() Config {
	return Config{
		WeekStart:           time.Sunday,
		VisibleStartHour:    6,
		VisibleEndHour:      22,
		PxPerMinute:         1,
		MinEventHeightPx:    20,
		PreferredScrollHour: 8,
		FallbackColor:       "gray",
	}
}

// Engine binds a Config and a clock. All layout builders hang off it.
type Engine struct {
	cfg Config
	now func() time.Time
}

// New returns an Engine. A nil clock falls back to time.Now.
func New(cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, now: now}
}

// Config returns the engine's layout constants.
func (e *Engine) Config() Config { return e.cfg }

// Today returns the current calendar day per the engine clock.
func (e *Engine) Today() time.Time { return DateOf(e.now()) }

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey formats t as a stable per-day bucket key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfWeek returns the most recent weekStart day at or before t, at midnight.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	d := DateOf(t)
	back := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// StartOfMonth returns the first day of t's month, at midnight.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month, at midnight.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), daysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, t.Location())
}

// daysInMonth relies on time.Date normalizing day 0 to the previous month's
// last day, which is calendar-correct across leap years.
func daysInMonth(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Range produces the ordered day sequence a view must display.
//
//   - day:   [anchor]
//   - week:  7 consecutive days from the week boundary containing anchor
//   - month: every complete week intersecting anchor's month, so the result
//     length is always a multiple of 7 (typically 35 or 42)
//
// Defined for every valid date, including month/year boundaries and Feb 29.
func Range(anchor time.Time, mode model.ViewMode, weekStart time.Weekday) []time.Time {
	switch mode {
	case model.ModeDay:
		return []time.Time{DateOf(anchor)}
	case model.ModeWeek:
		return consecutiveDays(StartOfWeek(anchor, weekStart), 7)
	case model.ModeMonth:
		first := StartOfWeek(StartOfMonth(anchor), weekStart)
		lastWeek := StartOfWeek(EndOfMonth(anchor), weekStart)
		n := daysBetween(first, lastWeek) + 7
		return consecutiveDays(first, n)
	default:
		return []time.Time{DateOf(anchor)}
	}
}

// Range is the Engine-level variant using the configured week start.
func (e *Engine) Range(anchor time.Time, mode model.ViewMode) []time.Time {
	return Range(anchor, mode, e.cfg.WeekStart)
}

func consecutiveDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

// daysBetween counts calendar days from a to b (both midnights, b >= a).
// AddDate-based counting avoids off-by-one errors across DST transitions
// where a "day" is not 24 hours.
func daysBetween(a, b time.Time) int {
	n := 0
	for d := a; d.Before(b); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
