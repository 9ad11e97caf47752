package view

import (
	"time"

	"famcal/internal/model"
)

// Position converts a timed event into time-grid coordinates.
//
// The top offset is the distance in minutes from the day's visible start hour
// to the event start, clamped at zero so early events pin to the top of the
// grid instead of going off-screen. The height is the event duration, floored
// at MinEventHeightPx so zero-duration events remain clickable.
//
// Events running past the visible end hour are not clipped; they extend into
// the unscrolled remainder of the grid. Malformed events (End before Start)
// come out at the minimum height rather than failing — rejecting bad records
// is the event source's job, not the engine's.
func Position(ev model.CalendarEvent, cfg Config) (topPx, heightPx int) {
	visibleStart := time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(),
		cfg.VisibleStartHour, 0, 0, 0, ev.Start.Location())

	startMinutes := int(ev.Start.Sub(visibleStart).Minutes())
	durationMinutes := int(ev.End.Sub(ev.Start).Minutes())

	topPx = startMinutes * cfg.PxPerMinute
	if topPx < 0 {
		topPx = 0
	}
	heightPx = durationMinutes * cfg.PxPerMinute
	if heightPx < cfg.MinEventHeightPx {
		heightPx = cfg.MinEventHeightPx
	}
	return topPx, heightPx
}

// GridHeightPx is the total scrollable height of the time grid.
func GridHeightPx(cfg Config) int {
	return (cfg.VisibleEndHour - cfg.VisibleStartHour) * 60 * cfg.PxPerMinute
}

// ScrollOffsetPx is the initial scroll position that puts the preferred hour
// at the top of the viewport. Purely a presentation affordance.
func ScrollOffsetPx(cfg Config) int {
	return (cfg.PreferredScrollHour - cfg.VisibleStartHour) * 60 * cfg.PxPerMinute
}

// HourLabels lists the hour lines of the visible window, inclusive of the end
// hour so the grid's bottom boundary gets a label.
func HourLabels(cfg Config) []int {
	hours := make([]int, 0, cfg.VisibleEndHour-cfg.VisibleStartHour+1)
	for h := cfg.VisibleStartHour; h <= cfg.VisibleEndHour; h++ {
		hours = append(hours, h)
	}
	return hours
}
