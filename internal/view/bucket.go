package view

import (
	"sort"
	"time"

	"famcal/internal/model"
)

// Bucket partitions events across the given day sequence, keyed by DayKey.
// Every day in the sequence gets an entry, empty days included.
//
// Membership is start-date equality: an event belongs to the day its Start
// falls on, full stop. The End instant is deliberately not consulted, so
// multi-day timed events are attributed only to their starting day and are
// never split across day boundaries in the display. Events are expected to
// arrive already converted into the display timezone.
//
// Ordering within a bucket is a stable sort by Start ascending; events that
// share a start keep their source order. Nothing is dropped except by the
// date-membership test — dangling member ids in particular stay in.
func Bucket(days []time.Time, events []model.CalendarEvent) map[string][]model.CalendarEvent {
	out := make(map[string][]model.CalendarEvent, len(days))
	for _, d := range days {
		out[DayKey(d)] = nil
	}

	for _, ev := range events {
		k := DayKey(ev.Start)
		if _, ok := out[k]; !ok {
			continue
		}
		out[k] = append(out[k], ev)
	}

	for k := range out {
		sortByStart(out[k])
	}
	return out
}

// SplitAllDay divides a day bucket into its all-day and timed subsequences,
// preserving order. All-day events render in the header row; timed events
// render in the scrollable grid.
func SplitAllDay(events []model.CalendarEvent) (allDay, timed []model.CalendarEvent) {
	for _, ev := range events {
		if ev.AllDay {
			allDay = append(allDay, ev)
		} else {
			timed = append(timed, ev)
		}
	}
	return allDay, timed
}

func sortByStart(events []model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
