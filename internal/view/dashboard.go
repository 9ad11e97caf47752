package view

import (
	"time"

	"famcal/internal/model"
)

// Summary is the landing-dashboard digest of the current day.
type Summary struct {
	Greeting   string      `json:"greeting"`
	Date       time.Time   `json:"date"`
	EventCount int         `json:"event_count"`
	Events     []EventView `json:"events"`
	// Next is the first timed event still ahead of the current instant,
	// nil once the day's schedule is done.
	Next *EventView `json:"next,omitempty"`
}

// Summary computes the dashboard digest: a greeting keyed to the local hour
// and today's events in chronological order.
func (e *Engine) Summary(events []model.CalendarEvent, members []model.FamilyMember) Summary {
	now := e.now()
	today := DateOf(now)

	bucket := Bucket([]time.Time{today}, events)[DayKey(today)]
	views := e.eventViews(bucket, members)

	s := Summary{
		Greeting:   Greeting(now.Hour()),
		Date:       today,
		EventCount: len(views),
		Events:     views,
	}

	for i := range views {
		if !views[i].AllDay && views[i].Start.After(now) {
			s.Next = &views[i]
			break
		}
	}
	return s
}

// Greeting picks the salutation for an hour of day: morning before noon,
// afternoon before six, evening otherwise.
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
