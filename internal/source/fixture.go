package source

import (
	"context"
	"time"

	"famcal/internal/model"
)

// Fixture is the built-in demo schedule, used when no ICS subscription is
// configured so a fresh install shows a populated dashboard. Events are laid
// out relative to the injected clock's "today", matching the demo roster ids
// from the default config.
type Fixture struct {
	now func() time.Time
}

// NewFixture returns a Fixture. A nil clock falls back to time.Now.
func NewFixture(now func() time.Time) *Fixture {
	if now == nil {
		now = time.Now
	}
	return &Fixture{now: now}
}

// Events returns the demo events overlapping the window.
func (f *Fixture) Events(_ context.Context, rangeStart, rangeEnd time.Time) ([]model.CalendarEvent, error) {
	now := f.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	at := func(dayOffset, hour, minute int) time.Time {
		return today.AddDate(0, 0, dayOffset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	all := []model.CalendarEvent{
		{
			ID:          "fixture-1",
			Title:       "Soccer Practice",
			Start:       at(0, 16, 0),
			End:         at(0, 17, 30),
			MemberID:    "3",
			Location:    "City Field",
			Description: "Don't forget shin guards!",
		},
		{
			ID:          "fixture-2",
			Title:       "Grocery Run",
			Start:       at(1, 10, 0),
			End:         at(1, 11, 0),
			MemberID:    "2",
			Description: "Weekly essentials",
		},
		{
			ID:       "fixture-3",
			Title:    "Family Dinner",
			Start:    at(-1, 18, 0),
			End:      at(-1, 20, 0),
			MemberID: "4",
			Location: "Home",
		},
		{
			ID:       "fixture-4",
			Title:    "Dentist Appt",
			Start:    at(2, 14, 30),
			End:      at(2, 15, 15),
			MemberID: "1",
			Location: "Dr. Smith",
		},
		{
			ID:       "fixture-5",
			Title:    "School Play",
			Start:    at(5, 19, 0),
			End:      at(5, 21, 0),
			MemberID: "3",
		},
	}

	in := make([]model.CalendarEvent, 0, len(all))
	for _, ev := range all {
		if ev.End.Before(rangeStart) || ev.Start.After(rangeEnd) {
			continue
		}
		in = append(in, ev)
	}
	return in, nil
}
