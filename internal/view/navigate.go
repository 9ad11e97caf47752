package view

import (
	"time"

	"famcal/internal/model"
)

// Navigate applies a previous/next/today intent to the current ViewState and
// returns the replacement state. All transitions are total; an unknown intent
// returns the state unchanged.
//
// Step sizes are mode-specific: ±1 day, ±7 days, or ±1 calendar month with
// the day-of-month clamped to the target month's length. The clamp makes
// month navigation intentionally non-reversible from the 29th-31st (Jan 31 →
// Feb 28 → Mar 28).
func Navigate(state model.ViewState, intent model.Intent, now func() time.Time) model.ViewState {
	if now == nil {
		now = time.Now
	}

	var step int
	switch intent {
	case model.IntentToday:
		// Resets the anchor only; the mode is untouched.
		state.Anchor = DateOf(now())
		return state
	case model.IntentPrevious:
		step = -1
	case model.IntentNext:
		step = 1
	default:
		return state
	}

	switch state.Mode {
	case model.ModeDay:
		state.Anchor = DateOf(state.Anchor).AddDate(0, 0, step)
	case model.ModeWeek:
		state.Anchor = DateOf(state.Anchor).AddDate(0, 0, 7*step)
	case model.ModeMonth:
		state.Anchor = AddMonthsClamped(DateOf(state.Anchor), step)
	}
	return state
}

// Navigate is the Engine-level variant using the engine clock.
func (e *Engine) Navigate(state model.ViewState, intent model.Intent) model.ViewState {
	return Navigate(state, intent, e.now)
}

// SwitchMode changes the layout without moving the anchor. Invalid modes are
// ignored.
func SwitchMode(state model.ViewState, mode model.ViewMode) model.ViewState {
	if mode.Valid() {
		state.Mode = mode
	}
	return state
}

// SelectDate is the month-grid "click a day" interaction: it jumps the anchor
// to the clicked day and forces day mode.
func SelectDate(state model.ViewState, date time.Time) model.ViewState {
	state.Anchor = DateOf(date)
	state.Mode = model.ModeDay
	return state
}

// AddMonthsClamped shifts t by the given number of calendar months, clamping
// the day-of-month to the target month's length. Plain AddDate would
// normalize Jan 31 + 1 month into March; calendars never do that.
func AddMonthsClamped(t time.Time, months int) time.Time {
	// Normalize year/month through a day-1 date, which cannot overflow.
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if max := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > max {
		day = max
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
