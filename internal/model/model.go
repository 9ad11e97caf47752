package model

import "time"

// FamilyMember is an immutable roster entry. Members are loaded from config
// (or an external roster source) and only ever looked up by ID.
type FamilyMember struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Color  string `yaml:"color" json:"color"`
	Avatar string `yaml:"avatar,omitempty" json:"avatar,omitempty"`
}

// CalendarEvent is a single concrete event instance as seen by the view
// engine. Recurring ICS events are expanded into one CalendarEvent per
// occurrence before they reach the engine.
//
// MemberID is a foreign key into the roster and may be dangling; the engine
// must render such events with a fallback color rather than drop them.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	MemberID    string    `json:"member_id"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
}

// ViewMode selects the calendar layout strategy.
type ViewMode string

const (
	ModeDay   ViewMode = "day"
	ModeWeek  ViewMode = "week"
	ModeMonth ViewMode = "month"
)

// Valid reports whether m is one of the three known modes.
func (m ViewMode) Valid() bool {
	switch m {
	case ModeDay, ModeWeek, ModeMonth:
		return true
	}
	return false
}

// Intent is a navigation request against the current ViewState.
type Intent string

const (
	IntentPrevious Intent = "previous"
	IntentNext     Intent = "next"
	IntentToday    Intent = "today"
)

// ViewState is the single piece of engine-owned state: which date anchors the
// view and which layout is active. It is replaced wholesale on navigation,
// never partially mutated.
type ViewState struct {
	Anchor time.Time `json:"anchor"`
	Mode   ViewMode  `json:"mode"`
}
