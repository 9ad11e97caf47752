package view

import (
	"time"

	"famcal/internal/model"
)

// EventView is an event annotated with its resolved display color.
type EventView struct {
	model.CalendarEvent
	Color string `json:"color"`
}

// MonthCell is one cell of the rectangular month grid.
type MonthCell struct {
	Date           time.Time   `json:"date"`
	InCurrentMonth bool        `json:"in_current_month"`
	IsToday        bool        `json:"is_today"`
	Events         []EventView `json:"events"`
}

// PositionedEvent is a timed event with its vertical placement in the time
// grid. Lane/LaneCount are zero unless lane layout is enabled; with it off,
// overlapping events keep identical horizontal bounds and stack in order.
type PositionedEvent struct {
	EventView
	TopPx     int `json:"top_px"`
	HeightPx  int `json:"height_px"`
	Lane      int `json:"lane"`
	LaneCount int `json:"lane_count"`
}

// DayColumn is one day of a week/day time-grid layout.
type DayColumn struct {
	Date    time.Time         `json:"date"`
	IsToday bool              `json:"is_today"`
	AllDay  []EventView       `json:"all_day"`
	Timed   []PositionedEvent `json:"timed"`
}

// TimeGridLayout is the complete render structure for week and day modes.
type TimeGridLayout struct {
	Days           []DayColumn `json:"days"`
	Hours          []int       `json:"hours"`
	GridHeightPx   int         `json:"grid_height_px"`
	ScrollOffsetPx int         `json:"scroll_offset_px"`
}

// MonthGrid derives the month-view cells for the anchor's month: a rectangle
// of complete weeks with leading/trailing days from adjacent months filled in.
// Recomputed on every call; the result is never cached or mutated afterwards.
func (e *Engine) MonthGrid(anchor time.Time, events []model.CalendarEvent, members []model.FamilyMember) []MonthCell {
	days := e.Range(anchor, model.ModeMonth)
	buckets := Bucket(days, events)
	today := e.Today()

	cells := make([]MonthCell, 0, len(days))
	for _, d := range days {
		cells = append(cells, MonthCell{
			Date:           d,
			InCurrentMonth: d.Month() == anchor.Month() && d.Year() == anchor.Year(),
			IsToday:        SameDay(d, today),
			Events:         e.eventViews(buckets[DayKey(d)], members),
		})
	}
	return cells
}

// TimeGrid derives the week/day layout: one column per day carrying the
// all-day header events and the positioned timed events, plus the hour lines
// of the visible window. mode must be ModeWeek or ModeDay; month anchors are
// treated as day mode.
func (e *Engine) TimeGrid(anchor time.Time, mode model.ViewMode, events []model.CalendarEvent, members []model.FamilyMember) TimeGridLayout {
	if mode != model.ModeWeek {
		mode = model.ModeDay
	}
	days := e.Range(anchor, mode)
	buckets := Bucket(days, events)
	today := e.Today()

	columns := make([]DayColumn, 0, len(days))
	for _, d := range days {
		allDay, timed := SplitAllDay(buckets[DayKey(d)])

		positioned := make([]PositionedEvent, 0, len(timed))
		for _, ev := range timed {
			top, height := Position(ev, e.cfg)
			positioned = append(positioned, PositionedEvent{
				EventView: e.eventView(ev, members),
				TopPx:     top,
				HeightPx:  height,
			})
		}
		if e.cfg.LaneLayout {
			assignLanes(positioned)
		}

		columns = append(columns, DayColumn{
			Date:    d,
			IsToday: SameDay(d, today),
			AllDay:  e.eventViews(allDay, members),
			Timed:   positioned,
		})
	}

	return TimeGridLayout{
		Days:           columns,
		Hours:          HourLabels(e.cfg),
		GridHeightPx:   GridHeightPx(e.cfg),
		ScrollOffsetPx: ScrollOffsetPx(e.cfg),
	}
}

func (e *Engine) eventView(ev model.CalendarEvent, members []model.FamilyMember) EventView {
	return EventView{
		CalendarEvent: ev,
		Color:         e.resolveColor(ev.MemberID, members),
	}
}

func (e *Engine) eventViews(events []model.CalendarEvent, members []model.FamilyMember) []EventView {
	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		views = append(views, e.eventView(ev, members))
	}
	return views
}

// assignLanes implements greedy interval coloring over a day's timed events:
// in start order, each event takes the first lane whose previous occupant
// ends at or before this event's start, or opens a new lane. Every event in
// the column gets LaneCount set to the day's total lane count so the
// presentation layer can divide the column width evenly.
//
// The input must already be sorted by start (Bucket guarantees this).
func assignLanes(events []PositionedEvent) {
	if len(events) == 0 {
		return
	}

	var laneEnds []time.Time
	for i := range events {
		ev := &events[i]
		placed := false
		for lane, end := range laneEnds {
			if !end.After(ev.Start) {
				ev.Lane = lane
				laneEnds[lane] = laneEnd(ev)
				placed = true
				break
			}
		}
		if !placed {
			ev.Lane = len(laneEnds)
			laneEnds = append(laneEnds, laneEnd(ev))
		}
	}

	for i := range events {
		events[i].LaneCount = len(laneEnds)
	}
}

// laneEnd is the instant an event stops occupying its lane. Malformed events
// with End before Start occupy a single instant instead of poisoning the
// lane bookkeeping.
func laneEnd(ev *PositionedEvent) time.Time {
	if ev.End.Before(ev.Start) {
		return ev.Start
	}
	return ev.End
}
