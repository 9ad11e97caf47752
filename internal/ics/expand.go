package ics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "famcal/internal/log"
	"famcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the timezone every occurrence is converted into.
	// Nil means time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default cap.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded events plus truncation bookkeeping.
type ExpandResult struct {
	Events []model.CalendarEvent
	// TruncatedUIDs records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedUIDs []string
}

// Expand turns parsed VEVENTs into concrete CalendarEvents within the window:
// single events pass through, RRULE rules are expanded occurrence by
// occurrence, EXDATEs are removed, and RECURRENCE-ID overrides replace their
// matching instance. Every resulting event is converted into the display
// timezone and owned by the source's configured member.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand range end is before range start")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	order := make([]string, 0, len(events))

	for _, ev := range events {
		if ev.IsOverride && ev.RecurrenceID != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	all := make([]model.CalendarEvent, 0)
	for _, uid := range order {
		overrides := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, overrides, cfg)
			if hitCap {
				truncated = true
			}
			all = append(all, occ...)
		}

		if truncated {
			result.TruncatedUIDs = append(result.TruncatedUIDs, uid)
			appLog.Warn("ics expand truncated occurrences", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	result.Events = all
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.CalendarEvent {
	if !rangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	start, end := ev.Start, ev.End
	if o, ok := overrideForStart(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	return []model.CalendarEvent{makeEvent(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Align EXDATE location with the event's start for comparison.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Query the rule in the event's own location.
	occTimes := set.Between(
		cfg.RangeStart.In(ev.Start.Location()),
		cfg.RangeEnd.In(ev.Start.Location()),
		true,
	)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.CalendarEvent, 0, len(occTimes))
	duration := ev.End.Sub(ev.Start)

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day occupies [date 00:00, next day 00:00) in its timezone.
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.AddDate(0, 0, 1)
		} else {
			occEnd = occStart.Add(duration)
		}

		instance := ev
		if o, ok := overrideForStart(overrides, occStart); ok {
			instance, occStart, occEnd = o, o.Start, o.End
		}
		out = append(out, makeEvent(instance, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// overrideForStart finds the override whose RECURRENCE-ID matches the given
// instance start with exact time equality.
func overrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID == nil {
			continue
		}
		if ov.RecurrenceID.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts one concrete instance into a CalendarEvent in the
// display timezone. The ID is a deterministic UUID over source, UID and
// instance start, so repeated refreshes keep stable event identities.
func makeEvent(ev ParsedEvent, start, end time.Time, loc *time.Location) model.CalendarEvent {
	startLocal := start.In(loc)
	endLocal := end.In(loc)

	key := ev.Source.ID + "/" + ev.UID + "@" + startLocal.Format(time.RFC3339)
	return model.CalendarEvent{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
		Title:       ev.Summary,
		Start:       startLocal,
		End:         endLocal,
		MemberID:    ev.Source.MemberID,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
	}
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
