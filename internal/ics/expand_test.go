package ics

import (
	"testing"
	"time"
)

func expandWindow() ExpandConfig {
	return ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func parsedTimed(uid string, start, end time.Time) ParsedEvent {
	return ParsedEvent{
		Source:  testSource,
		UID:     uid,
		Summary: uid,
		Start:   start,
		End:     end,
	}
}

func TestExpandSingleEventPassThrough(t *testing.T) {
	ev := parsedTimed("soccer-1",
		time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC))

	res, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	got := res.Events[0]
	if got.Title != "soccer-1" || !got.Start.Equal(ev.Start) || !got.End.Equal(ev.End) {
		t.Errorf("event = %+v", got)
	}
	if got.MemberID != "4" {
		t.Errorf("member id = %q, want source's 4", got.MemberID)
	}
}

func TestExpandExcludesOutsideWindow(t *testing.T) {
	ev := parsedTimed("past-1",
		time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 1, 11, 0, 0, 0, time.UTC))

	res, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 0 {
		t.Errorf("got %d events for an out-of-window single, want 0", len(res.Events))
	}
}

func TestExpandDailyRRule(t *testing.T) {
	ev := parsedTimed("standup-1",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=DAILY;COUNT=10"

	res, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 10 {
		t.Fatalf("got %d occurrences, want 10", len(res.Events))
	}
	for i, occ := range res.Events {
		wantStart := time.Date(2024, 3, 1+i, 9, 0, 0, 0, time.UTC)
		if !occ.Start.Equal(wantStart) {
			t.Errorf("occurrence %d start = %v, want %v", i, occ.Start, wantStart)
		}
		if occ.End.Sub(occ.Start) != 15*time.Minute {
			t.Errorf("occurrence %d duration = %v", i, occ.End.Sub(occ.Start))
		}
	}
}

func TestExpandExDateRemovesOccurrence(t *testing.T) {
	ev := parsedTimed("standup-1",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=DAILY;COUNT=5"
	ev.ExDates = []time.Time{time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)}

	res, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 4 {
		t.Fatalf("got %d occurrences, want 4 after EXDATE", len(res.Events))
	}
	for _, occ := range res.Events {
		if occ.Start.Day() == 3 {
			t.Errorf("excluded Mar 3 occurrence still present: %+v", occ)
		}
	}
}

func TestExpandOverrideReplacesInstance(t *testing.T) {
	base := parsedTimed("standup-1",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	base.RawRRule = "FREQ=DAILY;COUNT=3"

	rid := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	override := parsedTimed("standup-1",
		time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 10, 15, 0, 0, time.UTC))
	override.Summary = "standup (moved)"
	override.RecurrenceID = &rid
	override.IsOverride = true

	res, err := Expand([]ParsedEvent{base, override}, expandWindow())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(res.Events))
	}

	moved := res.Events[1]
	if moved.Title != "standup (moved)" {
		t.Errorf("override title = %q", moved.Title)
	}
	if !moved.Start.Equal(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("override start = %v", moved.Start)
	}
}

func TestExpandDeterministicIDs(t *testing.T) {
	ev := parsedTimed("soccer-1",
		time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC))

	first, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Expand([]ParsedEvent{ev}, expandWindow())
	if err != nil {
		t.Fatal(err)
	}
	if first.Events[0].ID != second.Events[0].ID {
		t.Errorf("ids differ across refreshes: %s vs %s", first.Events[0].ID, second.Events[0].ID)
	}

	// A different instance start yields a different ID.
	ev2 := ev
	ev2.Start = ev.Start.Add(24 * time.Hour)
	ev2.End = ev.End.Add(24 * time.Hour)
	third, err := Expand([]ParsedEvent{ev2}, expandWindow())
	if err != nil {
		t.Fatal(err)
	}
	if third.Events[0].ID == first.Events[0].ID {
		t.Error("distinct instances share an ID")
	}
}

func TestExpandOccurrenceCap(t *testing.T) {
	ev := parsedTimed("spam-1",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 10, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=MINUTELY"

	cfg := expandWindow()
	cfg.MaxOccurrencesPerEvent = 50

	res, err := Expand([]ParsedEvent{ev}, cfg)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Events) != 50 {
		t.Errorf("got %d occurrences, want cap of 50", len(res.Events))
	}
	if len(res.TruncatedUIDs) != 1 || res.TruncatedUIDs[0] != "spam-1" {
		t.Errorf("truncated uids = %v", res.TruncatedUIDs)
	}
}

func TestExpandInvalidRange(t *testing.T) {
	cfg := expandWindow()
	cfg.RangeStart, cfg.RangeEnd = cfg.RangeEnd, cfg.RangeStart
	if _, err := Expand(nil, cfg); err == nil {
		t.Error("inverted range did not error")
	}
}
