package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"famcal/internal/config"
	"famcal/internal/model"
	"famcal/internal/source"
	"famcal/internal/view"
)

type stubProvider struct {
	events []model.CalendarEvent
}

func (p *stubProvider) Events(_ context.Context, _, _ time.Time) ([]model.CalendarEvent, error) {
	return p.events, nil
}

// Friday 2024-03-15, 10 AM UTC.
func testClock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func testServer(t *testing.T, events []model.CalendarEvent, auth *config.BasicAuthConfig) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.BasicAuth = auth
	cfg.Normalize()

	engineCfg := view.DefaultConfig()
	engineCfg.WeekStart = cfg.WeekStartDay()
	engineCfg.FallbackColor = cfg.FallbackColor
	engine := view.New(engineCfg, testClock)

	store := source.NewStore([]source.Provider{&stubProvider{events: events}}, testClock)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("store refresh: %v", err)
	}

	return NewServer(cfg, engine, store, true)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestViewMonth(t *testing.T) {
	soccer := model.CalendarEvent{
		ID:       "e1",
		Title:    "Soccer Practice",
		Start:    time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC),
		MemberID: "3",
	}
	s := testServer(t, []model.CalendarEvent{soccer}, nil)

	rec := get(t, s.Handler(), "/api/view?mode=month&anchor=2024-03-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Mode  model.ViewMode   `json:"mode"`
		Month []view.MonthCell `json:"month"`
	}
	decode(t, rec, &resp)

	if resp.Mode != model.ModeMonth {
		t.Errorf("mode = %q", resp.Mode)
	}
	// March 2024 with Sunday weeks spans Feb 25 through Apr 6.
	if len(resp.Month) != 42 {
		t.Fatalf("month grid has %d cells, want 42", len(resp.Month))
	}
	first := resp.Month[0].Date
	if first.Month() != time.February || first.Day() != 25 {
		t.Errorf("grid starts %v, want Feb 25", first)
	}

	found := false
	for _, cell := range resp.Month {
		for _, ev := range cell.Events {
			if ev.ID == "e1" {
				found = true
				if ev.Color != "green" {
					t.Errorf("event color = %q, want member 3's green", ev.Color)
				}
				if cell.Date.Day() != 15 {
					t.Errorf("event bucketed on day %d, want 15", cell.Date.Day())
				}
			}
		}
	}
	if !found {
		t.Error("soccer event missing from month grid")
	}
}

func TestViewWeekGrid(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/view?mode=week&anchor=2024-03-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Grid *view.TimeGridLayout `json:"grid"`
	}
	decode(t, rec, &resp)

	if resp.Grid == nil {
		t.Fatal("week view returned no grid")
	}
	if len(resp.Grid.Days) != 7 {
		t.Errorf("week grid has %d days, want 7", len(resp.Grid.Days))
	}
	// [6, 22) window at 1 px/min.
	if resp.Grid.GridHeightPx != 960 {
		t.Errorf("grid height = %d, want 960", resp.Grid.GridHeightPx)
	}
}

func TestViewBadAnchor(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/view?anchor=not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestNavigate(t *testing.T) {
	s := testServer(t, nil, nil)

	tests := []struct {
		query      string
		wantAnchor string
		wantMode   model.ViewMode
	}{
		{"intent=next&mode=day&anchor=2024-03-15", "2024-03-16", model.ModeDay},
		{"intent=previous&mode=week&anchor=2024-03-15", "2024-03-08", model.ModeWeek},
		{"intent=next&mode=month&anchor=2024-01-31", "2024-02-29", model.ModeMonth},
		{"intent=today&mode=week&anchor=2023-07-04", "2024-03-15", model.ModeWeek},
		{"intent=mode&to=day&anchor=2024-03-15&mode=month", "2024-03-15", model.ModeDay},
		{"intent=select&date=2024-03-20&anchor=2024-03-15&mode=month", "2024-03-20", model.ModeDay},
	}

	for _, tt := range tests {
		rec := get(t, s.Handler(), "/api/navigate?"+tt.query)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.query, rec.Code)
			continue
		}
		var state model.ViewState
		decode(t, rec, &state)
		if got := state.Anchor.Format("2006-01-02"); got != tt.wantAnchor {
			t.Errorf("%s: anchor = %s, want %s", tt.query, got, tt.wantAnchor)
		}
		if state.Mode != tt.wantMode {
			t.Errorf("%s: mode = %q, want %q", tt.query, state.Mode, tt.wantMode)
		}
	}
}

func TestNavigateUnknownIntent(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/navigate?intent=sideways&anchor=2024-03-15")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	soccer := model.CalendarEvent{
		ID:       "e1",
		Title:    "Soccer Practice",
		Start:    time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC),
		MemberID: "3",
	}
	s := testServer(t, []model.CalendarEvent{soccer}, nil)

	rec := get(t, s.Handler(), "/api/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var summary view.Summary
	decode(t, rec, &summary)
	if summary.Greeting != "Good morning" {
		t.Errorf("greeting = %q at 10 AM", summary.Greeting)
	}
	if summary.EventCount != 1 {
		t.Errorf("event count = %d, want 1", summary.EventCount)
	}
	if summary.Next == nil || summary.Next.ID != "e1" {
		t.Errorf("next = %+v, want soccer", summary.Next)
	}
}

func TestMembers(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/members")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Members       []model.FamilyMember `json:"members"`
		FallbackColor string               `json:"fallback_color"`
	}
	decode(t, rec, &resp)
	if len(resp.Members) != 4 {
		t.Errorf("roster has %d members, want default 4", len(resp.Members))
	}
	if resp.FallbackColor != "gray" {
		t.Errorf("fallback color = %q", resp.FallbackColor)
	}
}

func TestEventsWindow(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{ID: "in-window", Start: today.Add(16 * time.Hour), End: today.Add(17 * time.Hour)},
		{ID: "too-old", Start: today.AddDate(0, 0, -10), End: today.AddDate(0, 0, -10).Add(time.Hour)},
		{ID: "too-far", Start: today.AddDate(0, 0, 30), End: today.AddDate(0, 0, 30).Add(time.Hour)},
	}
	s := testServer(t, events, nil)

	rec := get(t, s.Handler(), "/api/events?days=7&backfill=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Events []model.CalendarEvent `json:"events"`
	}
	decode(t, rec, &resp)
	if len(resp.Events) != 1 || resp.Events[0].ID != "in-window" {
		t.Errorf("events = %+v, want only in-window", resp.Events)
	}
}

func TestRefreshRequiresPOST(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh status = %d, want 405", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST refresh status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	auth := &config.BasicAuthConfig{Username: "family", Password: "hunter2"}
	s := testServer(t, nil, auth)
	h := s.Handler()

	// No credentials: everything but /health is rejected.
	rec := get(t, h, "/api/members")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate challenge")
	}

	rec = get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("health behind auth = %d, want 200", rec.Code)
	}

	// Wrong password.
	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.SetBasicAuth("family", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	// Correct credentials.
	req = httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.SetBasicAuth("family", "hunter2")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestAPIPathsDoNotFallBackToStatic(t *testing.T) {
	s := testServer(t, nil, nil)
	rec := get(t, s.Handler(), "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown api path status = %d, want 404", rec.Code)
	}
}
