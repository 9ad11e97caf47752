package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"famcal/internal/config"
	appLog "famcal/internal/log"
	"famcal/internal/model"
	"famcal/internal/source"
	"famcal/internal/view"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "famcal_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "famcal_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Server exposes the computed calendar views, the dashboard summary, and the
// event source over HTTP for the presentation layer.
type Server struct {
	cfg    *config.Config
	engine *view.Engine
	store  *source.Store
	debug  bool
	mux    *http.ServeMux
}

// embeddedStatic contains the exported static UI build. The directory under
// internal/web/static mirrors the UI bundler output (index.html etc).
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server around the engine and event store.
func NewServer(cfg *config.Config, engine *view.Engine, store *source.Store, debug bool) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  store,
		debug:  debug,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="famcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.handle("/health", s.handleHealth)
	s.handle("/api/view", s.handleView)
	s.handle("/api/navigate", s.handleNavigate)
	s.handle("/api/dashboard", s.handleDashboard)
	s.handle("/api/events", s.handleEvents)
	s.handle("/api/members", s.handleMembers)
	s.handle("/api/refresh", s.handleRefresh)
	s.handle("/preview.png", s.handlePreview)
	s.mux.Handle("/metrics", promhttp.Handler())

	// Static UI fallback for all non-API paths.
	s.mux.Handle("/", s.staticFileServer())
}

// handle registers a handler with request metrics on its route.
func (s *Server) handle(route string, h http.HandlerFunc) {
	s.mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		httpRequests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// viewResponse is the JSON shape for /api/view. Exactly one of Month or Grid
// is set, depending on the mode.
type viewResponse struct {
	Mode      model.ViewMode       `json:"mode"`
	Anchor    time.Time            `json:"anchor"`
	WeekStart string               `json:"week_start"`
	Month     []view.MonthCell     `json:"month,omitempty"`
	Grid      *view.TimeGridLayout `json:"grid,omitempty"`
}

// handleView computes the full render structure for an anchor date and mode.
//
// GET /api/view?mode=month&anchor=2024-03-15
//   - mode:   day | week | month (default month)
//   - anchor: YYYY-MM-DD in the display timezone (default today)
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := model.ViewMode(q.Get("mode"))
	if !mode.Valid() {
		mode = model.ModeMonth
	}
	anchor, err := s.parseAnchor(q.Get("anchor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid anchor date, want YYYY-MM-DD")
		return
	}

	events := s.store.Events()
	resp := viewResponse{
		Mode:      mode,
		Anchor:    anchor,
		WeekStart: s.cfg.WeekStart,
	}

	if mode == model.ModeMonth {
		resp.Month = s.engine.MonthGrid(anchor, events, s.cfg.Members)
	} else {
		grid := s.engine.TimeGrid(anchor, mode, events, s.cfg.Members)
		resp.Grid = &grid
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleNavigate computes the next ViewState for a navigation intent without
// touching any server state; the presentation layer owns the round trip.
//
// GET /api/navigate?mode=week&anchor=2024-03-15&intent=next
//   - intent: previous | next | today | mode | select
//   - to:     target mode when intent=mode
//   - date:   clicked day (YYYY-MM-DD) when intent=select
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := model.ViewMode(q.Get("mode"))
	if !mode.Valid() {
		mode = model.ModeMonth
	}
	anchor, err := s.parseAnchor(q.Get("anchor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid anchor date, want YYYY-MM-DD")
		return
	}

	state := model.ViewState{Anchor: anchor, Mode: mode}

	switch intent := q.Get("intent"); intent {
	case "previous", "next", "today":
		state = s.engine.Navigate(state, model.Intent(intent))
	case "mode":
		state = view.SwitchMode(state, model.ViewMode(q.Get("to")))
	case "select":
		date, err := s.parseAnchor(q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		state = view.SelectDate(state, date)
	default:
		writeError(w, http.StatusBadRequest, "unknown intent")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	summary := s.engine.Summary(s.store.Events(), s.cfg.Members)
	writeJSON(w, http.StatusOK, summary)
}

// eventsResponse is the JSON shape for /api/events.
type eventsResponse struct {
	Events          []model.CalendarEvent `json:"events"`
	RangeStart      time.Time             `json:"range_start"`
	RangeEnd        time.Time             `json:"range_end"`
	DisplayTimeZone string                `json:"display_timezone"`
	LastRefresh     time.Time             `json:"last_refresh"`
}

// handleEvents returns the raw merged events in a window around today.
//
// GET /api/events?days=7&backfill=1
//   - days:     how many future days to include (default 7)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	loc := s.cfg.Location()
	today := s.engine.Today()
	rangeStart := today.AddDate(0, 0, -backfill)
	rangeEnd := today.AddDate(0, 0, days+1)

	in := make([]model.CalendarEvent, 0)
	for _, ev := range s.store.Events() {
		if ev.Start.Before(rangeStart) || !ev.Start.Before(rangeEnd) {
			continue
		}
		in = append(in, ev)
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          in,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		LastRefresh:     s.store.LastRefresh(),
	})
}

func (s *Server) handleMembers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Members       []model.FamilyMember `json:"members"`
		FallbackColor string               `json:"fallback_color"`
	}{
		Members:       s.cfg.Members,
		FallbackColor: s.cfg.FallbackColor,
	})
}

// handleRefresh forces an event source refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if err := s.store.Refresh(ctx); err != nil {
		appLog.Error("manual refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Events      int       `json:"events"`
		LastRefresh time.Time `json:"last_refresh"`
	}{
		Events:      len(s.store.Events()),
		LastRefresh: s.store.LastRefresh(),
	})
}

// handlePreview serves the last captured dashboard snapshot from disk. The
// path convention matches the capture pipeline in cmd/famcal:
//   - default: /var/lib/famcal/preview.png
//   - debug:   ./cache/preview.png
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	previewPath := "/var/lib/famcal/preview.png"
	if s.debug {
		previewPath = "./cache/preview.png"
	}
	http.ServeFile(w, r, previewPath)
}

// staticFileServer serves the embedded static UI from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /api/* must 404 instead of falling back to HTML.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// parseAnchor parses a YYYY-MM-DD query value in the display timezone; an
// empty value means today.
func (s *Server) parseAnchor(v string) (time.Time, error) {
	if v == "" {
		return s.engine.Today(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, s.cfg.Location())
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts it
// down gracefully.
func ListenAndServe(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ignoreServerClosed(<-errCh)
	case err := <-errCh:
		return ignoreServerClosed(err)
	}
}

// ListenAndServe returns ErrServerClosed after Shutdown, which is not an
// error for callers.
func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
