// Package source supplies the calendar events the view engine consumes. The
// engine itself has no awareness of loading: a Store that has not refreshed
// yet simply serves an empty slice and the same synchronous view pipeline
// re-runs once data arrives.
package source

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appLog "famcal/internal/log"
	"famcal/internal/model"
)

// Default refresh window around "today". Generous on both sides so month
// navigation stays populated without a re-fetch.
const (
	defaultBackfillDays = 90
	defaultHorizonDays  = 365
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "famcal_source_refresh_total",
		Help: "Event source refresh attempts by outcome.",
	}, []string{"outcome"})

	eventsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "famcal_source_events_loaded",
		Help: "Number of calendar events in the current snapshot.",
	})
)

// Provider yields the events overlapping a time window.
type Provider interface {
	Events(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.CalendarEvent, error)
}

// Store merges every provider into an in-memory snapshot that the web layer
// reads. Refresh replaces the snapshot wholesale; readers always see a
// complete, consistent event list.
type Store struct {
	providers []Provider
	now       func() time.Time

	mu          sync.RWMutex
	events      []model.CalendarEvent
	lastRefresh time.Time
}

// NewStore builds a Store over the given providers. A nil clock falls back
// to time.Now.
func NewStore(providers []Provider, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{providers: providers, now: now}
}

// Events returns the current snapshot. Before the first successful refresh
// this is an empty slice, the documented "not yet loaded" pre-state.
func (s *Store) Events() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// LastRefresh reports when the snapshot was last replaced, zero before the
// first refresh.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// Refresh re-queries every provider over the sliding window around today and
// swaps in the merged result. Provider failures are collected, logged, and
// do not discard what the other providers returned; the snapshot is replaced
// as long as at least one provider succeeded.
func (s *Store) Refresh(ctx context.Context) error {
	now := s.now()
	rangeStart := now.AddDate(0, 0, -defaultBackfillDays)
	rangeEnd := now.AddDate(0, 0, defaultHorizonDays)

	merged := make([]model.CalendarEvent, 0)
	var errs []string
	succeeded := 0

	for _, p := range s.providers {
		events, err := p.Events(ctx, rangeStart, rangeEnd)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		succeeded++
		merged = append(merged, events...)
	}

	if succeeded == 0 && len(s.providers) > 0 {
		refreshTotal.WithLabelValues("error").Inc()
		return errors.New("source: all providers failed: " + strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		appLog.Warn("source refresh partial", "failed", len(errs), "detail", strings.Join(errs, "; "))
	}

	s.mu.Lock()
	s.events = merged
	s.lastRefresh = now
	s.mu.Unlock()

	refreshTotal.WithLabelValues("ok").Inc()
	eventsLoaded.Set(float64(len(merged)))
	appLog.Info("source refresh completed", "events", len(merged), "providers", len(s.providers))
	return nil
}
