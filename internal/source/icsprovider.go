package source

import (
	"context"
	"time"

	"famcal/internal/config"
	"famcal/internal/ics"
	appLog "famcal/internal/log"
	"famcal/internal/model"
)

// ICSProvider adapts the configured ICS subscriptions into a Provider:
// fetch (with disk cache), parse, and recurrence-expand into the display
// timezone.
type ICSProvider struct {
	fetcher *ics.Fetcher
	sources []ics.Source
	loc     *time.Location
}

// NewICSProvider builds a provider from config ICS entries. Entries without
// a URL are skipped; entries without an ID borrow their name or URL.
func NewICSProvider(subs []config.ICSConfig, cacheDir string, loc *time.Location) *ICSProvider {
	sources := make([]ics.Source, 0, len(subs))
	for _, sub := range subs {
		if sub.URL == "" {
			continue
		}
		id := sub.ID
		if id == "" {
			id = sub.Name
		}
		if id == "" {
			id = sub.URL
		}
		sources = append(sources, ics.Source{
			ID:       id,
			Name:     sub.Name,
			URL:      sub.URL,
			MemberID: sub.MemberID,
		})
	}
	if loc == nil {
		loc = time.Local
	}
	return &ICSProvider{
		fetcher: ics.NewFetcher(cacheDir),
		sources: sources,
		loc:     loc,
	}
}

// SourceCount reports how many usable subscriptions the provider carries.
func (p *ICSProvider) SourceCount() int { return len(p.sources) }

// Events fetches, parses, and expands all subscriptions over the window.
// Per-source fetch and parse failures degrade to the remaining sources.
func (p *ICSProvider) Events(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.CalendarEvent, error) {
	if len(p.sources) == 0 {
		return nil, nil
	}

	results, fetchErrs := p.fetcher.FetchAll(ctx, p.sources)
	if len(fetchErrs) > 0 {
		appLog.Warn("ics provider: some fetches failed", "failed", len(fetchErrs), "total", len(p.sources))
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.Parse(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics provider: parse failed", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.Expand(parsed, ics.ExpandConfig{
		DisplayLocation: p.loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		return nil, err
	}
	return expanded.Events, nil
}
