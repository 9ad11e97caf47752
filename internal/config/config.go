package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"famcal/internal/model"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
	// MemberID assigns every event from this subscription to a roster
	// member. May be left empty (events then use the fallback color).
	MemberID string `yaml:"member_id" json:"member_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ViewConfig carries the layout constants of the calendar engine.
type ViewConfig struct {
	// VisibleStartHour / VisibleEndHour bound the time grid, e.g. [6, 22).
	VisibleStartHour int `yaml:"visible_start_hour" json:"visible_start_hour"`
	VisibleEndHour   int `yaml:"visible_end_hour" json:"visible_end_hour"`

	// PxPerMinute converts event durations to pixel heights.
	PxPerMinute int `yaml:"px_per_minute" json:"px_per_minute"`

	// MinEventHeightPx keeps zero-duration events visible and clickable.
	MinEventHeightPx int `yaml:"min_event_height_px" json:"min_event_height_px"`

	// PreferredScrollHour is where the time grid initially scrolls to.
	PreferredScrollHour int `yaml:"preferred_scroll_hour" json:"preferred_scroll_hour"`

	// LaneLayout enables interval-coloring lane assignment for overlapping
	// timed events. Off by default: overlaps then stack in source order.
	LaneLayout bool `yaml:"lane_layout" json:"lane_layout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "sunday" (default, matches the dashboard UI)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic ICS refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// View holds the engine layout constants.
	View ViewConfig `yaml:"view" json:"view"`

	// Members is the family roster. Event colors resolve against it.
	Members []model.FamilyMember `yaml:"members" json:"members"`

	// FallbackColor is used for events whose member_id has no roster match.
	FallbackColor string `yaml:"fallback_color" json:"fallback_color"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration. The default
// roster mirrors the demo household used by the fixture event source.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Local",
		WeekStart:   "sunday",
		RefreshCron: "*/15 * * * *",
		View: ViewConfig{
			VisibleStartHour:    6,
			VisibleEndHour:      22,
			PxPerMinute:         1,
			MinEventHeightPx:    20,
			PreferredScrollHour: 8,
			LaneLayout:          false,
		},
		Members: []model.FamilyMember{
			{ID: "1", Name: "Mom", Color: "pink"},
			{ID: "2", Name: "Dad", Color: "blue"},
			{ID: "3", Name: "Kids", Color: "green"},
			{ID: "4", Name: "Family", Color: "purple"},
		},
		FallbackColor: "gray",
		ICS:           []ICSConfig{},
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "sunday", "monday":
		// ok
	case "":
		c.WeekStart = "sunday"
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = "sunday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}

	if c.View.VisibleStartHour < 0 || c.View.VisibleStartHour > 23 {
		c.View.VisibleStartHour = 6
	}
	if c.View.VisibleEndHour <= c.View.VisibleStartHour || c.View.VisibleEndHour > 24 {
		c.View.VisibleEndHour = 22
		if c.View.VisibleEndHour <= c.View.VisibleStartHour {
			c.View.VisibleEndHour = c.View.VisibleStartHour + 1
		}
	}
	if c.View.PxPerMinute <= 0 {
		c.View.PxPerMinute = 1
	}
	if c.View.MinEventHeightPx <= 0 {
		c.View.MinEventHeightPx = 20
	}
	if c.View.PreferredScrollHour < c.View.VisibleStartHour || c.View.PreferredScrollHour >= c.View.VisibleEndHour {
		c.View.PreferredScrollHour = c.View.VisibleStartHour
	}

	if c.FallbackColor == "" {
		c.FallbackColor = "gray"
	}
	if c.Members == nil {
		c.Members = []model.FamilyMember{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// WeekStartDay maps the configured week_start string onto time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Location resolves the configured timezone, falling back to time.Local on
// any error so a bad config never prevents startup.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".famcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
