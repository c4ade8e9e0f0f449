package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// TagConfig is one entry of the tag palette used when rendering a day's
// events.
type TagConfig struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Config is the top-level application configuration. It is loaded once at
// startup and passed down explicitly; no component reads it on demand.
type Config struct {
	// Timezone is the IANA reference zone that timezone-qualified ICS
	// timestamps are normalized into (e.g. "America/Los_Angeles").
	Timezone string `yaml:"timezone" json:"timezone"`

	// CalendarName is embedded in exported ICS files.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// AllDayStartHour / AllDayEndHour define the timed window synthesized
	// for imported all-day events.
	AllDayStartHour int `yaml:"all_day_start_hour" json:"all_day_start_hour"`
	AllDayEndHour   int `yaml:"all_day_end_hour" json:"all_day_end_hour"`

	// MaxInstances caps a single recurrence expansion.
	MaxInstances int `yaml:"max_instances" json:"max_instances"`

	// ExportCron is a cron-style schedule (e.g. "*/15 * * * *") used by
	// watch mode to re-export the calendar periodically.
	ExportCron string `yaml:"export_cron" json:"export_cron"`

	// DatabasePath is the SQLite event store location.
	DatabasePath string `yaml:"database_path" json:"database_path"`

	// Tags is the tag palette; DefaultTagColor is used for tags not in it.
	Tags            []TagConfig `yaml:"tags" json:"tags"`
	DefaultTagColor string      `yaml:"default_tag_color" json:"default_tag_color"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:        "America/Los_Angeles",
		CalendarName:    "My Calendar",
		AllDayStartHour: 9,
		AllDayEndHour:   17,
		MaxInstances:    730,
		ExportCron:      "*/15 * * * *",
		DatabasePath:    "calgrid.db",
		Tags: []TagConfig{
			{Name: "Work", Color: "#007bff"},
			{Name: "Personal", Color: "#28a745"},
			{Name: "Social", Color: "#ffc107"},
			{Name: "Important", Color: "#dc3545"},
		},
		DefaultTagColor: "#6b7280",
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.CalendarName == "" {
		c.CalendarName = def.CalendarName
	}
	if c.AllDayStartHour <= 0 || c.AllDayStartHour > 23 {
		c.AllDayStartHour = def.AllDayStartHour
	}
	if c.AllDayEndHour <= 0 || c.AllDayEndHour > 23 {
		c.AllDayEndHour = def.AllDayEndHour
	}
	if c.MaxInstances <= 0 {
		c.MaxInstances = def.MaxInstances
	}
	if c.ExportCron == "" {
		c.ExportCron = def.ExportCron
	}
	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	if c.Tags == nil {
		c.Tags = def.Tags
	}
	if c.DefaultTagColor == "" {
		c.DefaultTagColor = def.DefaultTagColor
	}
}

// Location resolves the configured reference timezone, falling back to
// time.Local when the zone database does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TagColor returns the palette color for a tag name, or the default color
// for unknown tags.
func (c *Config) TagColor(name string) string {
	for _, tag := range c.Tags {
		if tag.Name == name {
			return tag.Color
		}
	}
	return c.DefaultTagColor
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there
//     (creating the parent directory) and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path: parent directory ensured (0700),
// YAML marshaled, written atomically via temp file + rename, 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
