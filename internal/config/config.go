package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"unisync/internal/model"
)

// fileConfig is the on-disk YAML shape. Dates are kept as strings in the file
// and resolved into typed values by Load.
type fileConfig struct {
	// DefaultStartDate / DefaultEndDate ("YYYY-MM-DD") bound recurrence
	// validity for batches whose markup carried no usable date range.
	DefaultStartDate string `yaml:"default_start_date"`
	DefaultEndDate   string `yaml:"default_end_date"`

	// DefaultEventColor is the calendar palette index (1..11) assigned to
	// parsed batches.
	DefaultEventColor int `yaml:"default_event_color"`

	// Timezone is the IANA zone all event instants are expressed in.
	Timezone string `yaml:"timezone"`

	// ExcludedDates lists holidays as single dates ("2026-02-16") or
	// inclusive ranges ("2026-03-02 - 2026-03-06").
	ExcludedDates []string `yaml:"excluded_dates"`

	// RunHeadlessBrowser controls whether the portal scrape shows a window.
	RunHeadlessBrowser bool `yaml:"run_headless_browser"`

	// CalendarSummary is the target calendar's display name.
	CalendarSummary string `yaml:"calendar_summary"`

	ClientSecretPath string `yaml:"client_secret_path"`
	TokenPath        string `yaml:"token_path"`
	SnapshotPath     string `yaml:"snapshot_path"`

	// SyncCron is an optional cron spec for watch mode (e.g. "0 6 * * MON").
	SyncCron string `yaml:"sync_cron"`
}

// Config is the resolved, immutable application configuration. It is loaded
// once at process start and passed by reference into both pipeline stages;
// nothing mutates it afterwards.
type Config struct {
	DefaultStartDate  model.Date
	DefaultEndDate    model.Date
	DefaultEventColor int

	Timezone string
	Location *time.Location

	// ExcludedDates is sorted and deduplicated, with ranges expanded.
	ExcludedDates []model.Date

	RunHeadlessBrowser bool

	CalendarSummary  string
	ClientSecretPath string
	TokenPath        string
	SnapshotPath     string
	SyncCron         string
}

func defaultFileConfig() *fileConfig {
	today := time.Now()
	return &fileConfig{
		DefaultStartDate:   today.Format("2006-01-02"),
		DefaultEndDate:     today.AddDate(0, 0, 16*7).Format("2006-01-02"),
		DefaultEventColor:  1,
		Timezone:           "Asia/Kolkata",
		ExcludedDates:      []string{},
		RunHeadlessBrowser: true,
		CalendarSummary:    "UniSync",
		ClientSecretPath:   "secrets/client_secret.json",
		TokenPath:          "secrets/token.json",
		SnapshotPath:       "data/courses.json",
		SyncCron:           "",
	}
}

// normalize fills in missing values so partially-filled configs still resolve.
func (fc *fileConfig) normalize() {
	if fc.DefaultEventColor == 0 {
		fc.DefaultEventColor = 1
	}
	if fc.Timezone == "" {
		fc.Timezone = "Asia/Kolkata"
	}
	if fc.CalendarSummary == "" {
		fc.CalendarSummary = "UniSync"
	}
	if fc.ClientSecretPath == "" {
		fc.ClientSecretPath = "secrets/client_secret.json"
	}
	if fc.TokenPath == "" {
		fc.TokenPath = "secrets/token.json"
	}
	if fc.SnapshotPath == "" {
		fc.SnapshotPath = "data/courses.json"
	}
	if fc.ExcludedDates == nil {
		fc.ExcludedDates = []string{}
	}
}

// Load reads the YAML config at path. If the file does not exist, a default
// config is written there (0600) and returned, matching first-run behavior.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fc := defaultFileConfig()
			if saveErr := save(path, fc); saveErr != nil {
				return nil, saveErr
			}
			return resolve(fc)
		}
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	fc.normalize()

	return resolve(&fc)
}

// resolve validates the raw file values and produces the typed Config.
func resolve(fc *fileConfig) (*Config, error) {
	start, err := model.ParseDate(fc.DefaultStartDate)
	if err != nil {
		return nil, fmt.Errorf("default_start_date: %w", err)
	}
	end, err := model.ParseDate(fc.DefaultEndDate)
	if err != nil {
		return nil, fmt.Errorf("default_end_date: %w", err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("default_start_date %s must be before or equal to default_end_date %s", start, end)
	}

	if fc.DefaultEventColor < model.MinEventColor || fc.DefaultEventColor > model.MaxEventColor {
		return nil, fmt.Errorf("default_event_color %d out of range [%d,%d]",
			fc.DefaultEventColor, model.MinEventColor, model.MaxEventColor)
	}

	loc, err := time.LoadLocation(fc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", fc.Timezone, err)
	}

	excluded, err := expandExcludedDates(fc.ExcludedDates)
	if err != nil {
		return nil, err
	}

	return &Config{
		DefaultStartDate:   start,
		DefaultEndDate:     end,
		DefaultEventColor:  fc.DefaultEventColor,
		Timezone:           fc.Timezone,
		Location:           loc,
		ExcludedDates:      excluded,
		RunHeadlessBrowser: fc.RunHeadlessBrowser,
		CalendarSummary:    fc.CalendarSummary,
		ClientSecretPath:   fc.ClientSecretPath,
		TokenPath:          fc.TokenPath,
		SnapshotPath:       fc.SnapshotPath,
		SyncCron:           fc.SyncCron,
	}, nil
}

// expandExcludedDates expands single dates and inclusive "A - B" ranges into a
// sorted, deduplicated date list.
func expandExcludedDates(entries []string) ([]model.Date, error) {
	seen := make(map[string]model.Date)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, " - ") {
			parts := strings.SplitN(entry, " - ", 2)
			start, err := model.ParseDate(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, fmt.Errorf("excluded_dates range %q: %w", entry, err)
			}
			end, err := model.ParseDate(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("excluded_dates range %q: %w", entry, err)
			}
			if start.After(end) {
				return nil, fmt.Errorf("excluded_dates range %q: start must be before or equal to end", entry)
			}
			for d := start; !d.After(end); d = d.AddDays(1) {
				seen[d.String()] = d
			}
			continue
		}

		d, err := model.ParseDate(entry)
		if err != nil {
			return nil, fmt.Errorf("excluded_dates entry %q: %w", entry, err)
		}
		seen[d.String()] = d
	}

	out := make([]model.Date, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// save writes a config file atomically with 0600 permissions.
func save(path string, fc *fileConfig) error {
	fc.normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(fc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".unisync-config-*.tmp")
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
	return os.Rename(tmpName, path)
}
