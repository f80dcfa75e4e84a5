// Package snapshot persists the filtered course list as a flat JSON array so
// a human can review (and hand-edit) the schedule between scrape and sync.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"unisync/internal/model"
)

// Save writes the course list to path atomically (temp file + rename, 0600).
func Save(path string, courses []model.Course) error {
	if path == "" {
		return fmt.Errorf("snapshot path is empty")
	}

	data, err := json.MarshalIndent(courses, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".unisync-snapshot-*.tmp")
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

// Load reads a course list back from path. Every batch is revalidated so a
// hand-edited snapshot cannot smuggle invalid values past construction-time
// checks.
func Load(path string) ([]model.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}

	var courses []model.Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %q: %w", path, err)
	}

	for _, c := range courses {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", path, err)
		}
	}
	return courses, nil
}
