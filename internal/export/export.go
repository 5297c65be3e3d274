// Package export writes intake-log snapshots to disk and backs them up
// to S3-compatible storage.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/datex"
)

// FileName returns the snapshot file name for a moment in time. The date part
// is rendered in the display timezone so a late-night export carries the day
// the user actually sees.
func FileName(t time.Time) string {
	return fmt.Sprintf("medicamentos_%s.json", t.In(datex.Location()).Format("2006-01-02"))
}

// BackupKey returns the object key a snapshot is stored under, grouped by
// year and month.
func BackupKey(t time.Time) string {
	local := t.In(datex.Location())
	return fmt.Sprintf("backups/%d/%02d/%s", local.Year(), int(local.Month()), FileName(t))
}

// WriteSnapshot stores the serialized snapshot under dir, creating the
// directory if needed, and returns the full path of the written file.
func WriteSnapshot(dir string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error writing export file: %w", err)
	}
	return path, nil
}
