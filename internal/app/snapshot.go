package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

// WriteSnapshot exports events to path in the format implied by its
// extension (.json, .csv or .ics). The previous file is kept as a backup
// and the new one is written through a temp file.
func WriteSnapshot(path string, events []store.Event, now time.Time) error {
	var buf bytes.Buffer
	var err error
	switch format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); format {
	case FormatJSON, "":
		err = WriteJSON(&buf, "", events, now)
	case FormatCSV:
		err = WriteCSV(&buf, events)
	case FormatICS:
		err = WriteICS(&buf, events, ICSOptions{Now: now})
	default:
		return fmt.Errorf("unsupported snapshot format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmpFile := path + TmpSuffix
	if err := os.WriteFile(tmpFile, buf.Bytes(), FilePermissions); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+BackupSuffix); err != nil {
			os.Remove(tmpFile)
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	return os.Rename(tmpFile, path)
}
