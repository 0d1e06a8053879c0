package snapshot

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// timestampLayout renders as "YYYY MM DD HH MM SS".
const timestampLayout = "2006 01 02 15 04 05"

// Kind describes where one endpoint's snapshot and fetch log live.
type Kind struct {
	Name    string
	File    string
	Log     string
	Message string
}

var (
	Parks = Kind{
		Name:    "parks",
		File:    "park_names.json",
		Log:     "parks.log",
		Message: "Fetched park names from API",
	}
	Amenities = Kind{
		Name:    "amenities",
		File:    "amenities.json",
		Log:     "amenities.log",
		Message: "Fetched amenities from API",
	}
)

// Archiver receives a copy of every snapshot written locally.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// Writer persists raw API bodies as snapshot files and appends a line to the
// matching fetch log.
type Writer struct {
	dataDir  string
	logsDir  string
	clock    clockwork.Clock
	archiver Archiver
}

// NewWriter creates a snapshot writer. archiver may be nil.
func NewWriter(dataDir, logsDir string, clock clockwork.Clock, archiver Archiver) *Writer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{
		dataDir:  dataDir,
		logsDir:  logsDir,
		clock:    clock,
		archiver: archiver,
	}
}

// Save replaces the snapshot file for kind with body, mirrors it to the
// archiver if one is set, then appends a timestamped line to the kind's log.
// It returns the snapshot path.
func (w *Writer) Save(ctx context.Context, kind Kind, body []byte) (string, error) {
	now := w.clock.Now().UTC()

	dst := filepath.Join(w.dataDir, kind.File)
	if err := writeFileAtomic(dst, body); err != nil {
		return "", fmt.Errorf("write %s snapshot: %w", kind.Name, err)
	}

	if w.archiver != nil {
		key := path.Join(now.Format("2006/01/02"), kind.File)
		if err := w.archiver.Archive(ctx, key, body); err != nil {
			return "", fmt.Errorf("archive %s snapshot: %w", kind.Name, err)
		}
	}

	if err := w.appendLog(kind, now); err != nil {
		return "", fmt.Errorf("append %s log: %w", kind.Name, err)
	}
	return dst, nil
}

func (w *Writer) appendLog(kind Kind, now time.Time) error {
	if err := os.MkdirAll(w.logsDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.logsDir, kind.Log), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%s - %s\n", now.Format(timestampLayout), kind.Message); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeFileAtomic writes through a temp file in the same directory so readers
// never see a half-written snapshot.
func writeFileAtomic(dst string, body []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
