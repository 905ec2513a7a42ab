package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrValidation is returned when a required field is empty or out of
	// range. The store is left unchanged.
	ErrValidation = errors.New("validation error")
	// ErrStorageUnavailable marks a backing file that could not be read or
	// written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned when no entry matches an id.
	ErrNotFound = errors.New("entry not found")
	// ErrAmbiguousID is returned when an id prefix matches several entries.
	ErrAmbiguousID = errors.New("ambiguous id prefix")
)

// ParseError describes a stored row that could not be read. The row is
// dropped on load.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Value == "" && e.Column == "row" {
		return fmt.Sprintf("line %d: malformed row: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadReport summarizes what a load cycle did to the stored table.
type LoadReport struct {
	Loaded  int
	Pruned  int
	Dropped []*ParseError
	// Unavailable is non-nil (wrapping ErrStorageUnavailable) when the file
	// could not be read and the store was reset to an empty table.
	Unavailable error
}

// Options configures a store.
type Options struct {
	// RetentionDays is the sliding retention window for entries. Zero
	// means DefaultRetentionDays.
	RetentionDays int
	// Now returns the current time; its location is used for dates.
	Now func() time.Time
}

// DefaultRetentionDays is the number of days entries are kept.
const DefaultRetentionDays = 180

func (o Options) withDefaults() Options {
	if o.RetentionDays <= 0 {
		o.RetentionDays = DefaultRetentionDays
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BaseDir returns the root data directory (~/.stt).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".stt"), nil
}

// File names inside the data directory.
const (
	EntriesFile  = "entries.csv"
	GoalsFile    = "goals.csv"
	SentinelFile = "backup_log.txt"
)

// table is a CSV file read into memory with its header indexed by name.
type table struct {
	columns map[string]int
	records [][]string
	// lines holds the file line each record starts on.
	lines []int
	// dropped holds records the CSV reader rejected.
	dropped []*ParseError
}

// cell returns the value of column name in record i, or "" if the column
// does not exist or the record is short.
func (t *table) cell(i int, name string) string {
	idx, ok := t.columns[name]
	if !ok || idx >= len(t.records[i]) {
		return ""
	}
	return t.records[i][idx]
}

func (t *table) has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// errCorrupt marks a table that existed but had no usable header.
// readTable only returns it once the file has been moved aside.
var errCorrupt = errors.New("corrupt table")

// readTable loads a CSV file and checks that the required columns exist.
// A file without a usable header is moved aside to <path>.corrupt. Open or
// read failures leave the file where it is.
func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	t, err := parseTable(f, required)
	f.Close()
	if errors.Is(err, errCorrupt) {
		backupPath := path + ".corrupt"
		if rerr := os.Rename(path, backupPath); rerr != nil {
			return nil, fmt.Errorf("%s: %v (could not move it aside: %v)", path, err, rerr)
		}
		return nil, fmt.Errorf("%s (backed up to %s): %w", path, backupPath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	return t, nil
}

// canReinitialize reports whether a readTable error leaves nothing worth
// keeping at the path: the file never existed or was moved aside.
func canReinitialize(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, errCorrupt)
}

func parseTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", errCorrupt)
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return nil, fmt.Errorf("%w: header: %v", errCorrupt, err)
	}
	if err != nil {
		return nil, err
	}

	t := &table{columns: map[string]int{}}
	for i, name := range header {
		t.columns[name] = i
	}
	for _, name := range required {
		if !t.has(name) {
			return nil, fmt.Errorf("%w: missing column %q", errCorrupt, name)
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if errors.As(err, &pe) {
			t.dropped = append(t.dropped, &ParseError{Line: pe.StartLine, Column: "row", Err: pe.Err})
			continue
		}
		if err != nil {
			return nil, err
		}
		t.records = append(t.records, rec)
		t.lines = append(t.lines, lineOf(cr))
	}
	return t, nil
}

func lineOf(cr *csv.Reader) int {
	line, _ := cr.FieldPos(0)
	return line
}

// writeTable atomically writes a CSV file: header plus rows.
func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: creating directories: %w", ErrStorageUnavailable, err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: writing temp file: %w", ErrStorageUnavailable, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(header)
	_ = w.WriteAll(rows) // WriteAll flushes
	if err := w.Error(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: encoding CSV: %w", ErrStorageUnavailable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing temp file: %w", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming temp file: %w", ErrStorageUnavailable, err)
	}
	return nil
}
