package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

// EntryStore owns the table of study sessions and its CSV file. Every
// mutation is a full read-modify-write of the file.
type EntryStore struct {
	path    string
	opts    Options
	entries []model.Entry
}

// Open creates an EntryStore for path and loads it.
func Open(path string, opts Options) (*EntryStore, LoadReport, error) {
	s := &EntryStore{path: path, opts: opts.withDefaults()}
	report, err := s.Load()
	if err != nil {
		return nil, report, err
	}
	return s, report, nil
}

// Path returns the backing file path.
func (s *EntryStore) Path() string { return s.path }

// Load reads the backing file, drops unparseable rows, prunes entries older
// than the retention window and writes the result back. A missing file, or
// one without a usable header, resets the store to an empty table. Any other
// read failure is returned and the file is left untouched.
func (s *EntryStore) Load() (LoadReport, error) {
	var report LoadReport

	t, err := readTable(s.path, []string{"id", "subject", "duration_minutes", "date"})
	if err != nil {
		report.Unavailable = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		if !canReinitialize(err) {
			return report, report.Unavailable
		}
		s.entries = []model.Entry{}
		return report, s.Save()
	}
	report.Dropped = append(report.Dropped, t.dropped...)

	loc := s.opts.Now().Location()
	cutoff := timecalc.DaysBefore(s.opts.Now(), s.opts.RetentionDays)

	entries := make([]model.Entry, 0, len(t.records))
	for i := range t.records {
		e, perr := parseEntry(t, i, loc)
		if perr != nil {
			report.Dropped = append(report.Dropped, perr)
			continue
		}
		if e.Date.Before(cutoff) {
			report.Pruned++
			continue
		}
		entries = append(entries, e)
	}
	s.entries = entries
	report.Loaded = len(entries)

	return report, s.Save()
}

// parseEntry converts record i of t into an Entry. Line numbers count the
// header as line 1.
func parseEntry(t *table, i int, loc *time.Location) (model.Entry, *ParseError) {
	line := t.lines[i]

	rawDate := t.cell(i, "date")
	date, err := timecalc.ParseDate(rawDate, loc)
	if err != nil {
		return model.Entry{}, &ParseError{Line: line, Column: "date", Value: rawDate, Err: err}
	}

	rawDur := t.cell(i, "duration_minutes")
	dur, err := parseMinutes(rawDur)
	if err != nil {
		return model.Entry{}, &ParseError{Line: line, Column: "duration_minutes", Value: rawDur, Err: err}
	}

	e := model.Entry{
		ID:              strings.TrimSpace(t.cell(i, "id")),
		Subject:         t.cell(i, "subject"),
		DurationMinutes: dur,
		Date:            date,
		Note:            t.cell(i, "note"),
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if g, err := parseMinutes(t.cell(i, "daily_goal_snapshot")); err == nil {
		e.DailyGoalSnapshot = &g
	}
	return e, nil
}

// parseMinutes accepts integers and integral floats ("90.0"), which is how
// spreadsheet tools tend to write whole numbers back.
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("not a whole number")
		}
		n = int(f)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

// Save atomically writes the in-memory table to the backing file.
func (s *EntryStore) Save() error {
	rows := make([][]string, 0, len(s.entries))
	for _, e := range s.entries {
		goal := ""
		if e.DailyGoalSnapshot != nil {
			goal = strconv.Itoa(*e.DailyGoalSnapshot)
		}
		rows = append(rows, []string{
			e.ID,
			e.Subject,
			strconv.Itoa(e.DurationMinutes),
			e.Day(),
			e.Note,
			goal,
		})
	}
	return writeTable(s.path, model.EntryColumns, rows)
}

// Entries returns a copy of all entries in file order.
func (s *EntryStore) Entries() []model.Entry {
	out := make([]model.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Append validates e, assigns a fresh id and persists it. The stored entry
// is returned.
func (s *EntryStore) Append(e model.Entry) (model.Entry, error) {
	e.Subject = strings.TrimSpace(e.Subject)
	if e.Subject == "" {
		return model.Entry{}, fmt.Errorf("%w: subject must not be empty", ErrValidation)
	}
	if e.DurationMinutes <= 0 {
		return model.Entry{}, fmt.Errorf("%w: duration must be a positive number of minutes", ErrValidation)
	}
	if e.Date.IsZero() {
		e.Date = s.opts.Now()
	}
	e.Date = timecalc.StartOfDay(e.Date)
	e.ID = uuid.NewString()

	prev := s.entries
	s.entries = append(s.Entries(), e)
	if err := s.Save(); err != nil {
		s.entries = prev
		return model.Entry{}, err
	}
	return e, nil
}

// Get returns the entry whose id equals idOrPrefix, or the only entry whose
// id starts with it.
func (s *EntryStore) Get(idOrPrefix string) (model.Entry, error) {
	i, err := s.find(idOrPrefix)
	if err != nil {
		return model.Entry{}, err
	}
	return s.entries[i], nil
}

func (s *EntryStore) find(idOrPrefix string) (int, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return -1, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	match := -1
	for i, e := range s.entries {
		if e.ID == idOrPrefix {
			return i, nil
		}
		if strings.HasPrefix(e.ID, idOrPrefix) {
			if match >= 0 {
				return -1, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	}
	return match, nil
}

// Delete removes the entry matching idOrPrefix and persists. The removed
// entry is returned.
func (s *EntryStore) Delete(idOrPrefix string) (model.Entry, error) {
	i, err := s.find(idOrPrefix)
	if err != nil {
		return model.Entry{}, err
	}
	removed := s.entries[i]

	prev := s.entries
	next := make([]model.Entry, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.entries = next
	if err := s.Save(); err != nil {
		s.entries = prev
		return model.Entry{}, err
	}
	return removed, nil
}

// UpdateNote overwrites the note of the matching entry. An empty note is
// rejected.
func (s *EntryStore) UpdateNote(idOrPrefix, note string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: note must not be empty", ErrValidation)
	}
	i, err := s.find(idOrPrefix)
	if err != nil {
		return err
	}
	old := s.entries[i].Note
	s.entries[i].Note = note
	if err := s.Save(); err != nil {
		s.entries[i].Note = old
		return err
	}
	return nil
}

// Reset removes every entry and persists the empty table.
func (s *EntryStore) Reset() error {
	prev := s.entries
	s.entries = []model.Entry{}
	if err := s.Save(); err != nil {
		s.entries = prev
		return err
	}
	return nil
}
