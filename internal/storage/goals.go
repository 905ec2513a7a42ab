package storage

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

// GoalStore owns the table of daily goals. There is at most one goal per
// calendar day; the first one recorded wins.
type GoalStore struct {
	path  string
	opts  Options
	goals []model.Goal
}

// OpenGoals creates a GoalStore for path and loads it.
func OpenGoals(path string, opts Options) (*GoalStore, LoadReport, error) {
	s := &GoalStore{path: path, opts: opts.withDefaults()}
	report, err := s.Load()
	if err != nil {
		return nil, report, err
	}
	return s, report, nil
}

// Load reads the goal table. A missing or corrupt file is replaced by an
// empty table, which is written immediately. A file that exists but cannot
// be opened is reported as a fatal error.
func (s *GoalStore) Load() (LoadReport, error) {
	var report LoadReport

	t, err := readTable(s.path, model.GoalColumns)
	if err != nil {
		report.Unavailable = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		if !canReinitialize(err) {
			return report, report.Unavailable
		}
		s.goals = []model.Goal{}
		return report, s.save()
	}
	report.Dropped = append(report.Dropped, t.dropped...)

	loc := s.opts.Now().Location()
	goals := make([]model.Goal, 0, len(t.records))
	for i := range t.records {
		line := t.lines[i]
		rawDate := t.cell(i, "date")
		date, err := timecalc.ParseDate(rawDate, loc)
		if err != nil {
			report.Dropped = append(report.Dropped, &ParseError{Line: line, Column: "date", Value: rawDate, Err: err})
			continue
		}
		rawMin := t.cell(i, "goal_minutes")
		minutes, err := parseMinutes(rawMin)
		if err != nil {
			report.Dropped = append(report.Dropped, &ParseError{Line: line, Column: "goal_minutes", Value: rawMin, Err: err})
			continue
		}
		goals = append(goals, model.Goal{Date: date, Minutes: minutes})
	}
	s.goals = goals
	report.Loaded = len(goals)
	return report, nil
}

func (s *GoalStore) save() error {
	rows := make([][]string, 0, len(s.goals))
	for _, g := range s.goals {
		rows = append(rows, []string{g.Date.Format(model.DateLayout), strconv.Itoa(g.Minutes)})
	}
	return writeTable(s.path, model.GoalColumns, rows)
}

// GoalFor returns the goal recorded for the calendar day of date.
func (s *GoalStore) GoalFor(date time.Time) (model.Goal, bool) {
	for _, g := range s.goals {
		if timecalc.SameDay(g.Date, date) {
			return g, true
		}
	}
	return model.Goal{}, false
}

// MinutesFor returns the goal recorded for date, or fallback if none is.
func (s *GoalStore) MinutesFor(date time.Time, fallback int) int {
	if g, ok := s.GoalFor(date); ok {
		return g.Minutes
	}
	return fallback
}

// RecordGoal stores minutes as the goal for date's calendar day. It reports
// false without writing if that day already has a goal.
func (s *GoalStore) RecordGoal(date time.Time, minutes int) (bool, error) {
	if minutes <= 0 {
		return false, fmt.Errorf("%w: goal must be a positive number of minutes", ErrValidation)
	}
	if _, exists := s.GoalFor(date); exists {
		return false, nil
	}

	prev := s.goals
	next := make([]model.Goal, len(prev), len(prev)+1)
	copy(next, prev)
	s.goals = append(next, model.Goal{Date: timecalc.StartOfDay(date), Minutes: minutes})
	if err := s.save(); err != nil {
		s.goals = prev
		return false, err
	}
	return true, nil
}

// History returns all goals, newest first.
func (s *GoalStore) History() []model.Goal {
	out := make([]model.Goal, len(s.goals))
	copy(out, s.goals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Reset removes every goal and persists the empty table.
func (s *GoalStore) Reset() error {
	prev := s.goals
	s.goals = []model.Goal{}
	if err := s.save(); err != nil {
		s.goals = prev
		return err
	}
	return nil
}
