// Package stats aggregates study entries by day, ISO week and subject. All
// functions are pure: they never modify their input and return an empty
// result for empty input.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

// SubjectTotal is the summed duration of one subject.
type SubjectTotal struct {
	Subject string `json:"subject"`
	Minutes int    `json:"minutes"`
}

// DayTotal is the summed duration of one calendar day.
type DayTotal struct {
	Date    time.Time `json:"date"`
	Minutes int       `json:"minutes"`
}

// Week identifies an ISO-8601 week.
type Week struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// Label renders the week as "2026-W09".
func (w Week) Label() string {
	return timecalc.ISOWeekLabel(w.Year, w.Week)
}

func (w Week) before(o Week) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Week < o.Week
}

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) Week {
	y, w := t.ISOWeek()
	return Week{Year: y, Week: w}
}

// WeekTotal is the summed duration of one ISO week.
type WeekTotal struct {
	Week
	Minutes int `json:"minutes"`
}

// TotalMinutes sums the durations of entries dated on the calendar day of on.
func TotalMinutes(entries []model.Entry, on time.Time) int {
	total := 0
	for _, e := range entries {
		if timecalc.SameDay(e.Date, on) {
			total += e.DurationMinutes
		}
	}
	return total
}

// TotalMinutesInRange sums the durations of entries with start <= date <= end,
// compared at day granularity.
func TotalMinutesInRange(entries []model.Entry, start, end time.Time) int {
	from := timecalc.StartOfDay(start)
	to := timecalc.StartOfDay(end)
	total := 0
	for _, e := range entries {
		d := timecalc.StartOfDay(e.Date)
		if !d.Before(from) && !d.After(to) {
			total += e.DurationMinutes
		}
	}
	return total
}

// MinutesBySubject sums durations per subject, largest first. Subjects with
// equal totals keep the order in which they first appear in entries.
func MinutesBySubject(entries []model.Entry) []SubjectTotal {
	index := map[string]int{}
	out := []SubjectTotal{}
	for _, e := range entries {
		i, ok := index[e.Subject]
		if !ok {
			i = len(out)
			index[e.Subject] = i
			out = append(out, SubjectTotal{Subject: e.Subject})
		}
		out[i].Minutes += e.DurationMinutes
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Minutes > out[j].Minutes })
	return out
}

// MinutesByDay sums durations per calendar day, oldest first.
func MinutesByDay(entries []model.Entry) []DayTotal {
	totals := map[string]*DayTotal{}
	out := []DayTotal{}
	for _, e := range entries {
		key := e.Day()
		if t, ok := totals[key]; ok {
			t.Minutes += e.DurationMinutes
			continue
		}
		totals[key] = &DayTotal{Date: timecalc.StartOfDay(e.Date), Minutes: e.DurationMinutes}
	}
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MinutesByWeek sums durations per ISO week, oldest first.
func MinutesByWeek(entries []model.Entry) []WeekTotal {
	totals := map[Week]int{}
	for _, e := range entries {
		totals[WeekOf(e.Date)] += e.DurationMinutes
	}
	out := make([]WeekTotal, 0, len(totals))
	for w, m := range totals {
		out = append(out, WeekTotal{Week: w, Minutes: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week.before(out[j].Week) })
	return out
}

// Filter selects entries for the list, report and export views. Zero
// values disable the corresponding condition.
type Filter struct {
	Subject string
	From    time.Time
	To      time.Time
}

// Apply returns the entries matching f, in input order.
func (f Filter) Apply(entries []model.Entry) []model.Entry {
	out := []model.Entry{}
	for _, e := range entries {
		if f.Subject != "" && !strings.EqualFold(e.Subject, f.Subject) {
			continue
		}
		d := timecalc.StartOfDay(e.Date)
		if !f.From.IsZero() && d.Before(timecalc.StartOfDay(f.From)) {
			continue
		}
		if !f.To.IsZero() && d.After(timecalc.StartOfDay(f.To)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Subjects returns the distinct subjects, sorted.
func Subjects(entries []model.Entry) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range entries {
		if !seen[e.Subject] {
			seen[e.Subject] = true
			out = append(out, e.Subject)
		}
	}
	sort.Strings(out)
	return out
}

// Overview holds the headline numbers shown by the status command.
type Overview struct {
	Today int `json:"today_minutes"`
	Week  int `json:"week_minutes"`
	Total int `json:"total_minutes"`
}

// Summarize computes today's, this ISO week's (Monday up to now) and the
// overall total.
func Summarize(entries []model.Entry, now time.Time) Overview {
	monday, _ := timecalc.WeekRange(now)
	ov := Overview{
		Today: TotalMinutes(entries, now),
		Week:  TotalMinutesInRange(entries, monday, now),
	}
	for _, e := range entries {
		ov.Total += e.DurationMinutes
	}
	return ov
}
