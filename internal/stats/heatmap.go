package stats

import (
	"sort"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
)

// Weekdays is the heatmap's row axis, Monday first.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Cell addresses one heatmap bucket.
type Cell struct {
	Week    Week
	Weekday time.Weekday
}

// Heatmap holds summed minutes per (ISO week, weekday). Only buckets with
// data are stored; missing buckets are zero.
type Heatmap struct {
	Cells map[Cell]int
	// Weeks lists the weeks that have data, oldest first.
	Weeks []Week
}

// BuildHeatmap buckets entries by ISO week and weekday.
func BuildHeatmap(entries []model.Entry) Heatmap {
	h := Heatmap{Cells: map[Cell]int{}, Weeks: []Week{}}
	seen := map[Week]bool{}
	for _, e := range entries {
		w := WeekOf(e.Date)
		h.Cells[Cell{Week: w, Weekday: e.Date.Weekday()}] += e.DurationMinutes
		if !seen[w] {
			seen[w] = true
			h.Weeks = append(h.Weeks, w)
		}
	}
	sort.Slice(h.Weeks, func(i, j int) bool { return h.Weeks[i].before(h.Weeks[j]) })
	return h
}

// Minutes returns the bucket value, zero when absent.
func (h Heatmap) Minutes(w Week, d time.Weekday) int {
	return h.Cells[Cell{Week: w, Weekday: d}]
}

// Max returns the largest bucket value.
func (h Heatmap) Max() int {
	m := 0
	for _, v := range h.Cells {
		if v > m {
			m = v
		}
	}
	return m
}

// Grid materializes the dense matrix used by the terminal renderer:
// one row per weekday (Monday first), one column per entry of Weeks.
func (h Heatmap) Grid() [][]int {
	grid := make([][]int, len(Weekdays))
	for r, d := range Weekdays {
		grid[r] = make([]int, len(h.Weeks))
		for c, w := range h.Weeks {
			grid[r][c] = h.Minutes(w, d)
		}
	}
	return grid
}

