package model

import "time"

// Entry represents a single logged study session.
type Entry struct {
	ID              string    `json:"id" yaml:"id"`
	Subject         string    `json:"subject" yaml:"subject"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes"`
	Date            time.Time `json:"date" yaml:"date"`
	Note            string    `json:"note" yaml:"note"`
	// DailyGoalSnapshot is the daily goal in effect when the entry was
	// created. nil means the stored cell was empty.
	DailyGoalSnapshot *int `json:"daily_goal_snapshot" yaml:"daily_goal_snapshot"`
}

// Day returns the entry's date formatted as YYYY-MM-DD.
func (e Entry) Day() string {
	return e.Date.Format(DateLayout)
}

// Goal is the daily study target recorded for one calendar day.
type Goal struct {
	Date    time.Time `json:"date" yaml:"date"`
	Minutes int       `json:"goal_minutes" yaml:"goal_minutes"`
}

// DateLayout is the on-disk and display format for calendar dates.
const DateLayout = "2006-01-02"

// EntryColumns is the canonical column order of the entry table.
var EntryColumns = []string{"id", "subject", "duration_minutes", "date", "note", "daily_goal_snapshot"}

// GoalColumns is the canonical column order of the goal table.
var GoalColumns = []string{"date", "goal_minutes"}
