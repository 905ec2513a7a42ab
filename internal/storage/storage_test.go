package storage_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/storage"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func testOptions() storage.Options {
	return storage.Options{Now: func() time.Time { return fixedNow }}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")

	s, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatalf("Open on missing file: %v", err)
	}
	if !errors.Is(report.Unavailable, storage.ErrStorageUnavailable) {
		t.Errorf("report.Unavailable = %v, want ErrStorageUnavailable", report.Unavailable)
	}
	if len(s.Entries()) != 0 {
		t.Errorf("entries = %d, want 0", len(s.Entries()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected canonical empty table to be written: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "id,subject,duration_minutes,date,note,daily_goal_snapshot" {
		t.Errorf("header = %q", got)
	}
}

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}

	goal := 90
	stored, err := s.Append(model.Entry{
		Subject:           "Math, Analysis",
		DurationMinutes:   45,
		Date:              day(2026, 10, 16),
		Note:              `chapter "3"`,
		DailyGoalSnapshot: &goal,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("Append did not assign an id")
	}

	reloaded, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if report.Unavailable != nil {
		t.Fatalf("unexpected reinitialization: %v", report.Unavailable)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.ID != stored.ID {
		t.Errorf("ID = %q, want %q", got.ID, stored.ID)
	}
	if got.Subject != "Math, Analysis" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if got.DurationMinutes != 45 {
		t.Errorf("DurationMinutes = %d, want 45", got.DurationMinutes)
	}
	if !got.Date.Equal(day(2026, 10, 16)) {
		t.Errorf("Date = %v", got.Date)
	}
	if got.Note != `chapter "3"` {
		t.Errorf("Note = %q", got.Note)
	}
	if got.DailyGoalSnapshot == nil || *got.DailyGoalSnapshot != 90 {
		t.Errorf("DailyGoalSnapshot = %v, want 90", got.DailyGoalSnapshot)
	}
}

func TestAppendAssignsUniqueIDs(t *testing.T) {
	s, _, err := storage.Open(filepath.Join(t.TempDir(), "entries.csv"), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		e, err := s.Append(model.Entry{Subject: "Bio", DurationMinutes: 10, Date: fixedNow})
		if err != nil {
			t.Fatal(err)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestAppendValidation(t *testing.T) {
	s, _, err := storage.Open(filepath.Join(t.TempDir(), "entries.csv"), testOptions())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		entry model.Entry
	}{
		{"empty subject", model.Entry{Subject: "", DurationMinutes: 10}},
		{"blank subject", model.Entry{Subject: "   ", DurationMinutes: 10}},
		{"zero duration", model.Entry{Subject: "Math", DurationMinutes: 0}},
		{"negative duration", model.Entry{Subject: "Math", DurationMinutes: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Append(tt.entry)
			if !errors.Is(err, storage.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
			if len(s.Entries()) != 0 {
				t.Errorf("store mutated on validation error")
			}
		})
	}
}

func TestRetentionBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "id,subject,duration_minutes,date,note,daily_goal_snapshot\n"+
		"keep,Math,30,2026-04-20,,90\n"+ // exactly 180 days before 2026-10-17
		"drop,Math,30,2026-04-19,,90\n"+ // 181 days
		"today,Bio,15,2026-10-17,,\n")

	s, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if report.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", report.Pruned)
	}
	ids := map[string]bool{}
	for _, e := range s.Entries() {
		ids[e.ID] = true
	}
	if !ids["keep"] || !ids["today"] {
		t.Errorf("expected keep and today to be retained, got %v", ids)
	}
	if ids["drop"] {
		t.Error("entry 181 days old was not pruned")
	}

	// Retention is persisted eagerly.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "drop,") {
		t.Error("pruned row still present in file after load")
	}
}

func TestLoadDropsUnparseableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "id,subject,duration_minutes,date,note,daily_goal_snapshot\n"+
		"a,Math,30,2026-10-01,ok,90\n"+
		"b,Math,30,not-a-date,,90\n"+
		"c,Math,abc,2026-10-01,,90\n"+
		"d,Math,25.0,01.10.2026,,90.0\n")

	s, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Dropped) != 2 {
		t.Fatalf("Dropped = %d, want 2", len(report.Dropped))
	}
	if report.Dropped[0].Line != 3 || report.Dropped[0].Column != "date" {
		t.Errorf("first drop = %+v", report.Dropped[0])
	}
	if report.Dropped[1].Column != "duration_minutes" {
		t.Errorf("second drop column = %q", report.Dropped[1].Column)
	}
	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].DurationMinutes != 25 || !entries[1].Date.Equal(day(2026, 10, 1)) {
		t.Errorf("lenient row parsed as %+v", entries[1])
	}
}

func TestLoadKeepsRowsAroundStrayQuote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "id,subject,duration_minutes,date,note,daily_goal_snapshot\n"+
		"a,Math,30,2026-10-01,,90\n"+
		"b,Math,20,2026-10-02,says \"hi\" here,90\n"+
		"c,Math,10,2026-10-03,,90\n")

	s, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if report.Unavailable != nil {
		t.Fatalf("report.Unavailable = %v, want nil", report.Unavailable)
	}
	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (dropped %v)", len(entries), report.Dropped)
	}
	if entries[1].Note != `says "hi" here` {
		t.Errorf("note = %q", entries[1].Note)
	}
	if _, err := os.Stat(path + ".corrupt"); !os.IsNotExist(err) {
		t.Errorf("table was moved aside: %v", err)
	}

	// The rewritten file quotes the note and reads back unchanged.
	s2, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := s2.Entries()[1].Note; got != `says "hi" here` {
		t.Errorf("reloaded note = %q", got)
	}
}

func TestLoadUnreadableFileIsLeftAlone(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the table opens fine but fails to read.
	path := filepath.Join(dir, "entries.csv")
	if err := os.Mkdir(path, 0o700); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(path, "keep")
	writeFile(t, marker, "x")

	_, report, err := storage.Open(path, testOptions())
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Fatalf("Open err = %v, want ErrStorageUnavailable", err)
	}
	if !errors.Is(report.Unavailable, storage.ErrStorageUnavailable) {
		t.Errorf("report.Unavailable = %v", report.Unavailable)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing data was touched: %v", err)
	}
	if _, err := os.Stat(path + ".corrupt"); !os.IsNotExist(err) {
		t.Errorf("unexpected move-aside: %v", err)
	}

	goalsPath := filepath.Join(dir, "goals.csv")
	if err := os.Mkdir(goalsPath, 0o700); err != nil {
		t.Fatal(err)
	}
	if _, _, err := storage.OpenGoals(goalsPath, testOptions()); !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Errorf("OpenGoals err = %v, want ErrStorageUnavailable", err)
	}
}

func TestSaveFailureIsStorageUnavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "entries.csv")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	// Replace the data directory with a regular file so writes fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "not a directory")

	_, err = s.Append(model.Entry{Subject: "Math", DurationMinutes: 5, Date: fixedNow})
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Fatalf("Append err = %v, want ErrStorageUnavailable", err)
	}
	if len(s.Entries()) != 0 {
		t.Errorf("entries = %d after failed save, want rollback to 0", len(s.Entries()))
	}
}

func TestLoadDefaultsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "date,subject,id,duration_minutes\n2026-10-10,History,h1,20\n")

	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Note != "" {
		t.Errorf("Note = %q, want empty", entries[0].Note)
	}
	if entries[0].DailyGoalSnapshot != nil {
		t.Errorf("DailyGoalSnapshot = %v, want nil", *entries[0].DailyGoalSnapshot)
	}

	// The file is rewritten with the canonical column set.
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "id,subject,duration_minutes,date,note,daily_goal_snapshot\n") {
		t.Errorf("file not rewritten canonically: %q", string(data))
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "foo,bar\n1,2\n")

	s, report, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(report.Unavailable, storage.ErrStorageUnavailable) {
		t.Errorf("report.Unavailable = %v", report.Unavailable)
	}
	if len(s.Entries()) != 0 {
		t.Error("expected empty table after corrupt load")
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("expected corrupt file to be backed up: %v", err)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entries.csv")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(model.Entry{Subject: "Math", DurationMinutes: 5, Date: fixedNow}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	writeFile(t, path, "id,subject,duration_minutes,date,note,daily_goal_snapshot\n"+
		"abc-1,Math,30,2026-10-01,,\n"+
		"abc-2,Bio,30,2026-10-01,,\n"+
		"xyz-9,Art,30,2026-10-01,,\n")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Delete("abc"); !errors.Is(err, storage.ErrAmbiguousID) {
		t.Errorf("Delete(abc) err = %v, want ErrAmbiguousID", err)
	}
	if _, err := s.Delete("nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(nope) err = %v, want ErrNotFound", err)
	}

	removed, err := s.Delete("xyz")
	if err != nil {
		t.Fatalf("Delete by prefix: %v", err)
	}
	if removed.Subject != "Art" {
		t.Errorf("removed = %+v", removed)
	}
	if _, err := s.Delete("abc-1"); err != nil {
		t.Fatalf("Delete by full id: %v", err)
	}

	reloaded, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 || entries[0].ID != "abc-2" {
		t.Errorf("entries after delete = %+v", entries)
	}
}

func TestUpdateNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.Append(model.Entry{Subject: "Math", DurationMinutes: 30, Date: fixedNow, Note: "old"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateNote(e.ID, "  "); !errors.Is(err, storage.ErrValidation) {
		t.Errorf("UpdateNote(blank) err = %v, want ErrValidation", err)
	}
	got, _ := s.Get(e.ID)
	if got.Note != "old" {
		t.Errorf("note changed on validation error: %q", got.Note)
	}

	if err := s.UpdateNote(e.ID, "new note"); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	reloaded, _, _ := storage.Open(path, testOptions())
	got, err = reloaded.Get(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Note != "new note" {
		t.Errorf("Note = %q, want %q", got.Note, "new note")
	}
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.csv")
	s, _, err := storage.Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(model.Entry{Subject: "Math", DurationMinutes: 30, Date: fixedNow}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	reloaded, _, _ := storage.Open(path, testOptions())
	if len(reloaded.Entries()) != 0 {
		t.Errorf("entries after reset = %d", len(reloaded.Entries()))
	}
}

func TestGoalStoreFirstWriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.csv")
	g, report, err := storage.OpenGoals(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if report.Unavailable == nil {
		t.Error("expected missing goal file to be reported")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("goal file not created: %v", err)
	}

	written, err := g.RecordGoal(fixedNow, 90)
	if err != nil || !written {
		t.Fatalf("first RecordGoal = %v, %v", written, err)
	}
	written, err = g.RecordGoal(fixedNow.Add(2*time.Hour), 120)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("second RecordGoal for same day reported a write")
	}

	reloaded, _, err := storage.OpenGoals(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	goal, ok := reloaded.GoalFor(fixedNow)
	if !ok || goal.Minutes != 90 {
		t.Errorf("GoalFor = %+v, %v; want 90", goal, ok)
	}
}

func TestGoalStoreValidation(t *testing.T) {
	g, _, err := storage.OpenGoals(filepath.Join(t.TempDir(), "goals.csv"), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.RecordGoal(fixedNow, 0); !errors.Is(err, storage.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestGoalHistoryDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.csv")
	writeFile(t, path, "date,goal_minutes\n2026-10-01,60\n2026-10-15,90\n2026-10-03,30\n")
	g, _, err := storage.OpenGoals(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	h := g.History()
	if len(h) != 3 {
		t.Fatalf("history = %d, want 3", len(h))
	}
	want := []time.Time{day(2026, 10, 15), day(2026, 10, 3), day(2026, 10, 1)}
	for i, w := range want {
		if !h[i].Date.Equal(w) {
			t.Errorf("history[%d] = %v, want %v", i, h[i].Date, w)
		}
	}
	// History is a view; the file order is untouched.
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "2026-10-01,60\n2026-10-15,90") {
		t.Errorf("History mutated the stored order: %q", string(data))
	}
}

func TestGoalMinutesForFallback(t *testing.T) {
	g, _, err := storage.OpenGoals(filepath.Join(t.TempDir(), "goals.csv"), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := g.MinutesFor(fixedNow, 90); got != 90 {
		t.Errorf("MinutesFor without goal = %d, want fallback 90", got)
	}
	if _, err := g.RecordGoal(fixedNow, 45); err != nil {
		t.Fatal(err)
	}
	if got := g.MinutesFor(fixedNow.Add(3*time.Hour), 90); got != 45 {
		t.Errorf("MinutesFor = %d, want 45", got)
	}
}
