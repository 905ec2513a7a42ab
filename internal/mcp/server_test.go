package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/study-time-tracker/internal/storage"
)

var fixedNow = time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)

func setupServer(t *testing.T, afterWrite func(context.Context) error) *Server {
	t.Helper()
	dir := t.TempDir()
	opts := storage.Options{Now: func() time.Time { return fixedNow }}

	entries, _, err := storage.Open(filepath.Join(dir, storage.EntriesFile), opts)
	require.NoError(t, err)
	goals, _, err := storage.OpenGoals(filepath.Join(dir, storage.GoalsFile), opts)
	require.NoError(t, err)

	s, err := NewServer(Options{
		Entries:     entries,
		Goals:       goals,
		DefaultGoal: 90,
		Now:         func() time.Time { return fixedNow },
		AfterWrite:  afterWrite,
	})
	require.NoError(t, err)
	return s
}

func TestNewServerRequiresStores(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestLogSession(t *testing.T) {
	calls := 0
	s := setupServer(t, func(context.Context) error { calls++; return nil })
	ctx := context.Background()

	_, out, err := s.handleLogSession(ctx, &mcp.CallToolRequest{}, logSessionInput{Subject: " Math ", Minutes: 45})
	require.NoError(t, err)
	assert.Equal(t, "Math", out.Session.Subject)
	assert.Equal(t, "2026-10-17", out.Session.Date)
	require.NotNil(t, out.Session.GoalSnapshot)
	assert.Equal(t, 90, *out.Session.GoalSnapshot)
	assert.Contains(t, out.Message, "45m of Math")
	assert.Empty(t, out.Warning)
	assert.Equal(t, 1, calls)

	_, out, err = s.handleLogSession(ctx, &mcp.CallToolRequest{}, logSessionInput{Subject: "Bio", Minutes: 30, Date: "2026-10-15"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", out.Session.Date)
	assert.Len(t, s.opts.Entries.Entries(), 2)
}

func TestLogSessionValidation(t *testing.T) {
	s := setupServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input logSessionInput
	}{
		{"empty subject", logSessionInput{Subject: "  ", Minutes: 10}},
		{"zero minutes", logSessionInput{Subject: "Math"}},
		{"bad date", logSessionInput{Subject: "Math", Minutes: 10, Date: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.handleLogSession(ctx, &mcp.CallToolRequest{}, tt.input)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, s.opts.Entries.Entries())
}

func TestLogSessionBackupWarning(t *testing.T) {
	s := setupServer(t, func(context.Context) error { return errors.New("offline") })
	_, out, err := s.handleLogSession(context.Background(), &mcp.CallToolRequest{}, logSessionInput{Subject: "Math", Minutes: 10})
	require.NoError(t, err)
	assert.Equal(t, "offline", out.Warning)
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := setupServer(t, nil)
	ctx := context.Background()
	for _, in := range []logSessionInput{
		{Subject: "Math", Minutes: 10, Date: "2026-10-10"},
		{Subject: "Bio", Minutes: 20, Date: "2026-10-11"},
		{Subject: "math", Minutes: 30, Date: "2026-10-12"},
	} {
		_, _, err := s.handleLogSession(ctx, &mcp.CallToolRequest{}, in)
		require.NoError(t, err)
	}

	_, out, err := s.handleListSessions(ctx, &mcp.CallToolRequest{}, listSessionsInput{filterInput: filterInput{Subject: "MATH"}})
	require.NoError(t, err)
	require.Len(t, out.Sessions, 2)
	assert.Equal(t, "2026-10-12", out.Sessions[0].Date)
	assert.Equal(t, 40, out.TotalMinutes)

	_, out, err = s.handleListSessions(ctx, &mcp.CallToolRequest{}, listSessionsInput{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out.Sessions, 1)
	assert.Equal(t, 60, out.TotalMinutes)

	_, _, err = s.handleListSessions(ctx, &mcp.CallToolRequest{}, listSessionsInput{filterInput: filterInput{From: "not-a-date"}})
	assert.Error(t, err)
}

func TestTodaySummaryAndGoal(t *testing.T) {
	s := setupServer(t, nil)
	ctx := context.Background()

	_, sum, err := s.handleTodaySummary(ctx, &mcp.CallToolRequest{}, todaySummaryInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TodayMinutes)
	assert.Equal(t, 90, sum.GoalMinutes)
	assert.True(t, sum.GoalIsDefault)
	assert.Equal(t, "behind", sum.GoalTier)

	_, goal, err := s.handleSetGoal(ctx, &mcp.CallToolRequest{}, setGoalInput{Minutes: 60})
	require.NoError(t, err)
	assert.True(t, goal.Written)

	_, goal, err = s.handleSetGoal(ctx, &mcp.CallToolRequest{}, setGoalInput{Minutes: 120})
	require.NoError(t, err)
	assert.False(t, goal.Written)
	assert.Equal(t, 60, goal.GoalMinutes)

	_, _, err = s.handleSetGoal(ctx, &mcp.CallToolRequest{}, setGoalInput{Minutes: -5})
	assert.Error(t, err)

	_, _, err = s.handleLogSession(ctx, &mcp.CallToolRequest{}, logSessionInput{Subject: "Math", Minutes: 30})
	require.NoError(t, err)

	_, sum, err = s.handleTodaySummary(ctx, &mcp.CallToolRequest{}, todaySummaryInput{})
	require.NoError(t, err)
	assert.Equal(t, 30, sum.TodayMinutes)
	assert.Equal(t, 60, sum.GoalMinutes)
	assert.False(t, sum.GoalIsDefault)
	assert.Equal(t, 30, sum.Remaining)
	assert.Equal(t, "halfway", sum.GoalTier)
}

func TestSubjectAndWeeklyTotals(t *testing.T) {
	s := setupServer(t, nil)
	ctx := context.Background()
	for _, in := range []logSessionInput{
		{Subject: "Math", Minutes: 10, Date: "2026-10-05"},
		{Subject: "Bio", Minutes: 50, Date: "2026-10-06"},
		{Subject: "Math", Minutes: 30, Date: "2026-10-12"},
	} {
		_, _, err := s.handleLogSession(ctx, &mcp.CallToolRequest{}, in)
		require.NoError(t, err)
	}

	_, subj, err := s.handleSubjectTotals(ctx, &mcp.CallToolRequest{}, filterInput{})
	require.NoError(t, err)
	require.Len(t, subj.Totals, 2)
	assert.Equal(t, "Bio", subj.Totals[0].Subject)

	_, weeks, err := s.handleWeeklyTotals(ctx, &mcp.CallToolRequest{}, filterInput{})
	require.NoError(t, err)
	assert.Equal(t, []weekTotal{{Week: "2026-W41", Minutes: 60}, {Week: "2026-W42", Minutes: 30}}, weeks.Weeks)

	_, weeks, err = s.handleWeeklyTotals(ctx, &mcp.CallToolRequest{}, filterInput{Subject: "Bio"})
	require.NoError(t, err)
	assert.Equal(t, []weekTotal{{Week: "2026-W41", Minutes: 50}}, weeks.Weeks)
}

func TestListSessionsInputIsFlat(t *testing.T) {
	var in listSessionsInput
	require.NoError(t, json.Unmarshal([]byte(`{"subject":"Math","from":"2026-10-01","limit":3}`), &in))
	assert.Equal(t, "Math", in.Subject)
	assert.Equal(t, "2026-10-01", in.From)
	assert.Equal(t, 3, in.Limit)
}
