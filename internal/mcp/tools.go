package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/stats"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_session",
		Description: "Record a study session for a subject",
	}, s.handleLogSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List recorded study sessions, optionally filtered by subject and date range",
	}, s.handleListSessions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "today_summary",
		Description: "Minutes studied today and this week, with progress towards today's goal",
	}, s.handleTodaySummary)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "subject_totals",
		Description: "Total minutes per subject, largest first",
	}, s.handleSubjectTotals)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "weekly_totals",
		Description: "Total minutes per ISO week, oldest first",
	}, s.handleWeeklyTotals)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_goal",
		Description: "Set today's study goal in minutes; the first goal set for a day wins",
	}, s.handleSetGoal)
}

// Tool input/output types

type logSessionInput struct {
	Subject string `json:"subject" jsonschema:"the subject studied"`
	Minutes int    `json:"minutes" jsonschema:"duration in whole minutes"`
	Date    string `json:"date,omitempty" jsonschema:"day of the session (YYYY-MM-DD), defaults to today"`
	Note    string `json:"note,omitempty" jsonschema:"optional free-text note"`
}

type session struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Minutes      int    `json:"minutes"`
	Date         string `json:"date"`
	Note         string `json:"note,omitempty"`
	GoalSnapshot *int   `json:"goal_snapshot,omitempty"`
}

func toSession(e model.Entry) session {
	return session{
		ID:           e.ID,
		Subject:      e.Subject,
		Minutes:      e.DurationMinutes,
		Date:         e.Day(),
		Note:         e.Note,
		GoalSnapshot: e.DailyGoalSnapshot,
	}
}

type logSessionOutput struct {
	Session session `json:"session"`
	Message string  `json:"message"`
	Warning string  `json:"warning,omitempty"`
}

type filterInput struct {
	Subject string `json:"subject,omitempty" jsonschema:"only include this subject (case-insensitive)"`
	From    string `json:"from,omitempty" jsonschema:"first day to include (YYYY-MM-DD)"`
	To      string `json:"to,omitempty" jsonschema:"last day to include (YYYY-MM-DD)"`
}

type listSessionsInput struct {
	filterInput
	Limit int `json:"limit,omitempty" jsonschema:"max results, newest first (default 50)"`
}

type listSessionsOutput struct {
	Sessions     []session `json:"sessions"`
	TotalMinutes int       `json:"total_minutes"`
}

type todaySummaryInput struct{}

type todaySummaryOutput struct {
	Date          string  `json:"date"`
	TodayMinutes  int     `json:"today_minutes"`
	WeekMinutes   int     `json:"week_minutes"`
	TotalMinutes  int     `json:"total_minutes"`
	GoalMinutes   int     `json:"goal_minutes"`
	Remaining     int     `json:"remaining_minutes"`
	GoalFraction  float64 `json:"goal_fraction"`
	GoalTier      string  `json:"goal_tier"`
	GoalIsDefault bool    `json:"goal_is_default"`
}

type subjectTotalsOutput struct {
	Totals []stats.SubjectTotal `json:"totals"`
}

type weekTotal struct {
	Week    string `json:"week"`
	Minutes int    `json:"minutes"`
}

type weeklyTotalsOutput struct {
	Weeks []weekTotal `json:"weeks"`
}

type setGoalInput struct {
	Minutes int `json:"minutes" jsonschema:"goal for today in whole minutes"`
}

type setGoalOutput struct {
	Written     bool   `json:"written"`
	GoalMinutes int    `json:"goal_minutes"`
	Message     string `json:"message"`
}

func (s *Server) parseFilter(in filterInput) (stats.Filter, error) {
	loc := s.opts.Now().Location()
	f := stats.Filter{Subject: in.Subject}
	if in.From != "" {
		d, err := timecalc.ParseDate(in.From, loc)
		if err != nil {
			return f, err
		}
		f.From = d
	}
	if in.To != "" {
		d, err := timecalc.ParseDate(in.To, loc)
		if err != nil {
			return f, err
		}
		f.To = d
	}
	return f, nil
}

// Tool handlers

func (s *Server) handleLogSession(ctx context.Context, _ *mcp.CallToolRequest, input logSessionInput) (*mcp.CallToolResult, logSessionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.opts.Now()
	if input.Date != "" {
		d, err := timecalc.ParseDate(input.Date, date.Location())
		if err != nil {
			return nil, logSessionOutput{}, err
		}
		date = d
	}
	goal := s.opts.Goals.MinutesFor(date, s.opts.DefaultGoal)
	e, err := s.opts.Entries.Append(model.Entry{
		Subject:           input.Subject,
		DurationMinutes:   input.Minutes,
		Date:              date,
		Note:              input.Note,
		DailyGoalSnapshot: &goal,
	})
	if err != nil {
		return nil, logSessionOutput{}, err
	}

	return nil, logSessionOutput{
		Session: toSession(e),
		Message: fmt.Sprintf("Logged %s of %s on %s", timecalc.FormatMinutes(e.DurationMinutes), e.Subject, e.Day()),
		Warning: s.afterWrite(ctx),
	}, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *mcp.CallToolRequest, input listSessionsInput) (*mcp.CallToolResult, listSessionsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.parseFilter(input.filterInput)
	if err != nil {
		return nil, listSessionsOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	matched := f.Apply(s.opts.Entries.Entries())
	out := listSessionsOutput{Sessions: []session{}}
	for i := len(matched) - 1; i >= 0; i-- {
		out.TotalMinutes += matched[i].DurationMinutes
		if len(out.Sessions) < limit {
			out.Sessions = append(out.Sessions, toSession(matched[i]))
		}
	}
	return nil, out, nil
}

func (s *Server) handleTodaySummary(_ context.Context, _ *mcp.CallToolRequest, _ todaySummaryInput) (*mcp.CallToolResult, todaySummaryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	entries := s.opts.Entries.Entries()
	ov := stats.Summarize(entries, now)
	_, recorded := s.opts.Goals.GoalFor(now)
	goal := s.opts.Goals.MinutesFor(now, s.opts.DefaultGoal)
	p := stats.GoalProgress(ov.Today, goal)

	return nil, todaySummaryOutput{
		Date:          now.Format(model.DateLayout),
		TodayMinutes:  ov.Today,
		WeekMinutes:   ov.Week,
		TotalMinutes:  ov.Total,
		GoalMinutes:   goal,
		Remaining:     p.Remaining,
		GoalFraction:  p.Fraction,
		GoalTier:      p.Tier.String(),
		GoalIsDefault: !recorded,
	}, nil
}

func (s *Server) handleSubjectTotals(_ context.Context, _ *mcp.CallToolRequest, input filterInput) (*mcp.CallToolResult, subjectTotalsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.parseFilter(input)
	if err != nil {
		return nil, subjectTotalsOutput{}, err
	}
	return nil, subjectTotalsOutput{Totals: stats.MinutesBySubject(f.Apply(s.opts.Entries.Entries()))}, nil
}

func (s *Server) handleWeeklyTotals(_ context.Context, _ *mcp.CallToolRequest, input filterInput) (*mcp.CallToolResult, weeklyTotalsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.parseFilter(input)
	if err != nil {
		return nil, weeklyTotalsOutput{}, err
	}
	out := weeklyTotalsOutput{Weeks: []weekTotal{}}
	for _, w := range stats.MinutesByWeek(f.Apply(s.opts.Entries.Entries())) {
		out.Weeks = append(out.Weeks, weekTotal{Week: w.Label(), Minutes: w.Minutes})
	}
	return nil, out, nil
}

func (s *Server) handleSetGoal(_ context.Context, _ *mcp.CallToolRequest, input setGoalInput) (*mcp.CallToolResult, setGoalOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	written, err := s.opts.Goals.RecordGoal(now, input.Minutes)
	if err != nil {
		return nil, setGoalOutput{}, err
	}
	goal := s.opts.Goals.MinutesFor(now, s.opts.DefaultGoal)
	if !written {
		return nil, setGoalOutput{
			GoalMinutes: goal,
			Message:     fmt.Sprintf("Today's goal is already set to %s", timecalc.FormatMinutes(goal)),
		}, nil
	}
	return nil, setGoalOutput{
		Written:     true,
		GoalMinutes: goal,
		Message:     fmt.Sprintf("Goal for %s set to %s", now.Format(model.DateLayout), timecalc.FormatMinutes(goal)),
	}, nil
}
