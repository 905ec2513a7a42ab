// Package export renders study entries as spreadsheet, CSV, JSON or YAML.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/study-time-tracker/internal/model"
)

// SheetName is the name of the single worksheet in an xlsx export.
const SheetName = "Study Log"

// columnPadding is added to the widest cell of each column.
const columnPadding = 2

// durationColumn is the column that receives the summary row.
const durationColumn = "duration_minutes"

// Formats lists the supported export formats.
var Formats = []string{"xlsx", "csv", "json", "yaml"}

// FileName returns the default file name for format.
func FileName(format string) string {
	return "study_export." + format
}

// row renders e in canonical column order. Numeric cells are returned as
// numbers so spreadsheets can sum them.
func row(e model.Entry) []any {
	var goal any = ""
	if e.DailyGoalSnapshot != nil {
		goal = *e.DailyGoalSnapshot
	}
	return []any{e.ID, e.Subject, e.DurationMinutes, e.Day(), e.Note, goal}
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// XLSX renders entries as a single-sheet workbook: a header row, one row per
// entry, column widths fitted to content, and for non-empty input a trailing
// "Sum:" row whose duration cell is a SUM formula over the rows above.
func XLSX(entries []model.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	widths := make([]int, len(model.EntryColumns))
	header := make([]any, len(model.EntryColumns))
	for i, name := range model.EntryColumns {
		header[i] = name
		widths[i] = utf8.RuneCountInString(name)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	for r, e := range entries {
		values := row(e)
		for i, v := range values {
			if n := utf8.RuneCountInString(cellText(v)); n > widths[i] {
				widths[i] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", r+2, err)
		}
	}

	durIdx := -1
	for i, name := range model.EntryColumns {
		if name == durationColumn {
			durIdx = i
		}
	}
	if durIdx >= 0 && len(entries) > 0 {
		if err := writeSumRow(f, durIdx, len(entries)); err != nil {
			return nil, err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := min(float64(w+columnPadding), excelize.MaxColumnWidth)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("setting width of column %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSumRow writes "Sum:" left of the duration column and a SUM formula
// over data rows 2..n+1 into it.
func writeSumRow(f *excelize.File, durIdx, n int) error {
	sumRow := n + 2
	col, err := excelize.ColumnNumberToName(durIdx + 1)
	if err != nil {
		return err
	}
	if durIdx > 0 {
		labelCell, err := excelize.CoordinatesToCellName(durIdx, sumRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, labelCell, "Sum:"); err != nil {
			return fmt.Errorf("writing sum label: %w", err)
		}
	}
	sumCell := fmt.Sprintf("%s%d", col, sumRow)
	formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, n+1)
	if err := f.SetCellFormula(SheetName, sumCell, formula); err != nil {
		return fmt.Errorf("writing sum formula: %w", err)
	}
	return nil
}

// CSV writes entries in the same layout as the entry table.
func CSV(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	_ = cw.Write(model.EntryColumns)
	for _, e := range entries {
		values := row(e)
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = cellText(v)
		}
		_ = cw.Write(rec)
	}
	cw.Flush()
	return cw.Error()
}

// document is the JSON/YAML export envelope.
type document struct {
	ExportedAt string        `json:"exported_at" yaml:"exported_at"`
	Tool       string        `json:"tool" yaml:"tool"`
	Total      int           `json:"total_minutes" yaml:"total_minutes"`
	Entries    []exportEntry `json:"entries" yaml:"entries"`
}

type exportEntry struct {
	ID                string `json:"id" yaml:"id"`
	Subject           string `json:"subject" yaml:"subject"`
	DurationMinutes   int    `json:"duration_minutes" yaml:"duration_minutes"`
	Date              string `json:"date" yaml:"date"`
	Note              string `json:"note,omitempty" yaml:"note,omitempty"`
	DailyGoalSnapshot *int   `json:"daily_goal_snapshot,omitempty" yaml:"daily_goal_snapshot,omitempty"`
}

func newDocument(entries []model.Entry, now time.Time) document {
	doc := document{
		ExportedAt: now.Format(time.RFC3339),
		Tool:       "stt",
		Entries:    make([]exportEntry, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Total += e.DurationMinutes
		doc.Entries = append(doc.Entries, exportEntry{
			ID:                e.ID,
			Subject:           e.Subject,
			DurationMinutes:   e.DurationMinutes,
			Date:              e.Day(),
			Note:              e.Note,
			DailyGoalSnapshot: e.DailyGoalSnapshot,
		})
	}
	return doc
}

// JSON renders entries with a total as indented JSON.
func JSON(entries []model.Entry, now time.Time) ([]byte, error) {
	return json.MarshalIndent(newDocument(entries, now), "", "  ")
}

// YAML renders entries with a total as YAML.
func YAML(entries []model.Entry, now time.Time) ([]byte, error) {
	return yaml.Marshal(newDocument(entries, now))
}

// Render dispatches on format and returns the encoded bytes.
func Render(format string, entries []model.Entry, now time.Time) ([]byte, error) {
	switch format {
	case "xlsx":
		return XLSX(entries)
	case "json":
		return JSON(entries, now)
	case "yaml":
		return YAML(entries, now)
	case "csv":
		var buf bytes.Buffer
		if err := CSV(&buf, entries); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format: %s (use xlsx, csv, json or yaml)", format)
	}
}
