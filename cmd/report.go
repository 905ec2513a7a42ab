package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/study-time-tracker/internal/model"
	"github.com/Tiliavir/study-time-tracker/internal/stats"
	"github.com/Tiliavir/study-time-tracker/internal/timecalc"
)

var (
	reportFilter filterFlags
	reportBy     string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show aggregated study time per subject, day or ISO week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportFilter.register(reportCmd)
	reportCmd.Flags().StringVar(&reportBy, "by", "subject", "Group by: subject, day, week")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// reportRow is one line of a report.
type reportRow struct {
	Key     string `json:"key"`
	Minutes int    `json:"minutes"`
}

type reportDoc struct {
	By           string      `json:"by"`
	Rows         []reportRow `json:"rows"`
	TotalMinutes int         `json:"total_minutes"`
}

func runReport(cmd *cobra.Command, args []string) error {
	filter, err := reportFilter.build(nowFunc())
	if err != nil {
		return err
	}
	doc, err := buildReport(reportBy, filter.Apply(entryStore.Entries()))
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), reportFormat, doc)
}

func buildReport(by string, entries []model.Entry) (reportDoc, error) {
	doc := reportDoc{By: by, Rows: []reportRow{}}
	switch by {
	case "subject":
		for _, st := range stats.MinutesBySubject(entries) {
			doc.Rows = append(doc.Rows, reportRow{Key: st.Subject, Minutes: st.Minutes})
		}
	case "day":
		for _, dt := range stats.MinutesByDay(entries) {
			doc.Rows = append(doc.Rows, reportRow{Key: dt.Date.Format(model.DateLayout), Minutes: dt.Minutes})
		}
	case "week":
		for _, wt := range stats.MinutesByWeek(entries) {
			doc.Rows = append(doc.Rows, reportRow{Key: wt.Label(), Minutes: wt.Minutes})
		}
	default:
		return doc, fmt.Errorf("unknown --by %q (use subject, day or week)", by)
	}
	for _, r := range doc.Rows {
		doc.TotalMinutes += r.Minutes
	}
	return doc, nil
}

func writeReport(w io.Writer, format string, doc reportDoc) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{doc.By, "duration_minutes"})
		for _, r := range doc.Rows {
			_ = cw.Write([]string{r.Key, strconv.Itoa(r.Minutes)})
		}
		cw.Flush()
		return cw.Error()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "md":
		fmt.Fprintf(w, "By %s\n", doc.By)
		fmt.Fprintln(w, "--------------------------------")
		for _, r := range doc.Rows {
			fmt.Fprintf(w, "%-24s%s\n", r.Key, timecalc.FormatMinutes(r.Minutes))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-24s%s\n", "Total", timecalc.FormatMinutes(doc.TotalMinutes))
		return nil
	default:
		return fmt.Errorf("unknown --format %q (use md, csv or json)", format)
	}
}
