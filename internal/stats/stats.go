package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
// Early positions average over the history available so far.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// SemesterLabel formats a semester number for chart axes.
func SemesterLabel(semester int) string {
	return fmt.Sprintf("Sem %d", semester)
}

// FormatScore prints whole scores without decimals.
func FormatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// ScoreTable builds the Subject/T1..T4/Total table for a semester's records.
func ScoreTable(records []model.ScoreRecord) (headers []string, rows [][]string) {
	headers = []string{"Subject", "T1", "T2", "T3", "T4", "Total Score"}
	rows = make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{acronym.Resolve(r.Subject)}
		for _, v := range r.Tests {
			row = append(row, FormatScore(v))
		}
		row = append(row, FormatScore(r.Total))
		rows = append(rows, row)
	}
	return headers, rows
}

// RenderScoreTable prints one semester's scores.
func RenderScoreTable(w io.Writer, semester int, records []model.ScoreRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No scores found for semester %d.\n", semester)
		return err
	}
	if _, err := fmt.Fprintf(w, "Semester %d Performance\n", semester); err != nil {
		return err
	}
	headers, rows := ScoreTable(records)
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
}

// RenderComparative prints student vs class results for a semester.
func RenderComparative(w io.Writer, semester int, results []model.ComparativeResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(w, "No comparative data for semester %d.\n", semester)
		return err
	}
	if _, err := fmt.Fprintf(w, "Comparative Analysis - Semester %d\n", semester); err != nil {
		return err
	}
	headers := []string{"Subject", "Your Score", "Class Avg", "Percentile"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Acronym,
			FormatScore(r.StudentScore),
			fmt.Sprintf("%.2f", r.ClassAverage),
			fmt.Sprintf("%.1f%%", r.Percentile),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true})
}

// RenderTrend prints a trend report with goal alerts.
func RenderTrend(w io.Writer, report model.TrendReport) error {
	if len(report.Points) == 0 {
		_, err := fmt.Fprintln(w, "No test scores found.")
		return err
	}
	title := "Trend Insights"
	if report.Subject != "" {
		title = fmt.Sprintf("Trend Insights for %q - Semester %d", report.Subject, report.Semester)
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	goalNote := fmt.Sprintf("Goal: %s", FormatScore(report.Goal))
	if report.GoalDefaulted {
		goalNote += " (goal defaulted)"
	}
	if _, err := fmt.Fprintln(w, goalNote); err != nil {
		return err
	}
	headers := []string{"Test", "Score", "Moving Avg", "Alert"}
	rows := make([][]string, 0, len(report.Points))
	scores := make([]float64, 0, len(report.Points))
	for _, p := range report.Points {
		alert := ""
		if p.BelowGoal {
			alert = "Below Goal"
		}
		rows = append(rows, []string{p.Label, FormatScore(p.Score), fmt.Sprintf("%.2f", p.Rolling), alert})
		scores = append(scores, p.Score)
	}
	if err := writeTable(w, headers, rows, map[int]bool{1: true, 2: true}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Scores: [%s]\n", Sparkline(scores))
	return err
}

// RenderOverview prints each student's overall average.
func RenderOverview(w io.Writer, title string, avgs []model.StudentAverage) error {
	if len(avgs) == 0 {
		_, err := fmt.Fprintln(w, "No students found.")
		return err
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"Enrolment ID", "Full Name", "Current Semester", "Overall Avg Score"}
	rows := make([][]string, 0, len(avgs))
	for _, a := range avgs {
		avg := "No Data"
		if a.HasData {
			avg = fmt.Sprintf("%.2f", a.Average)
		}
		rows = append(rows, []string{a.Student.ID, a.Student.FullName, fmt.Sprintf("%d", a.Student.Semester), avg})
	}
	return writeTable(w, headers, rows, map[int]bool{2: true, 3: true})
}

// RenderAuditLog prints audit entries, most recent first.
func RenderAuditLog(w io.Writer, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No audit logs found.")
		return err
	}
	headers := []string{"Log ID", "Student", "Action", "Old", "New", "Time"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.StudentID,
			e.Action,
			e.OldValue,
			e.NewValue,
			e.At.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true})
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range FormatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
