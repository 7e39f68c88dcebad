package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/gradebook/internal/model"
)

func TestOverallAveragesAndFilter(t *testing.T) {
	students := []model.Student{
		{ID: "S2", FullName: "Bo Li", Semester: 2},
		{ID: "S1", FullName: "Ada Park", Semester: 1},
		{ID: "S3", FullName: "No Scores", Semester: 1},
	}
	records := []model.ScoreRecord{
		rec("S1", 1, "Ethics", 10, 10, 10, 10),
		rec("S1", 2, "Ethics", 5, 5, 5, 5),
		rec("S2", 1, "Ethics", 20, 20, 20, 20),
	}
	avgs := OverallAverages(students, records)
	if len(avgs) != 3 || avgs[0].Student.ID != "S1" {
		t.Fatalf("unexpected averages: %+v", avgs)
	}
	if avgs[0].Average != 30 || !avgs[0].HasData {
		t.Fatalf("unexpected S1 average: %+v", avgs[0])
	}
	if avgs[2].HasData {
		t.Fatalf("expected S3 without data")
	}

	lo := 50.0
	filtered := FilterAverages(avgs, AverageRange{Min: &lo})
	if len(filtered) != 1 || filtered[0].Student.ID != "S2" {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}
	if got := FilterAverages(avgs, AverageRange{}); len(got) != 2 {
		t.Fatalf("expected students with data only, got %d", len(got))
	}

	var buf bytes.Buffer
	if err := RenderOverview(&buf, "Comprehensive Student Overview", avgs); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Comprehensive Student Overview", "Ada Park", "30.00", "No Data"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestBuildClassTrends(t *testing.T) {
	records := []model.ScoreRecord{
		rec("S1", 1, "Ethics", 10, 10, 10, 10),
		rec("S2", 1, "Ethics", 20, 20, 20, 20),
		rec("S1", 2, "Physics (PHY)", 5, 5, 5, 5),
	}
	trends := BuildClassTrends(records)
	if len(trends.Semesters) != 2 || trends.Semesters[0].Value != 60 {
		t.Fatalf("unexpected semester means: %+v", trends.Semesters)
	}
	if v, ok := trends.Pivot.Cell("PHY", 1); !ok || v != 0 {
		t.Fatalf("expected zero-filled cell, got %v %v", v, ok)
	}
}

func TestRenderTrendMentionsDefaultedGoal(t *testing.T) {
	var buf bytes.Buffer
	report := AnalyzeTrend([]float64{10, 14, 18, 9}, ParseGoal(""))
	report.Subject = "Ethics"
	report.Semester = 1
	if err := RenderTrend(&buf, report); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"goal defaulted", "Below Goal", "13.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
