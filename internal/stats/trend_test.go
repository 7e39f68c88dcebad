package stats

import (
	"reflect"
	"testing"
)

func TestAnalyzeTrend(t *testing.T) {
	report := AnalyzeTrend([]float64{10, 14, 18, 9}, Goal{Value: 15})
	var rolling []float64
	var below []bool
	var labels []string
	for _, p := range report.Points {
		rolling = append(rolling, p.Rolling)
		below = append(below, p.BelowGoal)
		labels = append(labels, p.Label)
	}
	if !reflect.DeepEqual(rolling, []float64{10, 12, 16, 13.5}) {
		t.Fatalf("unexpected rolling average: %v", rolling)
	}
	if !reflect.DeepEqual(below, []bool{true, true, false, true}) {
		t.Fatalf("unexpected below-goal flags: %v", below)
	}
	if !reflect.DeepEqual(labels, []string{"T1", "T2", "T3", "T4"}) {
		t.Fatalf("unexpected labels: %v", labels)
	}
	if report.Goal != 15 || report.GoalDefaulted {
		t.Fatalf("unexpected goal: %v defaulted=%v", report.Goal, report.GoalDefaulted)
	}
	if got := BelowGoalLabels(report); !reflect.DeepEqual(got, []string{"T1", "T2", "T4"}) {
		t.Fatalf("unexpected below-goal labels: %v", got)
	}
}

func TestParseGoal(t *testing.T) {
	cases := []struct {
		in        string
		value     float64
		defaulted bool
	}{
		{"15", 15, false},
		{" 12.5 ", 12.5, false},
		{"", 25, true},
		{"abc", 25, true},
		{"30", 25, true},
		{"-1", 25, true},
		{"NaN", 25, true},
	}
	for _, tc := range cases {
		g := ParseGoal(tc.in)
		if g.Value != tc.value || g.Defaulted != tc.defaulted {
			t.Fatalf("ParseGoal(%q) = %+v", tc.in, g)
		}
	}
}

func TestAnalyzeTrendDefaultedGoalSurfaced(t *testing.T) {
	report := AnalyzeTrend([]float64{25, 20}, ParseGoal("oops"))
	if !report.GoalDefaulted || report.Goal != DefaultGoal {
		t.Fatalf("expected defaulted goal, got %+v", report)
	}
	if report.Points[0].BelowGoal || !report.Points[1].BelowGoal {
		t.Fatalf("unexpected flags: %+v", report.Points)
	}
}

func TestMovingAverageWindowOne(t *testing.T) {
	in := []float64{1, 2, 3}
	out := MovingAverage(in, 1)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("expected copy, got %v", out)
	}
	out[0] = 9
	if in[0] != 1 {
		t.Fatalf("expected input untouched")
	}
}
