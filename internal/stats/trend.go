package stats

import (
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/gradebook/internal/model"
)

// TrendWindow is the rolling average window used for test trends.
const TrendWindow = 2

// DefaultGoal is used when no usable goal is supplied.
const DefaultGoal = model.MaxScore

// Goal is a target score and whether it fell back to DefaultGoal.
type Goal struct {
	Value     float64
	Defaulted bool
}

// ParseGoal parses a goal score. Empty, unparsable or out-of-range input
// yields DefaultGoal with Defaulted set.
func ParseGoal(raw string) Goal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Goal{Value: DefaultGoal, Defaulted: true}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || model.ValidateScore(v) != nil {
		return Goal{Value: DefaultGoal, Defaulted: true}
	}
	return Goal{Value: v}
}

// AnalyzeTrend computes the rolling average and below-goal flags for an
// ordered score sequence.
func AnalyzeTrend(scores []float64, goal Goal) model.TrendReport {
	if math.IsNaN(goal.Value) {
		goal = Goal{Value: DefaultGoal, Defaulted: true}
	}
	rolling := MovingAverage(scores, TrendWindow)
	points := make([]model.TrendPoint, len(scores))
	for i, s := range scores {
		points[i] = model.TrendPoint{
			Label:     model.TestField(i).String(),
			Score:     s,
			Rolling:   rolling[i],
			BelowGoal: s < goal.Value,
		}
	}
	return model.TrendReport{
		Points:        points,
		Goal:          goal.Value,
		GoalDefaulted: goal.Defaulted,
	}
}

// RecordTrend analyzes the four tests of a record.
func RecordTrend(r model.ScoreRecord, goal Goal) model.TrendReport {
	report := AnalyzeTrend(r.Tests[:], goal)
	report.Subject = r.Subject
	report.Semester = r.Semester
	return report
}

// BelowGoalLabels lists the labels of points under the goal.
func BelowGoalLabels(report model.TrendReport) []string {
	var out []string
	for _, p := range report.Points {
		if p.BelowGoal {
			out = append(out, p.Label)
		}
	}
	return out
}
