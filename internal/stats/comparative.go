package stats

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
)

// Compare ranks a student's subject totals against the semester population.
// Results are sorted by acronym. ErrNoData is returned when the population
// has no rows for the student.
func Compare(studentID string, population []model.ClassScore) ([]model.ComparativeResult, error) {
	byAcronym := map[string][]float64{}
	var own []model.ClassScore
	for _, row := range population {
		acr := acronym.Resolve(row.Subject)
		byAcronym[acr] = append(byAcronym[acr], row.Total)
		if row.StudentID == studentID {
			own = append(own, row)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("student %s: %w", studentID, model.ErrNoData)
	}

	results := make([]model.ComparativeResult, 0, len(own))
	for _, row := range own {
		acr := acronym.Resolve(row.Subject)
		scores := byAcronym[acr]
		pct, err := Percentile(row.Total, scores)
		if err != nil {
			return nil, err
		}
		results = append(results, model.ComparativeResult{
			Acronym:      acr,
			Subject:      row.Subject,
			StudentScore: row.Total,
			ClassAverage: mean(scores),
			Percentile:   pct,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Acronym < results[j].Acronym
	})
	return results, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
