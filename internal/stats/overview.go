package stats

import (
	"sort"

	"github.com/verte-zerg/gradebook/internal/model"
)

// OverallAverages computes each student's mean total across every
// (semester, subject) record. Records are weighted equally regardless of how
// many subjects a semester has. Students without records have HasData unset.
func OverallAverages(students []model.Student, records []model.ScoreRecord) []model.StudentAverage {
	summary := Aggregate(records, ByStudent, TotalScore)
	out := make([]model.StudentAverage, 0, len(students))
	for _, st := range students {
		avg := model.StudentAverage{Student: st}
		if v, ok := summary[GroupKey{StudentID: st.ID}].Value(CombineMean); ok {
			avg.Average = v
			avg.HasData = true
		}
		out = append(out, avg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Student.ID < out[j].Student.ID
	})
	return out
}

// AverageRange bounds an overall average; nil bounds are open.
type AverageRange struct {
	Min *float64
	Max *float64
}

// FilterAverages keeps students with data whose average lies in the range.
func FilterAverages(avgs []model.StudentAverage, r AverageRange) []model.StudentAverage {
	var out []model.StudentAverage
	for _, a := range avgs {
		if !a.HasData {
			continue
		}
		if r.Min != nil && a.Average < *r.Min {
			continue
		}
		if r.Max != nil && a.Average > *r.Max {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ClassTrends holds class-wide averages by semester and by subject.
type ClassTrends struct {
	Semesters []SemesterPoint
	Pivot     Pivot
}

// BuildClassTrends averages totals per semester and per (acronym, semester).
func BuildClassTrends(records []model.ScoreRecord) ClassTrends {
	return ClassTrends{
		Semesters: Aggregate(records, BySemester, TotalScore).Series(CombineMean),
		Pivot:     Aggregate(records, BySubjectSemester, TotalScore).Pivot(CombineMean),
	}
}
