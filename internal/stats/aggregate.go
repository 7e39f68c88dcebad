// Package stats contains score analytics and text reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
)

// Combine selects how grouped values are reduced.
type Combine int

const (
	// CombineSum adds grouped values.
	CombineSum Combine = iota
	// CombineMean averages grouped values.
	CombineMean
)

func (c Combine) String() string {
	if c == CombineMean {
		return "mean"
	}
	return "sum"
}

// GroupKey identifies a group. Unused dimensions stay at their zero value.
type GroupKey struct {
	Acronym   string
	Semester  int
	StudentID string
}

// KeyFunc derives the group of a record.
type KeyFunc func(model.ScoreRecord) GroupKey

// ValueFunc extracts the value to combine from a record.
type ValueFunc func(model.ScoreRecord) float64

// BySubjectSemester groups by (acronym, semester).
func BySubjectSemester(r model.ScoreRecord) GroupKey {
	return GroupKey{Acronym: acronym.Resolve(r.Subject), Semester: r.Semester}
}

// BySemester groups by semester only.
func BySemester(r model.ScoreRecord) GroupKey {
	return GroupKey{Semester: r.Semester}
}

// ByStudent groups by student only.
func ByStudent(r model.ScoreRecord) GroupKey {
	return GroupKey{StudentID: r.StudentID}
}

// TotalScore returns the record total.
func TotalScore(r model.ScoreRecord) float64 {
	return r.Total
}

// Accumulator holds the running sum and count of a group.
type Accumulator struct {
	Sum   float64
	Count int
}

// Value reduces the group. A mean over no records reports ok == false.
func (a Accumulator) Value(c Combine) (float64, bool) {
	switch c {
	case CombineMean:
		if a.Count == 0 {
			return 0, false
		}
		return a.Sum / float64(a.Count), true
	default:
		return a.Sum, true
	}
}

// Summary maps group keys to accumulated values.
type Summary map[GroupKey]Accumulator

// Aggregate groups records by key and accumulates value. Nil functions
// default to BySubjectSemester and TotalScore.
func Aggregate(records []model.ScoreRecord, key KeyFunc, value ValueFunc) Summary {
	if key == nil {
		key = BySubjectSemester
	}
	if value == nil {
		value = TotalScore
	}
	out := Summary{}
	for _, r := range records {
		k := key(r)
		acc := out[k]
		acc.Sum += value(r)
		acc.Count++
		out[k] = acc
	}
	return out
}

// Pivot is a rectangular acronym × semester matrix.
type Pivot struct {
	Rows  []string
	Cols  []int
	Cells [][]float64
}

// Pivot arranges the summary as a matrix with rows sorted by acronym and
// columns sorted by semester. Cells without records are zero.
func (s Summary) Pivot(c Combine) Pivot {
	rowSet := map[string]struct{}{}
	colSet := map[int]struct{}{}
	for k := range s {
		rowSet[k.Acronym] = struct{}{}
		colSet[k.Semester] = struct{}{}
	}
	p := Pivot{
		Rows: make([]string, 0, len(rowSet)),
		Cols: make([]int, 0, len(colSet)),
	}
	for r := range rowSet {
		p.Rows = append(p.Rows, r)
	}
	for col := range colSet {
		p.Cols = append(p.Cols, col)
	}
	sort.Strings(p.Rows)
	sort.Ints(p.Cols)

	p.Cells = make([][]float64, len(p.Rows))
	for i, row := range p.Rows {
		p.Cells[i] = make([]float64, len(p.Cols))
		for j, col := range p.Cols {
			acc, ok := s[GroupKey{Acronym: row, Semester: col}]
			if !ok {
				continue
			}
			if v, ok := acc.Value(c); ok {
				p.Cells[i][j] = v
			}
		}
	}
	return p
}

// Cell returns the value at (acronym, semester). The bool is false only when
// the key is outside the pivot's rows or columns.
func (p Pivot) Cell(acr string, semester int) (float64, bool) {
	ri := sort.SearchStrings(p.Rows, acr)
	if ri >= len(p.Rows) || p.Rows[ri] != acr {
		return 0, false
	}
	ci := sort.SearchInts(p.Cols, semester)
	if ci >= len(p.Cols) || p.Cols[ci] != semester {
		return 0, false
	}
	return p.Cells[ri][ci], true
}

// ColLabels formats the semester columns as "Sem N".
func (p Pivot) ColLabels() []string {
	labels := make([]string, len(p.Cols))
	for i, c := range p.Cols {
		labels[i] = SemesterLabel(c)
	}
	return labels
}

// SemesterPoint is one point of a per-semester series.
type SemesterPoint struct {
	Semester int
	Value    float64
}

// Series reduces a semester-keyed summary into points ordered by semester.
// Groups whose mean is undefined are skipped.
func (s Summary) Series(c Combine) []SemesterPoint {
	out := make([]SemesterPoint, 0, len(s))
	for k, acc := range s {
		v, ok := acc.Value(c)
		if !ok {
			continue
		}
		out = append(out, SemesterPoint{Semester: k.Semester, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Semester < out[j].Semester
	})
	return out
}

// SemesterTotals returns the per-semester sum of record totals.
func SemesterTotals(records []model.ScoreRecord) []SemesterPoint {
	return Aggregate(records, BySemester, TotalScore).Series(CombineSum)
}

// GroupBySemester splits records by semester, preserving input order within
// each semester. The returned semesters are sorted ascending.
func GroupBySemester(records []model.ScoreRecord) ([]int, map[int][]model.ScoreRecord) {
	groups := map[int][]model.ScoreRecord{}
	for _, r := range records {
		groups[r.Semester] = append(groups[r.Semester], r)
	}
	semesters := make([]int, 0, len(groups))
	for sem := range groups {
		semesters = append(semesters, sem)
	}
	sort.Ints(semesters)
	return semesters, groups
}
