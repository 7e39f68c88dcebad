package stats

import (
	"reflect"
	"testing"

	"github.com/verte-zerg/gradebook/internal/model"
)

func rec(student string, semester int, subject string, tests ...float64) model.ScoreRecord {
	var arr [model.TestCount]float64
	copy(arr[:], tests)
	return model.NewScoreRecord(student, semester, subject, arr)
}

func TestPivotFillsMissingCells(t *testing.T) {
	records := []model.ScoreRecord{
		rec("S1", 1, "Physics (PHY)", 10, 10, 10, 10),
		rec("S1", 3, "Physics (PHY)", 5, 5, 5, 5),
		rec("S1", 2, "Ethics", 1, 2, 3, 4),
	}
	p := Aggregate(records, BySubjectSemester, TotalScore).Pivot(CombineSum)

	if !reflect.DeepEqual(p.Rows, []string{"ETH", "PHY"}) {
		t.Fatalf("unexpected rows: %v", p.Rows)
	}
	if !reflect.DeepEqual(p.Cols, []int{1, 2, 3}) {
		t.Fatalf("unexpected cols: %v", p.Cols)
	}
	for i := range p.Rows {
		if len(p.Cells[i]) != len(p.Cols) {
			t.Fatalf("row %d is not rectangular: %v", i, p.Cells[i])
		}
	}
	v, ok := p.Cell("PHY", 2)
	if !ok || v != 0 {
		t.Fatalf("expected zero cell at (PHY, 2), got %v ok=%v", v, ok)
	}
	if v, _ := p.Cell("PHY", 1); v != 40 {
		t.Fatalf("expected 40 at (PHY, 1), got %v", v)
	}
	if v, _ := p.Cell("ETH", 2); v != 10 {
		t.Fatalf("expected 10 at (ETH, 2), got %v", v)
	}
	if _, ok := p.Cell("CHE", 1); ok {
		t.Fatalf("expected unknown row to report missing")
	}
	if !reflect.DeepEqual(p.ColLabels(), []string{"Sem 1", "Sem 2", "Sem 3"}) {
		t.Fatalf("unexpected labels: %v", p.ColLabels())
	}
}

func TestPivotMeanCombinesSameAcronym(t *testing.T) {
	records := []model.ScoreRecord{
		rec("S1", 1, "Physics (PHY)", 10, 10, 10, 10),
		rec("S2", 1, "Applied Physics (PHY)", 5, 5, 5, 5),
	}
	summary := Aggregate(records, nil, nil)
	if got := summary[GroupKey{Acronym: "PHY", Semester: 1}].Count; got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
	p := summary.Pivot(CombineMean)
	if v, _ := p.Cell("PHY", 1); v != 30 {
		t.Fatalf("expected mean 30, got %v", v)
	}
}

func TestAccumulatorMeanWithoutRecords(t *testing.T) {
	if _, ok := (Accumulator{}).Value(CombineMean); ok {
		t.Fatalf("expected mean of no records to report no data")
	}
	if v, ok := (Accumulator{}).Value(CombineSum); !ok || v != 0 {
		t.Fatalf("expected empty sum to be 0, got %v", v)
	}
}

func TestSemesterTotalsOrdered(t *testing.T) {
	records := []model.ScoreRecord{
		rec("S1", 3, "Ethics", 1, 1, 1, 1),
		rec("S1", 1, "Ethics", 2, 2, 2, 2),
		rec("S1", 1, "Physics (PHY)", 3, 3, 3, 3),
	}
	got := SemesterTotals(records)
	want := []SemesterPoint{{Semester: 1, Value: 20}, {Semester: 3, Value: 4}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGroupBySemester(t *testing.T) {
	records := []model.ScoreRecord{
		rec("S1", 2, "B", 1),
		rec("S1", 1, "A", 1),
		rec("S1", 2, "C", 1),
	}
	sems, groups := GroupBySemester(records)
	if !reflect.DeepEqual(sems, []int{1, 2}) {
		t.Fatalf("unexpected semesters: %v", sems)
	}
	if groups[2][0].Subject != "B" || groups[2][1].Subject != "C" {
		t.Fatalf("expected input order preserved: %+v", groups[2])
	}
}
