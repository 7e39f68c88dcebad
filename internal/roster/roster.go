// Package roster loads students and score records from CSV files.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/gradebook/internal/model"
)

// Columns every roster file must carry, in any order.
var requiredColumns = []string{"enrolment_id", "fullname", "current_semester"}

// Score columns; a row either fills all of them or none.
var scoreColumns = []string{"semester", "subject", "t1", "t2", "t3", "t4"}

// Roster is the parsed content of a roster file.
type Roster struct {
	Students []model.Student
	Records  []model.ScoreRecord
}

// Load reads a roster CSV file.
func Load(path string) (Roster, error) {
	file, err := os.Open(path)
	if err != nil {
		return Roster{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only roster file.
			_ = cerr
		}
	}()
	return Parse(file)
}

// Parse reads roster rows from r. The first row is a header naming the
// columns. Lines starting with '#' are ignored. A student appearing on
// several rows must carry the same name and current semester on each.
func Parse(r io.Reader) (Roster, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Roster{}, fmt.Errorf("%w: roster is empty", model.ErrValidation)
	}
	if err != nil {
		return Roster{}, fmt.Errorf("%w: read header: %v", model.ErrValidation, err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return Roster{}, fmt.Errorf("%w: roster header is missing %q", model.ErrValidation, col)
		}
	}
	hasScores := true
	for _, col := range scoreColumns {
		if _, ok := index[col]; !ok {
			hasScores = false
		}
	}

	students := map[string]model.Student{}
	seen := map[[3]string]int{}
	var out Roster
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Roster{}, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		line, _ := reader.FieldPos(0)
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		st, err := parseStudent(field)
		if err != nil {
			return Roster{}, fmt.Errorf("line %d: %w", line, err)
		}
		if prev, ok := students[st.ID]; ok {
			if prev != st {
				return Roster{}, fmt.Errorf("%w: line %d: student %s conflicts with an earlier row", model.ErrValidation, line, st.ID)
			}
		} else {
			students[st.ID] = st
		}

		if !hasScores || field("subject") == "" {
			continue
		}
		rec, err := parseRecord(st.ID, field)
		if err != nil {
			return Roster{}, fmt.Errorf("line %d: %w", line, err)
		}
		key := [3]string{rec.StudentID, strconv.Itoa(rec.Semester), rec.Subject}
		if first, dup := seen[key]; dup {
			return Roster{}, fmt.Errorf("%w: line %d: duplicate %s record for %s (first on line %d)", model.ErrValidation, line, rec.Subject, rec.StudentID, first)
		}
		seen[key] = line
		out.Records = append(out.Records, rec)
	}

	if len(students) == 0 {
		return Roster{}, fmt.Errorf("%w: roster has no students", model.ErrValidation)
	}
	for _, st := range students {
		out.Students = append(out.Students, st)
	}
	sort.Slice(out.Students, func(i, j int) bool {
		return out.Students[i].ID < out.Students[j].ID
	})
	return out, nil
}

func parseStudent(field func(string) string) (model.Student, error) {
	st := model.Student{ID: field("enrolment_id"), FullName: field("fullname")}
	if err := model.ValidateStudentID(st.ID); err != nil {
		return model.Student{}, err
	}
	if st.FullName == "" {
		return model.Student{}, fmt.Errorf("%w: student %s has no name", model.ErrValidation, st.ID)
	}
	sem, err := model.ParseSemester(field("current_semester"))
	if err != nil {
		return model.Student{}, err
	}
	st.Semester = sem
	return st, nil
}

func parseRecord(studentID string, field func(string) string) (model.ScoreRecord, error) {
	sem, err := model.ParseSemester(field("semester"))
	if err != nil {
		return model.ScoreRecord{}, err
	}
	var tests [model.TestCount]float64
	for i, f := range model.TestFields {
		raw := field(strings.ToLower(f.String()))
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.ScoreRecord{}, fmt.Errorf("%w: %s %q is not a number", model.ErrValidation, f, raw)
		}
		tests[i] = v
	}
	rec := model.NewScoreRecord(studentID, sem, field("subject"), tests)
	if err := rec.Validate(); err != nil {
		return model.ScoreRecord{}, err
	}
	return rec, nil
}
