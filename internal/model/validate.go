package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score and semester bounds.
const (
	MinSemester = 1
	MaxSemester = 3
	MinScore    = 0.0
	MaxScore    = 25.0
)

// TestField identifies one of the four tests.
type TestField int

// Test fields in order.
const (
	T1 TestField = iota
	T2
	T3
	T4
)

// TestFields lists all test fields in order.
var TestFields = []TestField{T1, T2, T3, T4}

// String returns the column label, e.g. "T2".
func (f TestField) String() string {
	return fmt.Sprintf("T%d", int(f)+1)
}

// Index returns the position of the field in ScoreRecord.Tests.
func (f TestField) Index() int {
	return int(f)
}

// ParseTestField parses "T1".."T4", case-insensitively.
func ParseTestField(s string) (TestField, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "T1":
		return T1, nil
	case "T2":
		return T2, nil
	case "T3":
		return T3, nil
	case "T4":
		return T4, nil
	}
	return 0, fmt.Errorf("%w: test field %q (use T1, T2, T3 or T4)", ErrValidation, s)
}

// ValidateSemester checks the semester is within 1..3.
func ValidateSemester(semester int) error {
	if semester < MinSemester || semester > MaxSemester {
		return fmt.Errorf("%w: semester %d (use %d-%d)", ErrValidation, semester, MinSemester, MaxSemester)
	}
	return nil
}

// ParseSemester parses and validates a semester number.
func ParseSemester(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: semester %q is not a number", ErrValidation, s)
	}
	if err := ValidateSemester(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateScore checks a test score is within 0..25.
func ValidateScore(v float64) error {
	if math.IsNaN(v) || v < MinScore || v > MaxScore {
		return fmt.Errorf("%w: score %v (use %.0f-%.0f)", ErrValidation, v, MinScore, MaxScore)
	}
	return nil
}

// ValidateStudentID rejects blank IDs.
func ValidateStudentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: student id is empty", ErrValidation)
	}
	return nil
}

// Validate checks every caller-supplied field of the update.
func (u ScoreUpdate) Validate() error {
	if err := ValidateStudentID(u.StudentID); err != nil {
		return err
	}
	if err := ValidateSemester(u.Semester); err != nil {
		return err
	}
	if strings.TrimSpace(u.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrValidation)
	}
	if u.Field < T1 || u.Field > T4 {
		return fmt.Errorf("%w: test field %d", ErrValidation, int(u.Field))
	}
	return ValidateScore(u.Value)
}

// Validate checks semester and test scores of a record.
func (r ScoreRecord) Validate() error {
	if err := ValidateStudentID(r.StudentID); err != nil {
		return err
	}
	if err := ValidateSemester(r.Semester); err != nil {
		return err
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrValidation)
	}
	for i, v := range r.Tests {
		if err := ValidateScore(v); err != nil {
			return fmt.Errorf("%s: %w", TestField(i), err)
		}
	}
	return nil
}
