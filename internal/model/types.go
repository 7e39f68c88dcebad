// Package model defines shared data structures.
package model

import "time"

// TestCount is the number of tests recorded per subject and semester.
const TestCount = 4

// Student is a registered student.
type Student struct {
	ID       string
	FullName string
	Semester int
}

// ScoreRecord holds one subject's four test scores for a student in a semester.
type ScoreRecord struct {
	StudentID string
	Semester  int
	Subject   string
	Tests     [TestCount]float64
	Total     float64
}

// NewScoreRecord builds a record with its total computed from the tests.
func NewScoreRecord(studentID string, semester int, subject string, tests [TestCount]float64) ScoreRecord {
	return ScoreRecord{
		StudentID: studentID,
		Semester:  semester,
		Subject:   subject,
		Tests:     tests,
		Total:     SumTests(tests),
	}
}

// SumTests returns T1+T2+T3+T4.
func SumTests(tests [TestCount]float64) float64 {
	var total float64
	for _, v := range tests {
		total += v
	}
	return total
}

// ClassScore is one row of a semester-wide score population.
type ClassScore struct {
	StudentID string
	Subject   string
	Total     float64
}

// AuditEntry records a change made by a faculty member.
type AuditEntry struct {
	ID        int64
	ActorID   string
	StudentID string
	Action    string
	OldValue  string
	NewValue  string
	At        time.Time
}

// ScoreUpdate describes a single test field change.
type ScoreUpdate struct {
	ActorID   string
	StudentID string
	Semester  int
	Subject   string
	Field     TestField
	Value     float64
}

// UpdateResult reports the outcome of a ScoreUpdate.
type UpdateResult struct {
	OldValue float64
	NewTotal float64
}

// ComparativeResult compares a student's subject total with the class.
type ComparativeResult struct {
	Acronym      string
	Subject      string
	StudentScore float64
	ClassAverage float64
	Percentile   float64
}

// TrendPoint is one test in a trend sequence.
type TrendPoint struct {
	Label     string
	Score     float64
	Rolling   float64
	BelowGoal bool
}

// TrendReport is the rolling trend of a subject's tests against a goal.
type TrendReport struct {
	Subject       string
	Semester      int
	Points        []TrendPoint
	Goal          float64
	GoalDefaulted bool
}

// StudentAverage is a student's overall average score.
type StudentAverage struct {
	Student Student
	Average float64
	HasData bool
}

// DatabaseConfig selects and locates the data store.
type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// ReportConfig defines options for report generation.
type ReportConfig struct {
	OutputDir   string
	Format      string
	ChartWidth  int
	ChartHeight int
}

// ChartArtifact is a rendered chart owned by whoever created it until Release.
type ChartArtifact interface {
	ID() string
	Title() string
	// Content returns the rendered chart. It fails after Release.
	Content() ([]byte, error)
	Release() error
}
