// Package analytics answers student and faculty questions over stored scores.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/stats"
)

// Store is the score storage the service reads and writes.
type Store interface {
	GetStudent(ctx context.Context, studentID string) (model.Student, error)
	GetScores(ctx context.Context, studentID string, semester int) ([]model.ScoreRecord, error)
	GetAllScores(ctx context.Context, studentID string) ([]model.ScoreRecord, error)
	GetSemesterScores(ctx context.Context, semester int) ([]model.ClassScore, error)
	ListSubjects(ctx context.Context, studentID string, semester int) ([]string, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	ListAllScores(ctx context.Context) ([]model.ScoreRecord, error)
	UpdateTestField(ctx context.Context, update model.ScoreUpdate) (model.UpdateResult, error)
	ListAuditLog(ctx context.Context, actorID string, limit int) ([]model.AuditEntry, error)
}

// Service implements the analytics operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a service over store. A nil logger discards output.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// Student returns a student, failing with ErrStudentNotFound when unknown.
func (s *Service) Student(ctx context.Context, studentID string) (model.Student, error) {
	if err := model.ValidateStudentID(studentID); err != nil {
		return model.Student{}, err
	}
	return s.store.GetStudent(ctx, studentID)
}

// Scores returns a student's records for one semester.
func (s *Service) Scores(ctx context.Context, studentID string, semester int) ([]model.ScoreRecord, error) {
	if err := model.ValidateSemester(semester); err != nil {
		return nil, err
	}
	if _, err := s.Student(ctx, studentID); err != nil {
		return nil, err
	}
	return s.store.GetScores(ctx, studentID, semester)
}

// SemesterSummary is a student's per-semester totals and subject pivot.
type SemesterSummary struct {
	Records []model.ScoreRecord
	Totals  []stats.SemesterPoint
	Pivot   stats.Pivot
}

// Semesters summarizes every semester for a student.
func (s *Service) Semesters(ctx context.Context, studentID string) (SemesterSummary, error) {
	if _, err := s.Student(ctx, studentID); err != nil {
		return SemesterSummary{}, err
	}
	records, err := s.store.GetAllScores(ctx, studentID)
	if err != nil {
		return SemesterSummary{}, err
	}
	if len(records) == 0 {
		return SemesterSummary{}, fmt.Errorf("student %s: %w", studentID, model.ErrNoData)
	}
	return SemesterSummary{
		Records: records,
		Totals:  stats.SemesterTotals(records),
		Pivot:   stats.Aggregate(records, stats.BySubjectSemester, stats.TotalScore).Pivot(stats.CombineSum),
	}, nil
}

// Comparative ranks a student's subject totals against the class for a semester.
func (s *Service) Comparative(ctx context.Context, studentID string, semester int) ([]model.ComparativeResult, error) {
	if err := model.ValidateSemester(semester); err != nil {
		return nil, err
	}
	if _, err := s.Student(ctx, studentID); err != nil {
		return nil, err
	}
	population, err := s.store.GetSemesterScores(ctx, semester)
	if err != nil {
		return nil, err
	}
	results, err := stats.Compare(studentID, population)
	if err != nil {
		return nil, fmt.Errorf("semester %d: %w", semester, err)
	}
	return results, nil
}

// Trend analyzes one subject's tests against a goal. subject may be a
// 1-based position, an acronym or (part of) a subject name. An empty or
// invalid goal falls back to the maximum score.
func (s *Service) Trend(ctx context.Context, studentID string, semester int, subject, goal string) (model.TrendReport, error) {
	if err := model.ValidateSemester(semester); err != nil {
		return model.TrendReport{}, err
	}
	if _, err := s.Student(ctx, studentID); err != nil {
		return model.TrendReport{}, err
	}
	subjects, err := s.store.ListSubjects(ctx, studentID, semester)
	if err != nil {
		return model.TrendReport{}, err
	}
	if len(subjects) == 0 {
		return model.TrendReport{}, fmt.Errorf("student %s semester %d: %w", studentID, semester, model.ErrNoData)
	}
	chosen, ok := acronym.Match(subjects, subject)
	if !ok {
		return model.TrendReport{}, fmt.Errorf("%w: no subject matches %q (have %s)", model.ErrValidation, subject, strings.Join(subjectLabels(subjects), ", "))
	}
	records, err := s.store.GetScores(ctx, studentID, semester)
	if err != nil {
		return model.TrendReport{}, err
	}
	parsed := stats.ParseGoal(goal)
	if parsed.Defaulted && strings.TrimSpace(goal) != "" {
		s.logger.Warn("goal out of range, using default", "goal", goal, "default", parsed.Value)
	}
	for _, r := range records {
		if r.Subject == chosen {
			return stats.RecordTrend(r, parsed), nil
		}
	}
	return model.TrendReport{}, fmt.Errorf("subject %s: %w", chosen, model.ErrNoData)
}

// Subjects lists a student's subjects for a semester.
func (s *Service) Subjects(ctx context.Context, studentID string, semester int) ([]string, error) {
	if err := model.ValidateSemester(semester); err != nil {
		return nil, err
	}
	return s.store.ListSubjects(ctx, studentID, semester)
}

func subjectLabels(subjects []string) []string {
	out := make([]string, len(subjects))
	for i, subj := range subjects {
		out[i] = acronym.Label(subj)
	}
	return out
}

// Overview returns every student's overall average.
func (s *Service) Overview(ctx context.Context) ([]model.StudentAverage, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAllScores(ctx)
	if err != nil {
		return nil, err
	}
	return stats.OverallAverages(students, records), nil
}

// Interventions returns students with data whose average lies in r.
func (s *Service) Interventions(ctx context.Context, r stats.AverageRange) ([]model.StudentAverage, error) {
	avgs, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}
	return stats.FilterAverages(avgs, r), nil
}

// ClassTrends averages every student's totals by semester and by subject.
func (s *Service) ClassTrends(ctx context.Context) (stats.ClassTrends, error) {
	records, err := s.store.ListAllScores(ctx)
	if err != nil {
		return stats.ClassTrends{}, err
	}
	if len(records) == 0 {
		return stats.ClassTrends{}, fmt.Errorf("class: %w", model.ErrNoData)
	}
	return stats.BuildClassTrends(records), nil
}

// UpdateScore applies a faculty edit to one test. The subject may be given
// the same ways as for Trend; it is resolved against the student's subjects
// for the semester before the update runs.
func (s *Service) UpdateScore(ctx context.Context, u model.ScoreUpdate) (model.UpdateResult, error) {
	if err := u.Validate(); err != nil {
		return model.UpdateResult{}, err
	}
	if strings.TrimSpace(u.ActorID) == "" {
		return model.UpdateResult{}, fmt.Errorf("%w: faculty id is empty", model.ErrValidation)
	}
	if _, err := s.store.GetStudent(ctx, u.StudentID); err != nil {
		return model.UpdateResult{}, err
	}
	subjects, err := s.store.ListSubjects(ctx, u.StudentID, u.Semester)
	if err != nil {
		return model.UpdateResult{}, err
	}
	chosen, ok := acronym.Match(subjects, u.Subject)
	if !ok {
		return model.UpdateResult{}, fmt.Errorf("%w: no subject matches %q for %s in semester %d", model.ErrNoData, u.Subject, u.StudentID, u.Semester)
	}
	u.Subject = chosen

	res, err := s.store.UpdateTestField(ctx, u)
	if err != nil {
		s.logger.Error("score update failed", "student", u.StudentID, "subject", u.Subject, "field", u.Field.String(), "error", err)
		return model.UpdateResult{}, err
	}
	s.logger.Info("score updated", "actor", u.ActorID, "student", u.StudentID, "subject", u.Subject, "field", u.Field.String(), "old", res.OldValue, "new", u.Value, "total", res.NewTotal)
	return res, nil
}

// AuditLog lists a faculty member's actions, most recent first.
func (s *Service) AuditLog(ctx context.Context, actorID string, limit int) ([]model.AuditEntry, error) {
	return s.store.ListAuditLog(ctx, actorID, limit)
}

// IsUserError reports whether err stems from caller input or missing data
// rather than a storage failure.
func IsUserError(err error) bool {
	return errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrNoData) || errors.Is(err, model.ErrStudentNotFound)
}
