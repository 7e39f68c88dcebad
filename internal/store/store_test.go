package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/gradebook/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "gradebook.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return s
}

func seedStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	students := []model.Student{
		{ID: "S2", FullName: "Ben Ito", Semester: 2},
		{ID: "S1", FullName: "Asha Rao", Semester: 2},
	}
	records := []model.ScoreRecord{
		{StudentID: "S1", Semester: 2, Subject: "Physics (PHY)", Tests: [4]float64{20, 20, 20, 20}},
		{StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Tests: [4]float64{10, 12, 14, 16}},
		{StudentID: "S1", Semester: 1, Subject: "Ethics", Tests: [4]float64{5, 5, 5, 5}, Total: 999},
		{StudentID: "S2", Semester: 1, Subject: "Physics (PHY)", Tests: [4]float64{20, 20, 20, 20}},
	}
	if err := s.Import(ctx, students, records); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
}

func TestGetStudent(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	st, err := s.GetStudent(ctx, "S1")
	if err != nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	if st.FullName != "Asha Rao" || st.Semester != 2 {
		t.Fatalf("unexpected student %+v", st)
	}
	_, err = s.GetStudent(ctx, "missing")
	if !errors.Is(err, model.ErrStudentNotFound) || !errors.Is(err, model.ErrDataAccess) {
		t.Fatalf("expected not-found data access error, got %v", err)
	}

	all, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "S1" {
		t.Fatalf("expected students ordered by id, got %+v", all)
	}
}

func TestScoresOrderingAndTotals(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	records, err := s.GetAllScores(ctx, "S1")
	if err != nil {
		t.Fatalf("GetAllScores failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Semester != 1 || records[0].Subject != "Ethics" || records[2].Semester != 2 {
		t.Fatalf("expected semester then subject order, got %+v", records)
	}
	if records[0].Total != 20 {
		t.Fatalf("expected total recomputed to 20, got %v", records[0].Total)
	}

	sem1, err := s.GetScores(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	if len(sem1) != 2 {
		t.Fatalf("expected 2 semester 1 records, got %d", len(sem1))
	}

	subjects, err := s.ListSubjects(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("ListSubjects failed: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "Ethics" || subjects[1] != "Physics (PHY)" {
		t.Fatalf("unexpected subjects %v", subjects)
	}

	class, err := s.GetSemesterScores(ctx, 1)
	if err != nil {
		t.Fatalf("GetSemesterScores failed: %v", err)
	}
	if len(class) != 3 {
		t.Fatalf("expected 3 semester 1 rows, got %d", len(class))
	}

	everything, err := s.ListAllScores(ctx)
	if err != nil {
		t.Fatalf("ListAllScores failed: %v", err)
	}
	if len(everything) != 4 {
		t.Fatalf("expected 4 records, got %d", len(everything))
	}
}

func TestUpsertScoreValidates(t *testing.T) {
	s := openTestStore(t)
	err := s.UpsertScore(context.Background(), model.ScoreRecord{StudentID: "S1", Semester: 4, Subject: "Ethics"})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	err = s.UpsertScore(context.Background(), model.ScoreRecord{StudentID: "S1", Semester: 1, Subject: "Ethics", Tests: [4]float64{26}})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation for out-of-range score, got %v", err)
	}
}

func TestUpdateTestField(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	update := model.ScoreUpdate{ActorID: "F1", StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Field: model.T2, Value: 18.5}
	res, err := s.UpdateTestField(ctx, update)
	if err != nil {
		t.Fatalf("UpdateTestField failed: %v", err)
	}
	if res.OldValue != 12 || res.NewTotal != 58.5 {
		t.Fatalf("unexpected result %+v", res)
	}

	records, err := s.GetScores(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	phy := records[1]
	if phy.Tests[1] != 18.5 || phy.Total != 58.5 {
		t.Fatalf("expected stored update, got %+v", phy)
	}

	logs, err := s.ListAuditLog(ctx, "F1", 0)
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(logs))
	}
	want := "Updated Physics (PHY) T2: 12 -> 18.5, new total score = 58.5"
	if logs[0].Action != want || logs[0].OldValue != "12" || logs[0].NewValue != "18.5" {
		t.Fatalf("unexpected audit entry %+v", logs[0])
	}
	if !logs[0].At.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, logs[0].At)
	}
}

func TestUpdateTestFieldRecomputesTotal(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()
	rec := model.ScoreRecord{StudentID: "S2", Semester: 2, Subject: "Data Structures", Tests: [4]float64{10, 15, 12, 8}}
	if err := s.UpsertScore(ctx, rec); err != nil {
		t.Fatalf("UpsertScore failed: %v", err)
	}

	update := model.ScoreUpdate{ActorID: "F1", StudentID: "S2", Semester: 2, Subject: "Data Structures", Field: model.T2, Value: 20}
	res, err := s.UpdateTestField(ctx, update)
	if err != nil {
		t.Fatalf("UpdateTestField failed: %v", err)
	}
	if res.OldValue != 15 || res.NewTotal != 50 {
		t.Fatalf("expected old 15 and total 50, got %+v", res)
	}
	records, err := s.GetScores(ctx, "S2", 2)
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	if len(records) != 1 || records[0].Tests != [4]float64{10, 20, 12, 8} || records[0].Total != 50 {
		t.Fatalf("unexpected stored record %+v", records)
	}
}

func TestUpdateTestFieldRollsBackWhenAuditFails(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()
	if _, err := s.db.Exec(`CREATE TRIGGER block_audit BEFORE INSERT ON faculty_logs
		BEGIN SELECT RAISE(ABORT, 'audit disabled'); END;`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	update := model.ScoreUpdate{ActorID: "F1", StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Field: model.T1, Value: 25}
	if _, err := s.UpdateTestField(ctx, update); !errors.Is(err, model.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	records, err := s.GetScores(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	phy := records[1]
	if phy.Tests[0] != 10 || phy.Total != 52 {
		t.Fatalf("expected score unchanged after rollback, got %+v", phy)
	}
	logs, err := s.ListAuditLog(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(logs))
	}
}

func TestUpdateTestFieldErrors(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	_, err := s.UpdateTestField(ctx, model.ScoreUpdate{ActorID: "F1", StudentID: "S1", Semester: 3, Subject: "Ethics", Field: model.T1, Value: 5})
	if !errors.Is(err, model.ErrNoData) {
		t.Fatalf("expected ErrNoData for missing record, got %v", err)
	}
	_, err = s.UpdateTestField(ctx, model.ScoreUpdate{ActorID: "F1", StudentID: "S1", Semester: 1, Subject: "Ethics", Field: model.T1, Value: 30})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation for out-of-range value, got %v", err)
	}
}

func TestListAuditLogMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base, base.Add(2 * time.Hour), base.Add(time.Hour)} {
		entry := model.AuditEntry{ActorID: "F1", StudentID: "S1", Action: "note", OldValue: "", NewValue: string(rune('a' + i)), At: at}
		if _, err := s.AppendAuditLog(ctx, entry); err != nil {
			t.Fatalf("AppendAuditLog failed: %v", err)
		}
	}
	if _, err := s.AppendAuditLog(ctx, model.AuditEntry{ActorID: "F2", StudentID: "S1", Action: "note", At: base}); err != nil {
		t.Fatalf("AppendAuditLog failed: %v", err)
	}

	logs, err := s.ListAuditLog(ctx, "F1", 0)
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 entries for F1, got %d", len(logs))
	}
	if logs[0].NewValue != "b" || logs[1].NewValue != "c" || logs[2].NewValue != "a" {
		t.Fatalf("expected most recent first, got %+v", logs)
	}
	limited, err := s.ListAuditLog(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestFacultyPasswordHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.PutFaculty(ctx, "F1", "hash-1"); err != nil {
		t.Fatalf("PutFaculty failed: %v", err)
	}
	if err := s.PutFaculty(ctx, "F1", "hash-2"); err != nil {
		t.Fatalf("PutFaculty overwrite failed: %v", err)
	}
	hash, err := s.FacultyPasswordHash(ctx, "F1")
	if err != nil {
		t.Fatalf("FacultyPasswordHash failed: %v", err)
	}
	if hash != "hash-2" {
		t.Fatalf("expected latest hash, got %q", hash)
	}
	if _, err := s.FacultyPasswordHash(ctx, "F9"); !errors.Is(err, model.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
