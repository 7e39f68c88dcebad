package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/verte-zerg/gradebook/internal/model"
)

const dsnEnv = "GRADEBOOK_TEST_PG_DSN"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE students, student_scores, faculty, faculty_logs RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.Import(context.Background(),
		[]model.Student{{ID: "S1", FullName: "Asha Rao", Semester: 1}},
		[]model.ScoreRecord{{StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Tests: [4]float64{10, 12, 14, 16}}},
	)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
}

func TestGetStudentNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetStudent(context.Background(), "missing")
	if !errors.Is(err, model.ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestUpdateTestField(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	res, err := s.UpdateTestField(ctx, model.ScoreUpdate{ActorID: "F1", StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Field: model.T3, Value: 20})
	if err != nil {
		t.Fatalf("UpdateTestField failed: %v", err)
	}
	if res.OldValue != 14 || res.NewTotal != 58 {
		t.Fatalf("unexpected result %+v", res)
	}
	records, err := s.GetAllScores(ctx, "S1")
	if err != nil {
		t.Fatalf("GetAllScores failed: %v", err)
	}
	if records[0].Total != 58 {
		t.Fatalf("expected stored total 58, got %v", records[0].Total)
	}
	logs, err := s.ListAuditLog(ctx, "F1", 10)
	if err != nil {
		t.Fatalf("ListAuditLog failed: %v", err)
	}
	if len(logs) != 1 || logs[0].NewValue != "20" {
		t.Fatalf("unexpected audit log %+v", logs)
	}
}

func TestUpdateTestFieldRollsBack(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()
	if _, err := s.pool.Exec(ctx, `ALTER TABLE faculty_logs ADD CONSTRAINT block_audit CHECK (faculty_id <> 'BLOCKED')`); err != nil {
		t.Fatalf("add constraint: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `ALTER TABLE faculty_logs DROP CONSTRAINT IF EXISTS block_audit`)
	})

	_, err := s.UpdateTestField(ctx, model.ScoreUpdate{ActorID: "BLOCKED", StudentID: "S1", Semester: 1, Subject: "Physics (PHY)", Field: model.T1, Value: 25})
	if !errors.Is(err, model.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	records, err := s.GetAllScores(ctx, "S1")
	if err != nil {
		t.Fatalf("GetAllScores failed: %v", err)
	}
	if records[0].Tests[0] != 10 || records[0].Total != 52 {
		t.Fatalf("expected unchanged record, got %+v", records[0])
	}
}
