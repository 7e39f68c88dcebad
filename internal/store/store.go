// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/gradebook/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timestampLayout sorts lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for students, scores and faculty records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %w", model.ErrDataAccess, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", model.ErrDataAccess, path, err)
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("%w: migrate: %w", model.ErrDataAccess, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			enrolment_id TEXT PRIMARY KEY,
			fullname TEXT NOT NULL,
			semester INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS student_scores (
			enrolment_id TEXT NOT NULL,
			semester INTEGER NOT NULL,
			subject TEXT NOT NULL,
			t1 REAL NOT NULL,
			t2 REAL NOT NULL,
			t3 REAL NOT NULL,
			t4 REAL NOT NULL,
			total_score REAL NOT NULL,
			PRIMARY KEY (enrolment_id, semester, subject)
		);`,
		`CREATE TABLE IF NOT EXISTS faculty (
			faculty_id TEXT PRIMARY KEY,
			password TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS faculty_logs (
			log_id INTEGER PRIMARY KEY,
			faculty_id TEXT NOT NULL,
			enrolment_id TEXT NOT NULL,
			action TEXT NOT NULL,
			old_value TEXT NOT NULL,
			new_value TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_student_scores_semester ON student_scores(semester);`,
		`CREATE INDEX IF NOT EXISTS idx_faculty_logs_faculty ON faculty_logs(faculty_id, timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func dataErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrDataAccess, op, err)
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrPersistence, op, err)
}

// GetStudent returns the student with the given enrolment ID.
func (s *Store) GetStudent(ctx context.Context, id string) (model.Student, error) {
	var st model.Student
	err := s.db.QueryRowContext(ctx,
		`SELECT enrolment_id, fullname, semester FROM students WHERE enrolment_id = ?`, id,
	).Scan(&st.ID, &st.FullName, &st.Semester)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, fmt.Errorf("student %s: %w", id, model.ErrStudentNotFound)
	}
	if err != nil {
		return model.Student{}, dataErr("get student", err)
	}
	return st, nil
}

// ListStudents returns every student ordered by enrolment ID.
func (s *Store) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT enrolment_id, fullname, semester FROM students ORDER BY enrolment_id`)
	if err != nil {
		return nil, dataErr("list students", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.FullName, &st.Semester); err != nil {
			return nil, dataErr("scan student", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("list students", err)
	}
	return students, nil
}

// UpsertStudent inserts a student or updates the name and current semester.
func (s *Store) UpsertStudent(ctx context.Context, st model.Student) error {
	if err := model.ValidateStudentID(st.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (enrolment_id, fullname, semester) VALUES (?, ?, ?)
		 ON CONFLICT(enrolment_id) DO UPDATE SET fullname = excluded.fullname, semester = excluded.semester`,
		st.ID, st.FullName, st.Semester)
	if err != nil {
		return writeErr("upsert student", err)
	}
	return nil
}

const scoreColumns = `enrolment_id, semester, subject, t1, t2, t3, t4, total_score`

// GetScores returns one semester's records for a student, ordered by subject.
func (s *Store) GetScores(ctx context.Context, id string, semester int) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "get scores",
		`SELECT `+scoreColumns+` FROM student_scores WHERE enrolment_id = ? AND semester = ? ORDER BY subject`,
		id, semester)
}

// GetAllScores returns every record for a student, ordered by semester then subject.
func (s *Store) GetAllScores(ctx context.Context, id string) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "get all scores",
		`SELECT `+scoreColumns+` FROM student_scores WHERE enrolment_id = ? ORDER BY semester, subject`,
		id)
}

// ListAllScores returns every stored record.
func (s *Store) ListAllScores(ctx context.Context) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "list all scores",
		`SELECT `+scoreColumns+` FROM student_scores ORDER BY enrolment_id, semester, subject`)
}

func (s *Store) queryScores(ctx context.Context, op, query string, args ...any) ([]model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dataErr(op, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.ScoreRecord
	for rows.Next() {
		var r model.ScoreRecord
		if err := rows.Scan(&r.StudentID, &r.Semester, &r.Subject, &r.Tests[0], &r.Tests[1], &r.Tests[2], &r.Tests[3], &r.Total); err != nil {
			return nil, dataErr(op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr(op, err)
	}
	return records, nil
}

// GetSemesterScores returns the totals of every student for a semester.
func (s *Store) GetSemesterScores(ctx context.Context, semester int) ([]model.ClassScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT enrolment_id, subject, total_score FROM student_scores WHERE semester = ? ORDER BY subject, enrolment_id`,
		semester)
	if err != nil {
		return nil, dataErr("get semester scores", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var scores []model.ClassScore
	for rows.Next() {
		var cs model.ClassScore
		if err := rows.Scan(&cs.StudentID, &cs.Subject, &cs.Total); err != nil {
			return nil, dataErr("scan semester score", err)
		}
		scores = append(scores, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("get semester scores", err)
	}
	return scores, nil
}

// ListSubjects returns the distinct subjects a student has in a semester.
func (s *Store) ListSubjects(ctx context.Context, id string, semester int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT subject FROM student_scores WHERE enrolment_id = ? AND semester = ? ORDER BY subject`,
		id, semester)
	if err != nil {
		return nil, dataErr("list subjects", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, dataErr("scan subject", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("list subjects", err)
	}
	return subjects, nil
}

// UpsertScore stores a record, recomputing its total.
func (s *Store) UpsertScore(ctx context.Context, r model.ScoreRecord) error {
	r = model.NewScoreRecord(r.StudentID, r.Semester, r.Subject, r.Tests)
	if err := r.Validate(); err != nil {
		return err
	}
	if err := upsertScore(ctx, s.db, r); err != nil {
		return writeErr("upsert score", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertScore(ctx context.Context, db execer, r model.ScoreRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO student_scores (`+scoreColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(enrolment_id, semester, subject) DO UPDATE SET
			t1 = excluded.t1, t2 = excluded.t2, t3 = excluded.t3, t4 = excluded.t4,
			total_score = excluded.total_score`,
		r.StudentID, r.Semester, r.Subject, r.Tests[0], r.Tests[1], r.Tests[2], r.Tests[3], r.Total)
	return err
}

// Import stores students and records in a single transaction.
func (s *Store) Import(ctx context.Context, students []model.Student, records []model.ScoreRecord) (err error) {
	for i := range records {
		records[i] = model.NewScoreRecord(records[i].StudentID, records[i].Semester, records[i].Subject, records[i].Tests)
		if err := records[i].Validate(); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("begin import", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, st := range students {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO students (enrolment_id, fullname, semester) VALUES (?, ?, ?)
			 ON CONFLICT(enrolment_id) DO UPDATE SET fullname = excluded.fullname, semester = excluded.semester`,
			st.ID, st.FullName, st.Semester); err != nil {
			return writeErr("import student "+st.ID, err)
		}
	}
	for _, r := range records {
		if err = upsertScore(ctx, tx, r); err != nil {
			return writeErr("import score "+r.StudentID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return writeErr("commit import", err)
	}
	return nil
}

func fieldColumn(f model.TestField) (string, error) {
	switch f {
	case model.T1:
		return "t1", nil
	case model.T2:
		return "t2", nil
	case model.T3:
		return "t3", nil
	case model.T4:
		return "t4", nil
	}
	return "", fmt.Errorf("%w: test field %d", model.ErrValidation, int(f))
}

// UpdateTestField changes one test score, recomputes the total and records
// the audit entry in a single transaction. On any failure nothing is kept.
func (s *Store) UpdateTestField(ctx context.Context, u model.ScoreUpdate) (res model.UpdateResult, err error) {
	if err := u.Validate(); err != nil {
		return model.UpdateResult{}, err
	}
	column, err := fieldColumn(u.Field)
	if err != nil {
		return model.UpdateResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.UpdateResult{}, writeErr("begin update", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var r model.ScoreRecord
	err = tx.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM student_scores WHERE enrolment_id = ? AND semester = ? AND subject = ?`,
		u.StudentID, u.Semester, u.Subject,
	).Scan(&r.StudentID, &r.Semester, &r.Subject, &r.Tests[0], &r.Tests[1], &r.Tests[2], &r.Tests[3], &r.Total)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: no %s record for %s in semester %d", model.ErrNoData, u.Subject, u.StudentID, u.Semester)
		return model.UpdateResult{}, err
	}
	if err != nil {
		return model.UpdateResult{}, dataErr("read score", err)
	}

	res.OldValue = r.Tests[u.Field.Index()]
	r.Tests[u.Field.Index()] = u.Value
	res.NewTotal = model.SumTests(r.Tests)

	if _, err = tx.ExecContext(ctx,
		`UPDATE student_scores SET `+column+` = ?, total_score = ? WHERE enrolment_id = ? AND semester = ? AND subject = ?`,
		u.Value, res.NewTotal, u.StudentID, u.Semester, u.Subject); err != nil {
		return model.UpdateResult{}, writeErr("update score", err)
	}
	if _, err = insertAudit(ctx, tx, u.AuditEntry(res, s.now())); err != nil {
		return model.UpdateResult{}, writeErr("append audit log", err)
	}
	if err = tx.Commit(); err != nil {
		return model.UpdateResult{}, writeErr("commit update", err)
	}
	return res, nil
}

func insertAudit(ctx context.Context, db execer, e model.AuditEntry) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO faculty_logs (faculty_id, enrolment_id, action, old_value, new_value, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ActorID, e.StudentID, e.Action, e.OldValue, e.NewValue, e.At.UTC().Format(timestampLayout))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AppendAuditLog records a faculty action outside of a score update.
func (s *Store) AppendAuditLog(ctx context.Context, e model.AuditEntry) (int64, error) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	id, err := insertAudit(ctx, s.db, e)
	if err != nil {
		return 0, writeErr("append audit log", err)
	}
	return id, nil
}

// ListAuditLog returns a faculty member's log entries, most recent first.
// An empty actorID lists every entry; limit <= 0 means no limit.
func (s *Store) ListAuditLog(ctx context.Context, actorID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT log_id, faculty_id, enrolment_id, action, old_value, new_value, timestamp
		 FROM faculty_logs
		 WHERE (? = '' OR faculty_id = ?)
		 ORDER BY timestamp DESC, log_id DESC
		 LIMIT ?`,
		actorID, actorID, limit)
	if err != nil {
		return nil, dataErr("list audit log", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var at string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.StudentID, &e.Action, &e.OldValue, &e.NewValue, &at); err != nil {
			return nil, dataErr("scan audit entry", err)
		}
		parsed, err := time.Parse(timestampLayout, at)
		if err != nil {
			return nil, dataErr("parse audit timestamp", err)
		}
		e.At = parsed
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("list audit log", err)
	}
	return entries, nil
}

// PutFaculty stores a faculty member's password hash.
func (s *Store) PutFaculty(ctx context.Context, facultyID, passwordHash string) error {
	if facultyID == "" {
		return fmt.Errorf("%w: faculty id is empty", model.ErrValidation)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faculty (faculty_id, password) VALUES (?, ?)
		 ON CONFLICT(faculty_id) DO UPDATE SET password = excluded.password`,
		facultyID, passwordHash)
	if err != nil {
		return writeErr("put faculty", err)
	}
	return nil
}

// FacultyPasswordHash returns the stored hash for a faculty member.
func (s *Store) FacultyPasswordHash(ctx context.Context, facultyID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password FROM faculty WHERE faculty_id = ?`, facultyID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("faculty %s: %w", facultyID, model.ErrNoData)
	}
	if err != nil {
		return "", dataErr("get faculty", err)
	}
	return hash, nil
}
