// Package pgstore implements score storage on PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verte-zerg/gradebook/internal/model"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to dsn, verifies the connection and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", model.ErrDataAccess, err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %w", model.ErrDataAccess, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", model.ErrDataAccess, err)
	}
	s := &Store{pool: pool, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: migrate: %w", model.ErrDataAccess, err)
	}
	return s, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			enrolment_id TEXT PRIMARY KEY,
			fullname TEXT NOT NULL,
			semester INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS student_scores (
			enrolment_id TEXT NOT NULL,
			semester INTEGER NOT NULL,
			subject TEXT NOT NULL,
			t1 DOUBLE PRECISION NOT NULL,
			t2 DOUBLE PRECISION NOT NULL,
			t3 DOUBLE PRECISION NOT NULL,
			t4 DOUBLE PRECISION NOT NULL,
			total_score DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (enrolment_id, semester, subject)
		)`,
		`CREATE TABLE IF NOT EXISTS faculty (
			faculty_id TEXT PRIMARY KEY,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_logs (
			log_id BIGSERIAL PRIMARY KEY,
			faculty_id TEXT NOT NULL,
			enrolment_id TEXT NOT NULL,
			action TEXT NOT NULL,
			old_value TEXT NOT NULL,
			new_value TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_student_scores_semester ON student_scores(semester)`,
		`CREATE INDEX IF NOT EXISTS idx_faculty_logs_faculty ON faculty_logs(faculty_id, timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
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
	err := s.pool.QueryRow(ctx,
		`SELECT enrolment_id, fullname, semester FROM students WHERE enrolment_id = $1`, id,
	).Scan(&st.ID, &st.FullName, &st.Semester)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Student{}, fmt.Errorf("student %s: %w", id, model.ErrStudentNotFound)
	}
	if err != nil {
		return model.Student{}, dataErr("get student", err)
	}
	return st, nil
}

// ListStudents returns every student ordered by enrolment ID.
func (s *Store) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := s.pool.Query(ctx, `SELECT enrolment_id, fullname, semester FROM students ORDER BY enrolment_id`)
	if err != nil {
		return nil, dataErr("list students", err)
	}
	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Student, error) {
		var st model.Student
		err := row.Scan(&st.ID, &st.FullName, &st.Semester)
		return st, err
	})
	if err != nil {
		return nil, dataErr("list students", err)
	}
	return students, nil
}

// UpsertStudent inserts a student or updates the name and current semester.
func (s *Store) UpsertStudent(ctx context.Context, st model.Student) error {
	if err := model.ValidateStudentID(st.ID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertStudentSQL, st.ID, st.FullName, st.Semester); err != nil {
		return writeErr("upsert student", err)
	}
	return nil
}

const (
	scoreColumns     = `enrolment_id, semester, subject, t1, t2, t3, t4, total_score`
	upsertStudentSQL = `INSERT INTO students (enrolment_id, fullname, semester) VALUES ($1, $2, $3)
		ON CONFLICT (enrolment_id) DO UPDATE SET fullname = EXCLUDED.fullname, semester = EXCLUDED.semester`
	upsertScoreSQL = `INSERT INTO student_scores (` + scoreColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (enrolment_id, semester, subject) DO UPDATE SET
			t1 = EXCLUDED.t1, t2 = EXCLUDED.t2, t3 = EXCLUDED.t3, t4 = EXCLUDED.t4,
			total_score = EXCLUDED.total_score`
	insertAuditSQL = `INSERT INTO faculty_logs (faculty_id, enrolment_id, action, old_value, new_value, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING log_id`
)

func scanScore(row pgx.CollectableRow) (model.ScoreRecord, error) {
	var r model.ScoreRecord
	err := row.Scan(&r.StudentID, &r.Semester, &r.Subject, &r.Tests[0], &r.Tests[1], &r.Tests[2], &r.Tests[3], &r.Total)
	return r, err
}

func (s *Store) queryScores(ctx context.Context, op, query string, args ...any) ([]model.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dataErr(op, err)
	}
	records, err := pgx.CollectRows(rows, scanScore)
	if err != nil {
		return nil, dataErr(op, err)
	}
	return records, nil
}

// GetScores returns one semester's records for a student, ordered by subject.
func (s *Store) GetScores(ctx context.Context, id string, semester int) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "get scores",
		`SELECT `+scoreColumns+` FROM student_scores WHERE enrolment_id = $1 AND semester = $2 ORDER BY subject`,
		id, semester)
}

// GetAllScores returns every record for a student, ordered by semester then subject.
func (s *Store) GetAllScores(ctx context.Context, id string) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "get all scores",
		`SELECT `+scoreColumns+` FROM student_scores WHERE enrolment_id = $1 ORDER BY semester, subject`,
		id)
}

// ListAllScores returns every stored record.
func (s *Store) ListAllScores(ctx context.Context) ([]model.ScoreRecord, error) {
	return s.queryScores(ctx, "list all scores",
		`SELECT `+scoreColumns+` FROM student_scores ORDER BY enrolment_id, semester, subject`)
}

// GetSemesterScores returns the totals of every student for a semester.
func (s *Store) GetSemesterScores(ctx context.Context, semester int) ([]model.ClassScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT enrolment_id, subject, total_score FROM student_scores WHERE semester = $1 ORDER BY subject, enrolment_id`,
		semester)
	if err != nil {
		return nil, dataErr("get semester scores", err)
	}
	scores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ClassScore, error) {
		var cs model.ClassScore
		err := row.Scan(&cs.StudentID, &cs.Subject, &cs.Total)
		return cs, err
	})
	if err != nil {
		return nil, dataErr("get semester scores", err)
	}
	return scores, nil
}

// ListSubjects returns the distinct subjects a student has in a semester.
func (s *Store) ListSubjects(ctx context.Context, id string, semester int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT subject FROM student_scores WHERE enrolment_id = $1 AND semester = $2 ORDER BY subject`,
		id, semester)
	if err != nil {
		return nil, dataErr("list subjects", err)
	}
	subjects, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
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
	if _, err := s.pool.Exec(ctx, upsertScoreSQL, scoreArgs(r)...); err != nil {
		return writeErr("upsert score", err)
	}
	return nil
}

func scoreArgs(r model.ScoreRecord) []any {
	return []any{r.StudentID, r.Semester, r.Subject, r.Tests[0], r.Tests[1], r.Tests[2], r.Tests[3], r.Total}
}

// Import stores students and records in a single transaction.
func (s *Store) Import(ctx context.Context, students []model.Student, records []model.ScoreRecord) error {
	for i := range records {
		records[i] = model.NewScoreRecord(records[i].StudentID, records[i].Semester, records[i].Subject, records[i].Tests)
		if err := records[i].Validate(); err != nil {
			return err
		}
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, st := range students {
			batch.Queue(upsertStudentSQL, st.ID, st.FullName, st.Semester)
		}
		for _, r := range records {
			batch.Queue(upsertScoreSQL, scoreArgs(r)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return writeErr("import", err)
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
// the audit entry in a single transaction.
func (s *Store) UpdateTestField(ctx context.Context, u model.ScoreUpdate) (model.UpdateResult, error) {
	if err := u.Validate(); err != nil {
		return model.UpdateResult{}, err
	}
	column, err := fieldColumn(u.Field)
	if err != nil {
		return model.UpdateResult{}, err
	}

	var res model.UpdateResult
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var r model.ScoreRecord
		err := tx.QueryRow(ctx,
			`SELECT `+scoreColumns+` FROM student_scores
			 WHERE enrolment_id = $1 AND semester = $2 AND subject = $3 FOR UPDATE`,
			u.StudentID, u.Semester, u.Subject,
		).Scan(&r.StudentID, &r.Semester, &r.Subject, &r.Tests[0], &r.Tests[1], &r.Tests[2], &r.Tests[3], &r.Total)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: no %s record for %s in semester %d", model.ErrNoData, u.Subject, u.StudentID, u.Semester)
		}
		if err != nil {
			return dataErr("read score", err)
		}

		res.OldValue = r.Tests[u.Field.Index()]
		r.Tests[u.Field.Index()] = u.Value
		res.NewTotal = model.SumTests(r.Tests)

		if _, err := tx.Exec(ctx,
			`UPDATE student_scores SET `+column+` = $1, total_score = $2
			 WHERE enrolment_id = $3 AND semester = $4 AND subject = $5`,
			u.Value, res.NewTotal, u.StudentID, u.Semester, u.Subject); err != nil {
			return writeErr("update score", err)
		}
		e := u.AuditEntry(res, s.now())
		var id int64
		if err := tx.QueryRow(ctx, insertAuditSQL, e.ActorID, e.StudentID, e.Action, e.OldValue, e.NewValue, e.At).Scan(&id); err != nil {
			return writeErr("append audit log", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNoData) || errors.Is(err, model.ErrDataAccess) || errors.Is(err, model.ErrPersistence) {
			return model.UpdateResult{}, err
		}
		return model.UpdateResult{}, writeErr("update transaction", err)
	}
	return res, nil
}

// AppendAuditLog records a faculty action outside of a score update.
func (s *Store) AppendAuditLog(ctx context.Context, e model.AuditEntry) (int64, error) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	var id int64
	if err := s.pool.QueryRow(ctx, insertAuditSQL, e.ActorID, e.StudentID, e.Action, e.OldValue, e.NewValue, e.At).Scan(&id); err != nil {
		return 0, writeErr("append audit log", err)
	}
	return id, nil
}

// ListAuditLog returns a faculty member's log entries, most recent first.
// An empty actorID lists every entry; limit <= 0 means no limit.
func (s *Store) ListAuditLog(ctx context.Context, actorID string, limit int) ([]model.AuditEntry, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT log_id, faculty_id, enrolment_id, action, old_value, new_value, timestamp
		 FROM faculty_logs
		 WHERE ($1 = '' OR faculty_id = $1)
		 ORDER BY timestamp DESC, log_id DESC
		 LIMIT $2`,
		actorID, limitArg)
	if err != nil {
		return nil, dataErr("list audit log", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AuditEntry, error) {
		var e model.AuditEntry
		err := row.Scan(&e.ID, &e.ActorID, &e.StudentID, &e.Action, &e.OldValue, &e.NewValue, &e.At)
		return e, err
	})
	if err != nil {
		return nil, dataErr("list audit log", err)
	}
	return entries, nil
}

// PutFaculty stores a faculty member's password hash.
func (s *Store) PutFaculty(ctx context.Context, facultyID, passwordHash string) error {
	if facultyID == "" {
		return fmt.Errorf("%w: faculty id is empty", model.ErrValidation)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO faculty (faculty_id, password) VALUES ($1, $2)
		 ON CONFLICT (faculty_id) DO UPDATE SET password = EXCLUDED.password`,
		facultyID, passwordHash)
	if err != nil {
		return writeErr("put faculty", err)
	}
	return nil
}

// FacultyPasswordHash returns the stored hash for a faculty member.
func (s *Store) FacultyPasswordHash(ctx context.Context, facultyID string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password FROM faculty WHERE faculty_id = $1`, facultyID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("faculty %s: %w", facultyID, model.ErrNoData)
	}
	if err != nil {
		return "", dataErr("get faculty", err)
	}
	return hash, nil
}
