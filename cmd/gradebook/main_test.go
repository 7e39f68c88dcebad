package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/gradebook/internal/model"
)

const testRoster = `enrolment_id,fullname,current_semester,semester,subject,t1,t2,t3,t4
E001,Ada Lovelace,2,1,Physics (PHY),20,18,22,19
E001,Ada Lovelace,2,2,Chemistry (CHE),10,12,14,16
E002,Alan Turing,2,2,Chemistry (CHE),20,20,20,20
`

type cli struct {
	t   *testing.T
	dir string
	db  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	c := &cli{t: t, dir: dir, db: filepath.Join(dir, "gradebook.db")}
	path := filepath.Join(dir, "roster.csv")
	if err := os.WriteFile(path, []byte(testRoster), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	if _, err := c.run("", "import", path); err != nil {
		t.Fatalf("import: %v", err)
	}
	return c
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out, errw bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errw)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(c.dir, "config.toml"), "--db", c.db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStudentScores(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "student", "scores", "--id", "E001", "--no-auth")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if !strings.Contains(out, "Ada Lovelace (E001)") || !strings.Contains(out, "Semester 2 Performance") || !strings.Contains(out, "CHE") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestStudentPasswordPrompt(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("AdaE001\n", "student", "scores", "--id", "E001", "--semester", "1"); err != nil {
		t.Fatalf("expected password to be accepted: %v", err)
	}
	_, err := c.run("wrong\n", "student", "scores", "--id", "E001")
	if err == nil || err.Error() != "invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestStudentNotFound(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "student", "scores", "--id", "E999", "--no-auth")
	if !errors.Is(err, model.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	c := newCLI(t)
	_, notFound := c.run("", "student", "scores", "--id", "E999", "--no-auth")
	_, badPassword := c.run("wrong\n", "student", "scores", "--id", "E001")
	_, badSemester := c.run("", "student", "scores", "--id", "E001", "--no-auth", "--semester", "7")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"unknown student", notFound, 2},
		{"wrong password", badPassword, 2},
		{"bad semester", badSemester, 2},
		{"failed write", fmt.Errorf("update: %w", model.ErrPersistence), 1},
		{"unreachable store", fmt.Errorf("open: %w", model.ErrDataAccess), 1},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%s: exitCode(%v) = %d, want %d", tc.name, tc.err, got, tc.want)
		}
	}
}

func TestStudentCompareAndTrend(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "student", "compare", "--id", "E001", "--no-auth")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "Comparative Analysis - Semester 2") || !strings.Contains(out, "Your Score vs Class Average") {
		t.Fatalf("unexpected compare output:\n%s", out)
	}
	out, err = c.run("", "student", "trend", "--id", "E001", "--no-auth", "--subject", "che", "--goal", "15")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if !strings.Contains(out, "Goal: 15") || !strings.Contains(out, "Below Goal") {
		t.Fatalf("unexpected trend output:\n%s", out)
	}
}

func TestStudentReport(t *testing.T) {
	c := newCLI(t)
	outDir := filepath.Join(c.dir, "reports")
	out, err := c.run("", "student", "report", "--id", "E001", "--no-auth", "--format", "yaml", "--output-dir", outDir)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	path := filepath.Join(outDir, "student_report_E001.yaml")
	if !strings.Contains(out, path) {
		t.Fatalf("expected report path in output:\n%s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "Ada Lovelace") {
		t.Fatalf("report is missing the student name")
	}
}

func TestFacultyFlow(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("secret1\nsecret1\n", "faculty", "add", "--faculty-id", "F1"); err != nil {
		t.Fatalf("add faculty: %v", err)
	}
	if _, err := c.run("nope\n", "faculty", "overview", "--faculty-id", "F1"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	out, err := c.run("secret1\n", "faculty", "update", "--faculty-id", "F1",
		"--id", "E001", "--semester", "2", "--subject", "CHE", "--field", "t2", "--value", "20")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(out, "12 -> 20, new total score = 60") {
		t.Fatalf("unexpected update output:\n%s", out)
	}
	out, err = c.run("secret1\n", "faculty", "audit", "--faculty-id", "F1")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(out, "E001") || !strings.Contains(out, "Audit Log for F1") {
		t.Fatalf("unexpected audit output:\n%s", out)
	}
	out, err = c.run("secret1\n", "faculty", "interventions", "--faculty-id", "F1", "--max", "70")
	if err != nil {
		t.Fatalf("interventions: %v", err)
	}
	if !strings.Contains(out, "E001") || strings.Contains(out, "E002") {
		t.Fatalf("unexpected interventions output:\n%s", out)
	}
	out, err = c.run("secret1\n", "student", "scores", "--id", "E002", "--faculty-id", "F1")
	if err != nil {
		t.Fatalf("faculty viewing a student: %v", err)
	}
	if !strings.Contains(out, "Alan Turing") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestFacultyAddMismatch(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("secret1\nsecret2\n", "faculty", "add", "--faculty-id", "F1"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestSeedAndConfigShow(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "seed", "--students", "5", "--seed", "3")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "Seeded 5 students") || !strings.Contains(out, "EN0001") {
		t.Fatalf("unexpected seed output:\n%s", out)
	}
	out, err = c.run("", "config", "--show")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "[database]") || !strings.Contains(out, c.db) {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestReadLine(t *testing.T) {
	r := strings.NewReader("one\r\ntwo")
	first, err := readLine(r)
	if err != nil || first != "one" {
		t.Fatalf("unexpected first line %q (%v)", first, err)
	}
	second, err := readLine(r)
	if err != nil || second != "two" {
		t.Fatalf("unexpected second line %q (%v)", second, err)
	}
}
