package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/report"
)

type stubChart struct {
	id, title, body string
	released        bool
}

func (c *stubChart) ID() string    { return c.id }
func (c *stubChart) Title() string { return c.title }
func (c *stubChart) Content() ([]byte, error) {
	if c.released {
		return nil, model.ErrRender
	}
	return []byte(c.body), nil
}
func (c *stubChart) Release() error {
	c.released = true
	return nil
}

func sampleDocument(chart *stubChart) *report.Document {
	return &report.Document{
		ID:          "doc-1",
		StudentID:   "CS/21/001",
		StudentName: "Asha Rao",
		Title:       "Academic Performance Report",
		Sections: []report.Section{
			{Kind: report.KindHeading, Part: report.PartHeader, Title: "Academic Performance Report"},
			{Kind: report.KindNote, Part: report.PartHeader, Text: "Enrolment ID: CS/21/001\nName: Asha Rao"},
			{Kind: report.KindHeading, Part: report.PartScores, Title: "1. Individual Subject & Test Scores"},
			{Kind: report.KindHeading, Part: report.PartScores, Semester: 1, Title: "Semester 1 Performance"},
			{Kind: report.KindTable, Part: report.PartScores, Semester: 1, Table: &report.Table{
				Headers: []string{"Subject", "T1", "T2", "T3", "T4", "Total Score"},
				Rows:    [][]string{{"PHY", "10", "12", "14", "16", "52"}},
			}},
			{Kind: report.KindChart, Part: report.PartScores, Semester: 1, Title: "PHY - Semester 1", Chart: chart},
			{Kind: report.KindNote, Part: report.PartComparative, Semester: 3, Text: "No comparative analysis data available for Semester 3."},
		},
	}
}

func TestTextSinkEmbedsCharts(t *testing.T) {
	dir := t.TempDir()
	chart := &stubChart{id: "c1", title: "Physics", body: "BAR CHART BODY"}
	handle, err := (&Text{Dir: dir}).Assemble(context.Background(), sampleDocument(chart))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if handle.Location != filepath.Join(dir, "student_report_CS_21_001.txt") {
		t.Fatalf("unexpected location %q", handle.Location)
	}
	if handle.DocumentID != "doc-1" || handle.Format != FormatText {
		t.Fatalf("unexpected handle %+v", handle)
	}
	data, err := os.ReadFile(handle.Location)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"Academic Performance Report\n===========================\n",
		"1. Individual Subject & Test Scores\n-----------------------------------\n",
		"Semester 1 Performance\n~~~~~~~~~~~~~~~~~~~~~~\n",
		"Subject T1 T2 T3 T4 Total Score",
		"[PHY - Semester 1]\nBAR CHART BODY\n",
		"No comparative analysis data available for Semester 3.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
	if _, err := os.Stat(handle.Location + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone")
	}
}

func TestYAMLSinkEmbedsCharts(t *testing.T) {
	dir := t.TempDir()
	chart := &stubChart{id: "c1", title: "Physics", body: "line one\nline two\n"}
	handle, err := (&YAML{Dir: dir}).Assemble(context.Background(), sampleDocument(chart))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if filepath.Ext(handle.Location) != ".yaml" {
		t.Fatalf("unexpected location %q", handle.Location)
	}
	data, err := os.ReadFile(handle.Location)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc YAMLDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if doc.Student.Name != "Asha Rao" || len(doc.Sections) != 7 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	sec := doc.Sections[5]
	if sec.Kind != "chart" || sec.Chart == nil || sec.Chart.Content != "line one\nline two\n" {
		t.Fatalf("expected embedded chart content, got %+v", sec)
	}
	if doc.Sections[4].Rows[0][5] != "52" {
		t.Fatalf("expected table rows, got %+v", doc.Sections[4])
	}
}

func TestSinkFailsOnReleasedChart(t *testing.T) {
	chart := &stubChart{id: "c1", released: true}
	for _, s := range []report.DocumentSink{&Text{Dir: t.TempDir()}, &YAML{Dir: t.TempDir()}} {
		if _, err := s.Assemble(context.Background(), sampleDocument(chart)); !errors.Is(err, model.ErrDocument) {
			t.Fatalf("%T: expected ErrDocument, got %v", s, err)
		}
	}
}

func TestSinkHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	_, err := (&Text{Dir: dir}).Assemble(ctx, sampleDocument(&stubChart{id: "c1"}))
	if !errors.Is(err, model.ErrDocument) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrDocument wrapping cancellation, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestNew(t *testing.T) {
	if s, err := New("YAML", "out"); err != nil {
		t.Fatalf("New failed: %v", err)
	} else if _, ok := s.(*YAML); !ok {
		t.Fatalf("expected YAML sink, got %T", s)
	}
	if s, err := New("", "out"); err != nil {
		t.Fatalf("New failed: %v", err)
	} else if _, ok := s.(*Text); !ok {
		t.Fatalf("expected text sink by default, got %T", s)
	}
	if _, err := New("pdf", "out"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
