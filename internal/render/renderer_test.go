package render

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/verte-zerg/gradebook/internal/model"
)

func TestRendererArtifactLifecycle(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 20, 5)

	art, err := r.RenderBarPie("Physics (PHY)", [4]float64{10, 12, 14, 16})
	if err != nil {
		t.Fatalf("RenderBarPie failed: %v", err)
	}
	if art.ID() == "" {
		t.Fatalf("expected artifact id")
	}
	if art.Title() != "Physics (PHY)" {
		t.Fatalf("unexpected title %q", art.Title())
	}
	path := art.(*Artifact).Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected chart file: %v", err)
	}
	content, err := art.Content()
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if !strings.Contains(string(content), "PHY - Test Scores") {
		t.Fatalf("unexpected content:\n%s", content)
	}

	if err := art.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected chart file removed, stat err=%v", err)
	}
	if _, err := art.Content(); !errors.Is(err, model.ErrRender) {
		t.Fatalf("expected ErrRender after release, got %v", err)
	}
	if err := art.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}
}

func TestRendererUniqueIDs(t *testing.T) {
	r := NewRenderer(t.TempDir(), 20, 5)
	a, err := r.RenderLine("Totals", []string{"Sem 1", "Sem 2"}, []float64{120, 140})
	if err != nil {
		t.Fatalf("RenderLine failed: %v", err)
	}
	defer a.Release()
	b, err := r.RenderHeatmap("Heatmap", []string{"PHY"}, []string{"Sem 1"}, [][]float64{{40}})
	if err != nil {
		t.Fatalf("RenderHeatmap failed: %v", err)
	}
	defer b.Release()
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, got %s twice", a.ID())
	}
}

func TestRendererFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 20, 5)
	if _, err := r.RenderGroupedBar("Semester 1", []string{"PHY"}, nil, nil, nil); !errors.Is(err, model.ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	if _, err := r.RenderLine("Totals", []string{"Sem 1"}, nil); !errors.Is(err, model.ErrRender) {
		t.Fatalf("expected ErrRender for empty line, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no chart files, found %d", len(entries))
	}
}
