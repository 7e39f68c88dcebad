package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/verte-zerg/gradebook/internal/model"
)

// Renderer draws charts into temporary files under a scratch directory.
// Each call returns a new artifact the caller must Release.
type Renderer struct {
	dir    string
	width  int
	height int
}

// NewRenderer creates a renderer writing into dir. An empty dir uses the
// system temporary directory.
func NewRenderer(dir string, width, height int) *Renderer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Renderer{dir: dir, width: width, height: height}
}

// RenderBarPie draws a subject's four test scores and their contributions.
func (r *Renderer) RenderBarPie(subject string, tests [model.TestCount]float64) (model.ChartArtifact, error) {
	return r.create(subject, func(w io.Writer) error {
		return DrawBarPie(w, subject, tests, r.width)
	})
}

// RenderLine draws one line across labeled points.
func (r *Renderer) RenderLine(title string, labels []string, values []float64) (model.ChartArtifact, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: line %q has no points", model.ErrRender, title)
	}
	if len(labels) != len(values) {
		return nil, fmt.Errorf("%w: line %q has %d labels for %d points", model.ErrRender, title, len(labels), len(values))
	}
	for _, v := range values {
		if !finite(v) {
			return nil, fmt.Errorf("%w: line %q is not numeric", model.ErrRender, title)
		}
	}
	zero := 0.0
	return r.create(title, func(w io.Writer) error {
		return PlotSeries(w, title, []Series{{Name: "Total Score", Values: values}}, PlotOptions{
			Width:   r.width,
			Height:  r.height,
			Min:     &zero,
			XLabels: labels,
		})
	})
}

// RenderHeatmap draws a labeled matrix.
func (r *Renderer) RenderHeatmap(title string, rowLabels, colLabels []string, cells [][]float64) (model.ChartArtifact, error) {
	return r.create(title, func(w io.Writer) error {
		return DrawHeatmap(w, title, rowLabels, colLabels, cells)
	})
}

// RenderGroupedBar draws student values against class averages.
func (r *Renderer) RenderGroupedBar(title string, labels []string, student, class []float64, notes []string) (model.ChartArtifact, error) {
	return r.create(title, func(w io.Writer) error {
		return DrawGroupedBar(w, title, labels, student, class, notes, r.width)
	})
}

func (r *Renderer) create(title string, draw func(io.Writer) error) (model.ChartArtifact, error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		if errors.Is(err, model.ErrRender) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: draw %q: %v", model.ErrRender, title, err)
	}

	file, err := os.CreateTemp(r.dir, "chart-*.txt")
	if err != nil {
		return nil, fmt.Errorf("%w: create chart file: %v", model.ErrRender, err)
	}
	path := file.Name()
	if _, err := file.Write(buf.Bytes()); err != nil {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close before removing the partial file.
			_ = cerr
		}
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: write chart file: %v", model.ErrRender, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: close chart file: %v", model.ErrRender, err)
	}
	return &Artifact{id: uuid.NewString(), title: title, path: path}, nil
}

// Artifact is a chart stored in a temporary file.
type Artifact struct {
	id    string
	title string
	path  string

	mu       sync.Mutex
	released bool
}

// ID returns the artifact's unique identifier.
func (a *Artifact) ID() string { return a.id }

// Title returns the chart title.
func (a *Artifact) Title() string { return a.title }

// Path returns the backing file location.
func (a *Artifact) Path() string { return a.path }

// Content reads the rendered chart.
func (a *Artifact) Content() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil, fmt.Errorf("%w: artifact %s already released", model.ErrRender, a.id)
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %v", model.ErrRender, a.id, err)
	}
	return data, nil
}

// Release removes the backing file. Releasing twice is a no-op.
func (a *Artifact) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release artifact %s: %w", a.id, err)
	}
	return nil
}
