package render

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Scores", []Series{
		{Name: "Score", Values: []float64{10, 14, 18, 9}},
		{Name: "Moving Avg", Values: []float64{10, 12, 16, 13.5}},
	}, PlotOptions{Width: 12, Height: 4, XLabels: []string{"T1", "T2", "T3", "T4"}})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Scores") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") || !strings.Contains(out, "Moving Avg (dashed)") {
		t.Fatalf("expected legend in output, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+4+1+1 {
		t.Fatalf("expected title, 4 rows, axis and legend, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "18 ") {
		t.Fatalf("expected shared max label 18, got %q", lines[1])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[4]), "9 ") {
		t.Fatalf("expected shared min label 9, got %q", lines[4])
	}
	if !strings.Contains(lines[5], "T1") || !strings.Contains(lines[5], "T4") {
		t.Fatalf("expected x labels, got %q", lines[5])
	}
}

func TestPlotSeriesFixedRange(t *testing.T) {
	var buf bytes.Buffer
	lo, hi := 0.0, 25.0
	if err := PlotSeries(&buf, "", []Series{{Name: "A", Values: []float64{5, 6}}}, PlotOptions{Width: 10, Height: 3, Min: &lo, Max: &hi}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "25 ") {
		t.Fatalf("expected fixed max label, got %q", lines[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "12.5 ") {
		t.Fatalf("expected mid label, got %q", lines[1])
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Nothing", []Series{{Name: "A"}}, PlotOptions{Width: 10}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty series, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + utf8.RuneCountInString(axisSeparator)
	total := 80
	expected := total - axisWidth
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12); got != minPlotWidth {
		t.Fatalf("expected narrow terminals to clamp to %d, got %d", minPlotWidth, got)
	}
}

func TestResampleSeries(t *testing.T) {
	got := resampleSeries([]float64{0, 10}, 3)
	want := []float64{0, 5, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if one := resampleSeries([]float64{7}, 4); one[3] != 7 {
		t.Fatalf("expected constant fill, got %v", one)
	}
}
