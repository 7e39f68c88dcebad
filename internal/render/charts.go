package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/stats"
)

const (
	barRune         = '█'
	pieRune         = '▓'
	shadeChars      = " .:-=+*#%@"
	defaultBarWidth = 40
)

// BarColor names the band a single test score falls into.
func BarColor(score float64) string {
	switch {
	case score < 9:
		return "red"
	case score <= 15:
		return "orange"
	case score <= 20:
		return "lightgreen"
	default:
		return "green"
	}
}

// DrawBarPie draws a subject's test scores as bars on a 0..25 scale followed
// by each test's share of the total.
func DrawBarPie(w io.Writer, subject string, tests [model.TestCount]float64, width int) error {
	for i, v := range tests {
		if !finite(v) {
			return fmt.Errorf("%w: %s %s is not a number", model.ErrRender, subject, model.TestField(i))
		}
	}
	barWidth := barWidthFor(width)
	code := acronym.Resolve(subject)

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "%s - Test Scores (max %d)\n", code, int(model.MaxScore))
	for i, v := range tests {
		n := scaledLength(v, model.MaxScore, barWidth)
		fmt.Fprintf(&b, "%-3s %-*s %5s  %s\n", model.TestField(i), barWidth, strings.Repeat(string(barRune), n), stats.FormatScore(v), BarColor(v))
	}
	fmt.Fprintf(&b, "%s - Contribution\n", code)
	total := model.SumTests(tests)
	for i, v := range tests {
		var share float64
		if total > 0 {
			share = v / total
		}
		n := scaledLength(share, 1, barWidth)
		fmt.Fprintf(&b, "%-3s %5.1f%% %s\n", model.TestField(i), share*100, strings.Repeat(string(pieRune), n))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// DrawHeatmap draws a labeled matrix where each cell is shaded relative to
// the largest value.
func DrawHeatmap(w io.Writer, title string, rowLabels, colLabels []string, cells [][]float64) error {
	if len(rowLabels) == 0 || len(colLabels) == 0 {
		return fmt.Errorf("%w: heatmap %q has no cells", model.ErrRender, title)
	}
	if len(cells) != len(rowLabels) {
		return fmt.Errorf("%w: heatmap %q has %d rows for %d labels", model.ErrRender, title, len(cells), len(rowLabels))
	}
	var maxVal float64
	for i, row := range cells {
		if len(row) != len(colLabels) {
			return fmt.Errorf("%w: heatmap %q row %s has %d cells for %d columns", model.ErrRender, title, rowLabels[i], len(row), len(colLabels))
		}
		for _, v := range row {
			if !finite(v) {
				return fmt.Errorf("%w: heatmap %q row %s is not numeric", model.ErrRender, title, rowLabels[i])
			}
			maxVal = math.Max(maxVal, v)
		}
	}

	headers := append([]string{""}, colLabels...)
	rows := make([][]string, 0, len(cells))
	rightAlign := map[int]bool{}
	for j := range colLabels {
		rightAlign[j+1] = true
	}
	for i, row := range cells {
		line := []string{rowLabels[i]}
		for _, v := range row {
			line = append(line, fmt.Sprintf("%c %s", shade(v, maxVal), stats.FormatScore(v)))
		}
		rows = append(rows, line)
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for _, line := range stats.FormatTable(headers, rows, rightAlign) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Scale: %q low to high\n", shadeChars)
	_, err := io.WriteString(w, b.String())
	return err
}

// DrawGroupedBar draws paired bars per label, the student's value first and
// the class average second, with an optional note after the student bar.
func DrawGroupedBar(w io.Writer, title string, labels []string, primary, secondary []float64, notes []string, width int) error {
	if len(labels) == 0 {
		return fmt.Errorf("%w: grouped bar %q has no groups", model.ErrRender, title)
	}
	if len(primary) != len(labels) || len(secondary) != len(labels) {
		return fmt.Errorf("%w: grouped bar %q has mismatched series", model.ErrRender, title)
	}
	if notes != nil && len(notes) != len(labels) {
		return fmt.Errorf("%w: grouped bar %q has %d notes for %d groups", model.ErrRender, title, len(notes), len(labels))
	}
	var maxVal float64
	for i := range labels {
		if !finite(primary[i]) || !finite(secondary[i]) {
			return fmt.Errorf("%w: grouped bar %q group %s is not numeric", model.ErrRender, title, labels[i])
		}
		maxVal = math.Max(maxVal, math.Max(primary[i], secondary[i]))
	}
	barWidth := barWidthFor(width)
	labelWidth := 0
	for _, l := range labels {
		if n := len([]rune(l)); n > labelWidth {
			labelWidth = n
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for i, label := range labels {
		you := fmt.Sprintf("%-*s You       %s %s", labelWidth, label, strings.Repeat(string(barRune), scaledLength(primary[i], maxVal, barWidth)), stats.FormatScore(primary[i]))
		if notes != nil && notes[i] != "" {
			you += " (" + notes[i] + ")"
		}
		b.WriteString(you)
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%-*s Class Avg %s %.2f\n", labelWidth, "", strings.Repeat(string(pieRune), scaledLength(secondary[i], maxVal, barWidth)), secondary[i])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func barWidthFor(width int) int {
	if width <= 0 {
		return defaultBarWidth
	}
	if width < minPlotWidth {
		return minPlotWidth
	}
	return width
}

func scaledLength(v, maxVal float64, width int) int {
	if maxVal <= 0 || v <= 0 {
		return 0
	}
	n := int(math.Round(v / maxVal * float64(width)))
	if n > width {
		n = width
	}
	return n
}

func shade(v, maxVal float64) byte {
	if maxVal <= 0 || v <= 0 {
		return shadeChars[0]
	}
	idx := int(math.Round(v / maxVal * float64(len(shadeChars)-1)))
	if idx >= len(shadeChars) {
		idx = len(shadeChars) - 1
	}
	return shadeChars[idx]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
