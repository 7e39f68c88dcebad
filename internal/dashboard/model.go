// Package dashboard provides the Bubble Tea student dashboard.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/analytics"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/render"
	"github.com/verte-zerg/gradebook/internal/stats"
)

const (
	tabScores = iota
	tabSemesters
	tabCompare
)

const plotHeight = 8

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#3A8FC8"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Source supplies the data shown on the dashboard. *analytics.Service
// satisfies it.
type Source interface {
	Scores(ctx context.Context, studentID string, semester int) ([]model.ScoreRecord, error)
	Semesters(ctx context.Context, studentID string) (analytics.SemesterSummary, error)
	Comparative(ctx context.Context, studentID string, semester int) ([]model.ComparativeResult, error)
}

// Model implements the Bubble Tea dashboard for one student.
type Model struct {
	src     Source
	student model.Student

	semester int
	records  []model.ScoreRecord
	summary  analytics.SemesterSummary
	compare  []model.ComparativeResult
	errMsg   string

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	scoreTable table.Model

	width  int
	height int
}

// NewModel constructs a dashboard for student, starting at their current
// semester.
func NewModel(src Source, student model.Student) *Model {
	sem := student.Semester
	if model.ValidateSemester(sem) != nil {
		sem = model.MinSemester
	}
	m := &Model{
		src:      src,
		student:  student,
		semester: sem,
		tabs:     []string{"Scores", "Semesters", "Compare"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.scoreTable = buildScoreTable(nil, 1)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[":
			m.setSemester(m.semester - 1)
			return m, nil
		case "]":
			m.setSemester(m.semester + 1)
			return m, nil
		case "1", "2", "3":
			m.setSemester(int(msg.String()[0] - '0'))
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		default:
			if m.activeTab == tabScores {
				var cmd tea.Cmd
				m.scoreTable, cmd = m.scoreTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Semester returns the semester currently shown.
func (m *Model) Semester() int {
	return m.semester
}

func (m *Model) setSemester(sem int) {
	if model.ValidateSemester(sem) != nil || sem == m.semester {
		return
	}
	m.semester = sem
	m.refresh()
}

// refresh reloads everything shown. Missing data is not an error on the
// dashboard; the affected tab shows a placeholder instead.
func (m *Model) refresh() {
	ctx := context.Background()
	m.errMsg = ""
	var errs []string
	note := func(err error) {
		if err != nil && !errors.Is(err, model.ErrNoData) && !errors.Is(err, model.ErrEmptyPopulation) {
			errs = append(errs, err.Error())
		}
	}

	records, err := m.src.Scores(ctx, m.student.ID, m.semester)
	note(err)
	m.records = records

	summary, err := m.src.Semesters(ctx, m.student.ID)
	note(err)
	m.summary = summary

	results, err := m.src.Comparative(ctx, m.student.ID, m.semester)
	note(err)
	m.compare = results

	if len(errs) > 0 {
		m.errMsg = strings.Join(errs, "; ")
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.scoreTable = buildScoreTable(m.records, bodyHeight)
	m.renderTabContents()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.scoreTable.SetWidth(m.width)
	m.scoreTable.SetHeight(bodyHeight)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabScores {
		m.scoreTable.Focus()
	} else {
		m.scoreTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := fmt.Sprintf("Student: %s (%s)  Semester: %d of %d", m.student.FullName, m.student.ID, m.semester, m.student.Semester)
	return tabs + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Semester: [ ] or 1-3  Reload: r  Scroll: up/down  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabScores {
		if len(m.records) == 0 {
			return fmt.Sprintf("No scores found for semester %d.", m.semester)
		}
		cards := renderSummaryCards(m.records)
		return cards + "\n" + m.scoreTable.View()
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabSemesters].SetContent(renderSemesters(m.summary, width))
	m.viewports[tabCompare].SetContent(renderCompare(m.semester, m.compare, width))
}

func renderSummaryCards(records []model.ScoreRecord) string {
	var total, best float64
	bestSubject := ""
	for _, r := range records {
		total += r.Total
		if bestSubject == "" || r.Total > best {
			best = r.Total
			bestSubject = acronym.Resolve(r.Subject)
		}
	}
	cards := []string{
		metricCard("Subjects", fmt.Sprintf("%d", len(records))),
		metricCard("Semester Total", stats.FormatScore(total)),
		metricCard("Average", fmt.Sprintf("%.2f", total/float64(len(records)))),
		metricCard("Best", fmt.Sprintf("%s %s", bestSubject, stats.FormatScore(best))),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildScoreTable(records []model.ScoreRecord, height int) table.Model {
	headers, rows := stats.ScoreTable(records)
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		w := len(h)
		for _, row := range rows {
			if n := lipgloss.Width(row[i]); n > w {
				w = n
			}
		}
		columns[i] = table.Column{Title: h, Width: w + 1}
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(maxInt(1, height)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		BorderBottom(true).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func renderSemesters(summary analytics.SemesterSummary, width int) string {
	if len(summary.Records) == 0 {
		return "No semester data found."
	}
	var buf bytes.Buffer
	labels := make([]string, len(summary.Totals))
	values := make([]float64, len(summary.Totals))
	for i, p := range summary.Totals {
		labels[i] = stats.SemesterLabel(p.Semester)
		values[i] = p.Value
	}
	zero := 0.0
	opts := render.PlotOptions{
		Width:   render.PlotWidthFor(width),
		Height:  plotHeight,
		Min:     &zero,
		XLabels: labels,
		Color:   render.ShouldUseColor(os.Stdout),
	}
	if err := render.PlotSeries(&buf, "Total Score by Semester", []render.Series{{Name: "Total Score", Values: values}}, opts); err != nil {
		return fmt.Sprintf("Failed to render totals: %v", err)
	}
	buf.WriteString("\n")
	p := summary.Pivot
	if err := render.DrawHeatmap(&buf, "Subject Totals by Semester", p.Rows, p.ColLabels(), p.Cells); err != nil {
		return fmt.Sprintf("Failed to render heatmap: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderCompare(semester int, results []model.ComparativeResult, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderComparative(&buf, semester, results); err != nil {
		return fmt.Sprintf("Failed to render comparison: %v", err)
	}
	if len(results) == 0 {
		return strings.TrimRight(buf.String(), "\n")
	}
	labels := make([]string, len(results))
	yours := make([]float64, len(results))
	class := make([]float64, len(results))
	notes := make([]string, len(results))
	for i, r := range results {
		labels[i] = r.Acronym
		yours[i] = r.StudentScore
		class[i] = r.ClassAverage
		notes[i] = fmt.Sprintf("%.1f%%ile", r.Percentile)
	}
	buf.WriteString("\n")
	barWidth := maxInt(10, minInt(40, width-40))
	if err := render.DrawGroupedBar(&buf, "", labels, yours, class, notes, barWidth); err != nil {
		return fmt.Sprintf("Failed to render comparison chart: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}
