package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/stats"
)

const (
	reportTitle      = "Academic Performance Report"
	scoresHeading    = "1. Individual Subject & Test Scores"
	summaryHeading   = "2. Semester-Wise Performance"
	compareHeading   = "3. Comparative Analysis (All Semesters)"
	lineChartTitle   = "Semester-wise Total Scores"
	heatmapTitle     = "Heatmap of Total Scores (Subject vs Semester)"
	noSummaryDataMsg = "No semester data available."
)

// DataStore is the read side of score storage the composer needs.
type DataStore interface {
	GetStudent(ctx context.Context, studentID string) (model.Student, error)
	GetAllScores(ctx context.Context, studentID string) ([]model.ScoreRecord, error)
	GetSemesterScores(ctx context.Context, semester int) ([]model.ClassScore, error)
}

// Renderer draws charts. Every returned artifact is owned by the caller.
type Renderer interface {
	RenderBarPie(subject string, tests [model.TestCount]float64) (model.ChartArtifact, error)
	RenderLine(title string, labels []string, values []float64) (model.ChartArtifact, error)
	RenderHeatmap(title string, rowLabels, colLabels []string, cells [][]float64) (model.ChartArtifact, error)
	RenderGroupedBar(title string, labels []string, student, class []float64, notes []string) (model.ChartArtifact, error)
}

// DocumentSink turns an assembled document into its final form. Chart
// content must be consumed before Assemble returns.
type DocumentSink interface {
	Assemble(ctx context.Context, doc *Document) (Handle, error)
}

// State is a step of report generation.
type State int

const (
	StateStart State = iota
	StateFetchRecords
	StateBuildTables
	StateRenderSubjectCharts
	StateRenderSummaryCharts
	StateRenderComparativeCharts
	StateAssembleDocument
	StateCleanup
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateFetchRecords:
		return "FetchRecords"
	case StateBuildTables:
		return "BuildTables"
	case StateRenderSubjectCharts:
		return "RenderSubjectCharts"
	case StateRenderSummaryCharts:
		return "RenderSummaryCharts"
	case StateRenderComparativeCharts:
		return "RenderComparativeCharts"
	case StateAssembleDocument:
		return "AssembleDocument"
	case StateCleanup:
		return "Cleanup"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of one Generate call.
type Result struct {
	Handle   Handle
	Document Document
	States   []State
}

// Final returns the terminal state reached.
func (r Result) Final() State {
	if len(r.States) == 0 {
		return StateStart
	}
	return r.States[len(r.States)-1]
}

// Composer builds performance reports. A Composer holds no per-report state,
// so concurrent Generate calls do not share assemblies.
type Composer struct {
	store    DataStore
	renderer Renderer
	sink     DocumentSink
	logger   *slog.Logger
}

// NewComposer wires the composer to its collaborators. A nil logger discards
// log output.
func NewComposer(store DataStore, renderer Renderer, sink DocumentSink, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Composer{store: store, renderer: renderer, sink: sink, logger: logger}
}

// Generate produces the report for studentID. Every chart artifact created
// along the way is released before Generate returns, on success and failure.
// The returned Document keeps its chart sections for layout, with Chart set
// to nil; the chart content lives only in what the sink wrote.
func (c *Composer) Generate(ctx context.Context, studentID string) (res Result, err error) {
	a := &assembly{
		composer:  c,
		studentID: studentID,
		logger:    c.logger.With("student", studentID),
	}
	defer func() {
		a.enter(StateCleanup)
		a.release()
		res.Document.detachCharts()
		if err != nil {
			a.enter(StateFailed)
			a.logger.Warn("report failed", "error", err)
		} else {
			a.enter(StateDone)
		}
		res.States = a.states
	}()

	a.enter(StateStart)
	if err := model.ValidateStudentID(studentID); err != nil {
		return Result{}, err
	}

	steps := []struct {
		state State
		run   func(context.Context) error
	}{
		{StateFetchRecords, a.fetchRecords},
		{StateBuildTables, a.buildTables},
		{StateRenderSubjectCharts, a.renderSubjectCharts},
		{StateRenderSummaryCharts, a.renderSummaryCharts},
		{StateRenderComparativeCharts, a.renderComparativeCharts},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("report for %s stopped before %s: %w", studentID, step.state, err)
		}
		a.enter(step.state)
		if err := step.run(ctx); err != nil {
			return Result{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("report for %s stopped before %s: %w", studentID, StateAssembleDocument, err)
	}
	a.enter(StateAssembleDocument)
	doc := a.document()
	handle, err := c.sink.Assemble(ctx, &doc)
	if err != nil {
		if errors.Is(err, model.ErrDocument) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", model.ErrDocument, err)
	}
	a.logger.Info("report assembled", "document", doc.ID, "location", handle.Location, "sections", len(doc.Sections))
	return Result{Handle: handle, Document: doc}, nil
}

// assembly is the private working state of one Generate call.
type assembly struct {
	composer  *Composer
	studentID string
	logger    *slog.Logger

	states    []State
	artifacts []model.ChartArtifact

	student   model.Student
	records   []model.ScoreRecord
	semesters []semesterBlock
	summary   []Section
	compare   []Section
}

type semesterBlock struct {
	semester int
	records  []model.ScoreRecord
	sections []Section
	charts   []Section
}

func (a *assembly) enter(s State) {
	a.states = append(a.states, s)
	a.logger.Debug("report state", "state", s.String())
}

func (a *assembly) track(art model.ChartArtifact) {
	a.artifacts = append(a.artifacts, art)
}

// release hands every tracked artifact back exactly once.
func (a *assembly) release() {
	for _, art := range a.artifacts {
		if err := art.Release(); err != nil {
			a.logger.Error("release chart artifact", "artifact", art.ID(), "error", err)
		}
	}
	a.artifacts = nil
}

func (a *assembly) placeholder(part Part, semester int, text string, cause error) Section {
	if cause != nil {
		a.logger.Warn("chart replaced by placeholder", "part", string(part), "semester", semester, "error", cause)
	}
	return Section{Kind: KindNote, Part: part, Semester: semester, Text: text}
}

func (a *assembly) fetchRecords(ctx context.Context) error {
	store := a.composer.store
	student, err := store.GetStudent(ctx, a.studentID)
	if err != nil {
		return fmt.Errorf("fetch student %s: %w", a.studentID, err)
	}
	records, err := store.GetAllScores(ctx, a.studentID)
	if err != nil {
		return fmt.Errorf("fetch scores for %s: %w", a.studentID, err)
	}
	a.student = student
	a.records = records
	return nil
}

func (a *assembly) buildTables(context.Context) error {
	present, groups := stats.GroupBySemester(a.records)
	seen := map[int]bool{}
	var order []int
	for sem := model.MinSemester; sem <= model.MaxSemester; sem++ {
		order = append(order, sem)
		seen[sem] = true
	}
	for _, sem := range present {
		if !seen[sem] {
			order = append(order, sem)
		}
	}

	for _, sem := range order {
		block := semesterBlock{semester: sem, records: groups[sem]}
		if len(block.records) == 0 {
			block.sections = append(block.sections, Section{
				Kind: KindNote, Part: PartScores, Semester: sem,
				Text: fmt.Sprintf("No data for semester %d.", sem),
			})
			a.semesters = append(a.semesters, block)
			continue
		}
		headers, rows := stats.ScoreTable(block.records)
		block.sections = append(block.sections,
			Section{Kind: KindHeading, Part: PartScores, Semester: sem, Title: fmt.Sprintf("Semester %d Performance", sem)},
			Section{Kind: KindTable, Part: PartScores, Semester: sem, Title: fmt.Sprintf("Semester %d Scores", sem), Table: &Table{Headers: headers, Rows: rows}},
		)
		a.semesters = append(a.semesters, block)
	}
	return nil
}

func (a *assembly) renderSubjectCharts(context.Context) error {
	renderer := a.composer.renderer
	for i := range a.semesters {
		block := &a.semesters[i]
		for _, r := range block.records {
			art, err := renderer.RenderBarPie(r.Subject, r.Tests)
			if err != nil {
				block.charts = append(block.charts, a.placeholder(PartScores, block.semester,
					fmt.Sprintf("Chart unavailable for %s.", acronym.Label(r.Subject)), err))
				continue
			}
			a.track(art)
			block.charts = append(block.charts, Section{
				Kind: KindChart, Part: PartScores, Semester: block.semester,
				Title: fmt.Sprintf("%s - Semester %d", acronym.Resolve(r.Subject), block.semester),
				Chart: art,
			})
		}
	}
	return nil
}

func (a *assembly) renderSummaryCharts(context.Context) error {
	renderer := a.composer.renderer
	if len(a.records) == 0 {
		a.summary = append(a.summary, a.placeholder(PartSummary, 0, noSummaryDataMsg, nil))
		return nil
	}

	points := stats.SemesterTotals(a.records)
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = stats.SemesterLabel(p.Semester)
		values[i] = p.Value
	}
	if art, err := renderer.RenderLine(lineChartTitle, labels, values); err != nil {
		a.summary = append(a.summary, a.placeholder(PartSummary, 0, "Semester totals chart unavailable.", err))
	} else {
		a.track(art)
		a.summary = append(a.summary, Section{Kind: KindChart, Part: PartSummary, Title: lineChartTitle, Chart: art})
	}

	pivot := stats.Aggregate(a.records, stats.BySubjectSemester, stats.TotalScore).Pivot(stats.CombineSum)
	if art, err := renderer.RenderHeatmap(heatmapTitle, pivot.Rows, pivot.ColLabels(), pivot.Cells); err != nil {
		a.summary = append(a.summary, a.placeholder(PartSummary, 0, "Subject heatmap unavailable.", err))
	} else {
		a.track(art)
		a.summary = append(a.summary, Section{Kind: KindChart, Part: PartSummary, Title: heatmapTitle, Chart: art})
	}
	return nil
}

func (a *assembly) renderComparativeCharts(ctx context.Context) error {
	for sem := model.MinSemester; sem <= model.MaxSemester; sem++ {
		a.compare = append(a.compare, a.comparativeSection(ctx, sem))
	}
	return nil
}

// comparativeSection yields exactly one section for the semester.
func (a *assembly) comparativeSection(ctx context.Context, sem int) Section {
	missing := fmt.Sprintf("No comparative analysis data available for Semester %d.", sem)
	population, err := a.composer.store.GetSemesterScores(ctx, sem)
	if err != nil {
		return a.placeholder(PartComparative, sem, missing, err)
	}
	results, err := stats.Compare(a.studentID, population)
	if err != nil {
		if errors.Is(err, model.ErrNoData) {
			err = nil
		}
		return a.placeholder(PartComparative, sem, missing, err)
	}

	labels := make([]string, len(results))
	own := make([]float64, len(results))
	class := make([]float64, len(results))
	notes := make([]string, len(results))
	for i, r := range results {
		labels[i] = r.Acronym
		own[i] = r.StudentScore
		class[i] = r.ClassAverage
		notes[i] = fmt.Sprintf("%.1f%%ile", r.Percentile)
	}
	title := fmt.Sprintf("Semester %d: Your Score vs Class Average", sem)
	art, err := a.composer.renderer.RenderGroupedBar(title, labels, own, class, notes)
	if err != nil {
		return a.placeholder(PartComparative, sem, fmt.Sprintf("Comparative chart unavailable for Semester %d.", sem), err)
	}
	a.track(art)
	return Section{Kind: KindChart, Part: PartComparative, Semester: sem, Title: title, Chart: art}
}

// document lays out the collected sections in report order.
func (a *assembly) document() Document {
	doc := Document{
		ID:          uuid.NewString(),
		StudentID:   a.student.ID,
		StudentName: a.student.FullName,
		Title:       reportTitle,
	}
	add := func(s ...Section) { doc.Sections = append(doc.Sections, s...) }

	add(
		Section{Kind: KindHeading, Part: PartHeader, Title: reportTitle},
		Section{Kind: KindNote, Part: PartHeader, Text: fmt.Sprintf("Enrolment ID: %s\nName: %s", a.student.ID, a.student.FullName)},
		Section{Kind: KindHeading, Part: PartScores, Title: scoresHeading},
	)
	for _, block := range a.semesters {
		add(block.sections...)
		if len(block.records) == 0 {
			continue
		}
		add(Section{Kind: KindHeading, Part: PartScores, Semester: block.semester, Title: fmt.Sprintf("Subject-wise Graphs (Semester %d)", block.semester)})
		add(block.charts...)
	}
	add(Section{Kind: KindHeading, Part: PartSummary, Title: summaryHeading})
	add(a.summary...)
	add(Section{Kind: KindHeading, Part: PartComparative, Title: compareHeading})
	add(a.compare...)
	return doc
}
