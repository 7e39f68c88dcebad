package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gradebook/internal/acronym"
	"github.com/verte-zerg/gradebook/internal/auth"
	"github.com/verte-zerg/gradebook/internal/dashboard"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/render"
	"github.com/verte-zerg/gradebook/internal/report"
	"github.com/verte-zerg/gradebook/internal/sink"
	"github.com/verte-zerg/gradebook/internal/stats"
)

type studentOptions struct {
	id        string
	noAuth    bool
	facultyID string
}

func newStudentCmd(root *rootOptions) *cobra.Command {
	opts := &studentOptions{}
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Student views: scores, semesters, comparison, trends and reports",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.id, "id", "", "enrolment id")
	flags.BoolVar(&opts.noAuth, "no-auth", false, "skip the password prompt")
	flags.StringVar(&opts.facultyID, "faculty-id", "", "authenticate as faculty to view any student")
	_ = cmd.MarkPersistentFlagRequired("id")

	cmd.AddCommand(newStudentScoresCmd(root, opts))
	cmd.AddCommand(newStudentSemestersCmd(root, opts))
	cmd.AddCommand(newStudentCompareCmd(root, opts))
	cmd.AddCommand(newStudentTrendCmd(root, opts))
	cmd.AddCommand(newStudentReportCmd(root, opts))
	cmd.AddCommand(newStudentDashboardCmd(root, opts))
	return cmd
}

// openStudent opens a session and authenticates access to the student.
func openStudent(cmd *cobra.Command, root *rootOptions, opts *studentOptions) (*session, model.Student, error) {
	s, err := openSession(cmd, root)
	if err != nil {
		return nil, model.Student{}, err
	}
	ctx := cmd.Context()
	st, err := s.svc.Student(ctx, opts.id)
	if err != nil {
		s.Close()
		return nil, model.Student{}, explain(err)
	}
	if opts.noAuth {
		s.logger.Debug("student auth skipped", "student", st.ID)
		return s, st, nil
	}
	if opts.facultyID != "" {
		pw, err := readPassword(cmd, "Faculty password: ")
		if err == nil {
			err = auth.VerifyFaculty(ctx, s.store, opts.facultyID, pw)
		}
		if err != nil {
			s.Close()
			return nil, model.Student{}, explain(err)
		}
		return s, st, nil
	}
	pw, err := readPassword(cmd, "Password: ")
	if err == nil {
		err = auth.VerifyStudent(st, pw)
	}
	if err != nil {
		s.Close()
		return nil, model.Student{}, explain(err)
	}
	return s, st, nil
}

// semesterOrCurrent returns the requested semester, or the student's
// current one when the flag is unset.
func semesterOrCurrent(sem int, st model.Student) int {
	if sem == 0 {
		return st.Semester
	}
	return sem
}

func newStudentScoresCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	var semester int
	var charts bool
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show subject and test scores for a semester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			sem := semesterOrCurrent(semester, st)
			records, err := s.svc.Scores(cmd.Context(), st.ID, sem)
			if err != nil {
				return err
			}
			s.out.Title("%s (%s)", st.FullName, st.ID)
			if err := stats.RenderScoreTable(s.out.Out(), sem, records); err != nil {
				return err
			}
			if !charts {
				return nil
			}
			width := s.settings.Report.ChartWidth
			for _, r := range records {
				s.out.Text("\n")
				if err := render.DrawBarPie(s.out.Out(), r.Subject, r.Tests, width); err != nil {
					s.out.Warn("%v", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&semester, "semester", 0, "semester 1-3 (default: current)")
	cmd.Flags().BoolVar(&charts, "charts", false, "draw a test score chart per subject")
	return cmd
}

func newStudentSemestersCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "semesters",
		Short: "Show semester-wise performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			summary, err := s.svc.Semesters(cmd.Context(), st.ID)
			if errors.Is(err, model.ErrNoData) {
				s.out.Info("No semester data found for %s.", st.ID)
				return nil
			}
			if err != nil {
				return err
			}
			s.out.Title("%s (%s)", st.FullName, st.ID)
			w := s.out.Out()
			semesters, groups := stats.GroupBySemester(summary.Records)
			for _, sem := range semesters {
				if err := stats.RenderScoreTable(w, sem, groups[sem]); err != nil {
					return err
				}
				s.out.Text("\n")
			}
			labels := make([]string, len(summary.Totals))
			values := make([]float64, len(summary.Totals))
			for i, p := range summary.Totals {
				labels[i] = stats.SemesterLabel(p.Semester)
				values[i] = p.Value
			}
			zero := 0.0
			if err := render.PlotSeries(w, "Total Score by Semester", []render.Series{{Name: "Total Score", Values: values}}, render.PlotOptions{
				Width:   s.settings.Report.ChartWidth,
				Height:  s.settings.Report.ChartHeight,
				Min:     &zero,
				XLabels: labels,
				Color:   render.ShouldUseColor(os.Stdout),
			}); err != nil {
				return err
			}
			p := summary.Pivot
			return render.DrawHeatmap(w, "Subject Totals by Semester", p.Rows, p.ColLabels(), p.Cells)
		},
	}
}

func newStudentCompareCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	var semester int
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare subject totals with the class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			sem := semesterOrCurrent(semester, st)
			results, err := s.svc.Comparative(cmd.Context(), st.ID, sem)
			if errors.Is(err, model.ErrNoData) || errors.Is(err, model.ErrEmptyPopulation) {
				s.out.Info("No comparative analysis data available for Semester %d.", sem)
				return nil
			}
			if err != nil {
				return err
			}
			w := s.out.Out()
			if err := stats.RenderComparative(w, sem, results); err != nil {
				return err
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
			s.out.Text("\n")
			return render.DrawGroupedBar(w, fmt.Sprintf("Semester %d: Your Score vs Class Average", sem), labels, yours, class, notes, s.settings.Report.ChartWidth)
		},
	}
	cmd.Flags().IntVar(&semester, "semester", 0, "semester 1-3 (default: current)")
	return cmd
}

func newStudentTrendCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	var (
		semester int
		subject  string
		goal     string
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show a subject's test trend against a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := cmd.Context()
			sem := semesterOrCurrent(semester, st)
			if strings.TrimSpace(subject) == "" {
				subjects, err := s.svc.Subjects(ctx, st.ID, sem)
				if err != nil {
					return err
				}
				if len(subjects) == 0 {
					s.out.Info("No subjects found for semester %d.", sem)
					return nil
				}
				s.out.Title("Subjects for semester %d", sem)
				for i, subj := range subjects {
					s.out.Text(fmt.Sprintf("%d. %s\n", i+1, acronym.Label(subj)))
				}
				return fmt.Errorf("%w: choose a subject with --subject", model.ErrValidation)
			}
			if !cmd.Flags().Changed("goal") {
				goal = strconv.FormatFloat(s.settings.Goal, 'f', -1, 64)
			}
			tr, err := s.svc.Trend(ctx, st.ID, sem, subject, goal)
			if err != nil {
				return err
			}
			if tr.GoalDefaulted {
				s.out.Warn("goal %q is not a score between 0 and 25, using %s", goal, stats.FormatScore(tr.Goal))
			}
			if err := stats.RenderTrend(s.out.Out(), tr); err != nil {
				return err
			}
			if labels := stats.BelowGoalLabels(tr); len(labels) > 0 {
				s.out.Warn("below goal on %s", strings.Join(labels, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&semester, "semester", 0, "semester 1-3 (default: current)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject number, acronym or name")
	cmd.Flags().StringVar(&goal, "goal", "", "goal score 0-25 (default from config)")
	return cmd
}

func newStudentReportCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	var (
		format      string
		outputDir   string
		chartWidth  int
		chartHeight int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a performance report document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			cfg := s.settings.Report
			applyStringFlag(cmd, "format", &cfg.Format, format)
			applyStringFlag(cmd, "output-dir", &cfg.OutputDir, outputDir)
			applyIntFlag(cmd, "chart-width", &cfg.ChartWidth, chartWidth)
			applyIntFlag(cmd, "chart-height", &cfg.ChartHeight, chartHeight)

			res, err := generateReport(cmd, s, cfg, st.ID)
			if err != nil {
				return err
			}
			s.out.Success("Report written to %s", res.Handle.Location)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", fmt.Sprintf("document format (%s)", strings.Join(sink.Formats, ", ")))
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the report")
	cmd.Flags().IntVar(&chartWidth, "chart-width", 0, "chart width in columns")
	cmd.Flags().IntVar(&chartHeight, "chart-height", 0, "chart height in rows")
	return cmd
}

func generateReport(cmd *cobra.Command, s *session, cfg model.ReportConfig, studentID string) (report.Result, error) {
	docSink, err := sink.New(cfg.Format, cfg.OutputDir)
	if err != nil {
		return report.Result{}, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return report.Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	scratch, err := os.MkdirTemp("", "gradebook-charts-*")
	if err != nil {
		return report.Result{}, fmt.Errorf("failed to create chart directory: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(scratch); rerr != nil {
			s.logger.Warn("failed to remove chart directory", "dir", scratch, "error", rerr)
		}
	}()
	renderer := render.NewRenderer(scratch, cfg.ChartWidth, cfg.ChartHeight)
	composer := report.NewComposer(s.store, renderer, docSink, s.logger)
	res, err := composer.Generate(cmd.Context(), studentID)
	if err != nil {
		return res, explain(err)
	}
	return res, nil
}

func newStudentDashboardCmd(root *rootOptions, opts *studentOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, st, err := openStudent(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			program := tea.NewProgram(dashboard.NewModel(s.svc, st), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("failed to run dashboard: %w", err)
			}
			return nil
		},
	}
}
