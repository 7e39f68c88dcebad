package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/gradebook/internal/auth"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/render"
	"github.com/verte-zerg/gradebook/internal/stats"
)

type facultyOptions struct {
	id string
}

func newFacultyCmd(root *rootOptions) *cobra.Command {
	opts := &facultyOptions{}
	cmd := &cobra.Command{
		Use:   "faculty",
		Short: "Faculty views and score updates",
	}
	cmd.PersistentFlags().StringVar(&opts.id, "faculty-id", "", "faculty id")
	_ = cmd.MarkPersistentFlagRequired("faculty-id")

	cmd.AddCommand(newFacultyOverviewCmd(root, opts))
	cmd.AddCommand(newFacultyTrendsCmd(root, opts))
	cmd.AddCommand(newFacultyAuditCmd(root, opts))
	cmd.AddCommand(newFacultyInterventionsCmd(root, opts))
	cmd.AddCommand(newFacultyUpdateCmd(root, opts))
	cmd.AddCommand(newFacultyAddCmd(root, opts))
	return cmd
}

// openFaculty opens a session after verifying the faculty password.
func openFaculty(cmd *cobra.Command, root *rootOptions, opts *facultyOptions) (*session, error) {
	s, err := openSession(cmd, root)
	if err != nil {
		return nil, err
	}
	pw, err := readPassword(cmd, "Faculty password: ")
	if err == nil {
		err = auth.VerifyFaculty(cmd.Context(), s.store, opts.id, pw)
	}
	if err != nil {
		s.Close()
		return nil, explain(err)
	}
	s.logger.Debug("faculty authenticated", "faculty", opts.id)
	return s, nil
}

func newFacultyOverviewCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "List every student with their overall average",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openFaculty(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			avgs, err := s.svc.Overview(cmd.Context())
			if err != nil {
				return err
			}
			return stats.RenderOverview(s.out.Out(), "Comprehensive Student Overview", avgs)
		},
	}
}

func newFacultyTrendsCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show class averages by semester and subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openFaculty(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			trends, err := s.svc.ClassTrends(cmd.Context())
			if errors.Is(err, model.ErrNoData) {
				s.out.Info("No score data found.")
				return nil
			}
			if err != nil {
				return err
			}
			w := s.out.Out()
			labels := make([]string, len(trends.Semesters))
			values := make([]float64, len(trends.Semesters))
			rows := make([][]string, len(trends.Semesters))
			for i, p := range trends.Semesters {
				labels[i] = stats.SemesterLabel(p.Semester)
				values[i] = p.Value
				rows[i] = []string{labels[i], fmt.Sprintf("%.2f", p.Value)}
			}
			s.out.Title("Class Semester Trends")
			for _, line := range stats.FormatTable([]string{"Semester", "Average Total"}, rows, map[int]bool{1: true}) {
				s.out.Text(line + "\n")
			}
			s.out.Text("\n")
			zero := 0.0
			if err := render.PlotSeries(w, "Average Total Score by Semester", []render.Series{{Name: "Class Average", Values: values}}, render.PlotOptions{
				Width:   s.settings.Report.ChartWidth,
				Height:  s.settings.Report.ChartHeight,
				Min:     &zero,
				XLabels: labels,
				Color:   render.ShouldUseColor(os.Stdout),
			}); err != nil {
				return err
			}
			p := trends.Pivot
			return render.DrawHeatmap(w, "Average Subject Totals by Semester", p.Rows, p.ColLabels(), p.Cells)
		},
	}
}

func newFacultyAuditCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	var (
		limit int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log of score changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openFaculty(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			actor := opts.id
			if all {
				actor = ""
			}
			entries, err := s.svc.AuditLog(cmd.Context(), actor, limit)
			if err != nil {
				return err
			}
			if all {
				s.out.Title("Audit Log")
			} else {
				s.out.Title("Audit Log for %s", opts.id)
			}
			return stats.RenderAuditLog(s.out.Out(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N entries (0 for all)")
	cmd.Flags().BoolVar(&all, "all", false, "include every faculty member's entries")
	return cmd
}

func newFacultyInterventionsCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	var minAvg, maxAvg float64
	cmd := &cobra.Command{
		Use:   "interventions",
		Short: "List students whose overall average falls in a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := stats.AverageRange{
				Min: floatFlag(cmd, "min", minAvg),
				Max: floatFlag(cmd, "max", maxAvg),
			}
			if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
				return fmt.Errorf("%w: --min must not exceed --max", model.ErrValidation)
			}
			s, err := openFaculty(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			avgs, err := s.svc.Interventions(cmd.Context(), r)
			if err != nil {
				return err
			}
			if len(avgs) == 0 {
				s.out.Info("No students match the given range.")
				return nil
			}
			return stats.RenderOverview(s.out.Out(), "Students for Intervention", avgs)
		},
	}
	cmd.Flags().Float64Var(&minAvg, "min", 0, "minimum overall average (inclusive)")
	cmd.Flags().Float64Var(&maxAvg, "max", 0, "maximum overall average (inclusive)")
	return cmd
}

func newFacultyUpdateCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	var (
		studentID string
		semester  int
		subject   string
		field     string
		value     float64
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change one test score and record it in the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := model.ParseTestField(field)
			if err != nil {
				return err
			}
			u := model.ScoreUpdate{
				ActorID:   opts.id,
				StudentID: studentID,
				Semester:  semester,
				Subject:   subject,
				Field:     f,
				Value:     value,
			}
			if err := u.Validate(); err != nil {
				return err
			}
			s, err := openFaculty(cmd, root, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			res, err := s.svc.UpdateScore(cmd.Context(), u)
			if err != nil {
				return explain(err)
			}
			s.out.Success("Updated %s %s for %s: %s -> %s, new total score = %s",
				u.Subject, u.Field, u.StudentID, model.FormatValue(res.OldValue), model.FormatValue(u.Value), model.FormatValue(res.NewTotal))
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "id", "", "student enrolment id")
	cmd.Flags().IntVar(&semester, "semester", 0, "semester 1-3")
	cmd.Flags().StringVar(&subject, "subject", "", "subject number, acronym or name")
	cmd.Flags().StringVar(&field, "field", "", "test field (T1-T4)")
	cmd.Flags().Float64Var(&value, "value", 0, "new score 0-25")
	for _, name := range []string{"id", "semester", "subject", "field", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newFacultyAddCmd(root *rootOptions, opts *facultyOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Register a faculty member or reset their password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()
			pw, err := readPassword(cmd, "New password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword(cmd, "Confirm password: ")
			if err != nil {
				return err
			}
			if pw != confirm {
				return fmt.Errorf("%w: passwords do not match", model.ErrValidation)
			}
			if err := auth.RegisterFaculty(cmd.Context(), s.store, opts.id, pw); err != nil {
				return err
			}
			s.out.Success("Faculty %s registered", opts.id)
			return nil
		},
	}
}
