// Package main provides the CLI entrypoint for gradebook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/gradebook/internal/analytics"
	"github.com/verte-zerg/gradebook/internal/auth"
	"github.com/verte-zerg/gradebook/internal/config"
	"github.com/verte-zerg/gradebook/internal/console"
	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/store"
	"github.com/verte-zerg/gradebook/internal/store/pgstore"
)

// dataStore is everything the CLI needs from a backend. Both the SQLite
// and the PostgreSQL stores implement it.
type dataStore interface {
	analytics.Store
	auth.FacultyStore
	Import(ctx context.Context, students []model.Student, records []model.ScoreRecord) error
	Close() error
}

type rootOptions struct {
	configPath string
	driver     string
	dbPath     string
	dsn        string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		console.New(os.Stdout, os.Stderr).Error(err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "gradebook",
		Short:         "Student performance analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&opts.driver, "db-driver", config.DefaultDriver, "database driver (sqlite or postgres)")
	flags.StringVar(&opts.dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	flags.StringVar(&opts.dsn, "dsn", "", "PostgreSQL connection string")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(newStudentCmd(opts))
	rootCmd.AddCommand(newFacultyCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newSeedCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	return rootCmd
}

// session bundles what a command needs once its store is open.
type session struct {
	settings config.Settings
	store    dataStore
	svc      *analytics.Service
	logger   *slog.Logger
	out      *console.Printer
}

func (s *session) Close() {
	if cerr := s.store.Close(); cerr != nil {
		s.logger.Warn("failed to close store", "error", cerr)
	}
}

func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadSettings merges the config file with flags; flags win when set.
func loadSettings(cmd *cobra.Command, opts *rootOptions) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings := fileCfg.Resolve()
	applyStringFlag(cmd, "db-driver", &settings.Database.Driver, opts.driver)
	applyStringFlag(cmd, "db", &settings.Database.Path, opts.dbPath)
	applyStringFlag(cmd, "dsn", &settings.Database.DSN, opts.dsn)
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	logger := setupLogger(cmd.ErrOrStderr(), opts.verbose)
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return nil, err
	}
	st, err := openStore(cmd.Context(), settings.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "driver", settings.Database.Driver)
	return &session{
		settings: settings,
		store:    st,
		svc:      analytics.NewService(st, logger),
		logger:   logger,
		out:      console.New(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}, nil
}

func openStore(ctx context.Context, cfg model.DatabaseConfig) (dataStore, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := pgstore.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return st, nil
	default:
		st, err := store.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	}
}

// readPassword prompts on stderr and reads one line. Terminal input is not
// echoed.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if _, err := fmt.Fprint(cmd.ErrOrStderr(), prompt); err != nil {
		// Best-effort prompt.
		_ = err
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		if _, werr := fmt.Fprintln(cmd.ErrOrStderr()); werr != nil {
			_ = werr
		}
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}

// readLine reads up to the next newline one byte at a time, so that
// consecutive prompts on the same reader each get their own line.
func readLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			b.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(b.String(), "\r"), nil
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

// floatFlag returns a pointer to value when the flag was set.
func floatFlag(cmd *cobra.Command, name string, value float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v := value
	return &v
}

// explain adds a hint for errors a user can act on.
// exitCode is 2 when the command was refused because of its input and 1 when
// the backend failed.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case analytics.IsUserError(err), errors.Is(err, auth.ErrInvalidCredentials):
		return 2
	default:
		return 1
	}
}

func explain(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials
	case errors.Is(err, model.ErrStudentNotFound):
		return fmt.Errorf("%w (check the enrolment id or run: gradebook import FILE.csv)", err)
	}
	return err
}
