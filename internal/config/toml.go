// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/gradebook/internal/model"
)

// Defaults applied when neither the file nor a flag sets a value.
const (
	DefaultDriver      = "sqlite"
	DefaultFormat      = "text"
	DefaultChartWidth  = 40
	DefaultChartHeight = 10
	DefaultGoal        = 25.0
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Database DatabaseConfig `toml:"database"`
	Report   ReportConfig   `toml:"report"`
	Trend    TrendConfig    `toml:"trend"`
}

// DatabaseConfig maps data store settings.
type DatabaseConfig struct {
	Driver *string `toml:"driver"`
	Path   *string `toml:"path"`
	DSN    *string `toml:"dsn"`
}

// ReportConfig maps report generation settings.
type ReportConfig struct {
	OutputDir   *string `toml:"output-dir"`
	Format      *string `toml:"format"`
	ChartWidth  *int    `toml:"chart-width"`
	ChartHeight *int    `toml:"chart-height"`
}

// TrendConfig maps trend analysis settings.
type TrendConfig struct {
	Goal *float64 `toml:"goal"`
}

// Settings is the effective configuration after defaults are applied.
type Settings struct {
	Database model.DatabaseConfig
	Report   model.ReportConfig
	Goal     float64
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("%w: unknown config key %q", model.ErrValidation, undecoded[0].String())
	}
	return cfg, nil
}

// Resolve fills every unset value with its default.
func (c FileConfig) Resolve() Settings {
	s := Settings{
		Database: model.DatabaseConfig{
			Driver: DefaultDriver,
			Path:   DefaultDBPath(),
		},
		Report: model.ReportConfig{
			OutputDir:   DefaultReportDir(),
			Format:      DefaultFormat,
			ChartWidth:  DefaultChartWidth,
			ChartHeight: DefaultChartHeight,
		},
		Goal: DefaultGoal,
	}
	applyString(&s.Database.Driver, c.Database.Driver)
	applyString(&s.Database.Path, c.Database.Path)
	applyString(&s.Database.DSN, c.Database.DSN)
	applyString(&s.Report.OutputDir, c.Report.OutputDir)
	applyString(&s.Report.Format, c.Report.Format)
	if c.Report.ChartWidth != nil && *c.Report.ChartWidth > 0 {
		s.Report.ChartWidth = *c.Report.ChartWidth
	}
	if c.Report.ChartHeight != nil && *c.Report.ChartHeight > 0 {
		s.Report.ChartHeight = *c.Report.ChartHeight
	}
	if c.Trend.Goal != nil {
		s.Goal = *c.Trend.Goal
	}
	return s
}

// Validate checks the effective settings.
func (s Settings) Validate() error {
	switch s.Database.Driver {
	case "sqlite":
		if s.Database.Path == "" {
			return fmt.Errorf("%w: sqlite database path is empty", model.ErrValidation)
		}
	case "postgres":
		if s.Database.DSN == "" {
			return fmt.Errorf("%w: postgres driver needs a dsn", model.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: database driver %q (use sqlite or postgres)", model.ErrValidation, s.Database.Driver)
	}
	return nil
}

// Encode writes the settings as TOML, in the same layout LoadConfig reads.
func (s Settings) Encode(w io.Writer) error {
	out := FileConfig{
		Database: DatabaseConfig{Driver: &s.Database.Driver, Path: &s.Database.Path},
		Report: ReportConfig{
			OutputDir:   &s.Report.OutputDir,
			Format:      &s.Report.Format,
			ChartWidth:  &s.Report.ChartWidth,
			ChartHeight: &s.Report.ChartHeight,
		},
		Trend: TrendConfig{Goal: &s.Goal},
	}
	if s.Database.DSN != "" {
		out.Database.DSN = &s.Database.DSN
	}
	return toml.NewEncoder(w).Encode(out)
}

func applyString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}
