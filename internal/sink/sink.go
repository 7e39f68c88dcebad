// Package sink writes assembled reports to disk.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/report"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatYAML}

// New returns the sink for format writing into dir.
func New(format, dir string) (report.DocumentSink, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText, "txt":
		return &Text{Dir: dir}, nil
	case FormatYAML, "yml":
		return &YAML{Dir: dir}, nil
	default:
		return nil, fmt.Errorf("%w: unknown report format %q (use %s)", model.ErrValidation, format, strings.Join(Formats, ", "))
	}
}

// FileName is the report file name for a student.
func FileName(studentID, ext string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, studentID)
	return fmt.Sprintf("student_report_%s.%s", safe, ext)
}

func writeDocument(ctx context.Context, dir string, doc *report.Document, ext, format string, data []byte) (report.Handle, error) {
	if err := ctx.Err(); err != nil {
		return report.Handle{}, fmt.Errorf("%w: %w", model.ErrDocument, err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report.Handle{}, fmt.Errorf("%w: create report dir: %v", model.ErrDocument, err)
	}
	path := filepath.Join(dir, FileName(doc.StudentID, ext))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return report.Handle{}, fmt.Errorf("%w: write %s: %v", model.ErrDocument, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return report.Handle{}, fmt.Errorf("%w: move report into place: %v", model.ErrDocument, err)
	}
	return report.Handle{DocumentID: doc.ID, Location: path, Format: format}, nil
}

func chartContent(sec report.Section) (string, error) {
	if sec.Chart == nil {
		return "", fmt.Errorf("%w: chart section %q has no artifact", model.ErrDocument, sec.Title)
	}
	data, err := sec.Chart.Content()
	if err != nil {
		return "", fmt.Errorf("%w: chart %s: %v", model.ErrDocument, sec.Chart.ID(), err)
	}
	return string(data), nil
}
