package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/verte-zerg/gradebook/internal/model"
	"github.com/verte-zerg/gradebook/internal/report"
)

// YAML writes the report as a structured YAML document.
type YAML struct {
	Dir string
}

// YAMLDocument is the serialized form of a report.
type YAMLDocument struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Student  YAMLStudent   `yaml:"student"`
	Sections []YAMLSection `yaml:"sections"`
}

// YAMLStudent identifies the report's subject.
type YAMLStudent struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// YAMLSection is one serialized report section.
type YAMLSection struct {
	Kind     string     `yaml:"kind"`
	Part     string     `yaml:"part"`
	Semester int        `yaml:"semester,omitempty"`
	Title    string     `yaml:"title,omitempty"`
	Headers  []string   `yaml:"headers,omitempty"`
	Rows     [][]string `yaml:"rows,omitempty"`
	Chart    *YAMLChart `yaml:"chart,omitempty"`
	Text     string     `yaml:"text,omitempty"`
}

// YAMLChart embeds a chart's rendered content.
type YAMLChart struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// Assemble encodes doc and writes it under Dir.
func (s *YAML) Assemble(ctx context.Context, doc *report.Document) (report.Handle, error) {
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, doc); err != nil {
		return report.Handle{}, err
	}
	return writeDocument(ctx, s.Dir, doc, "yaml", FormatYAML, buf.Bytes())
}

// EncodeYAML writes doc to w as YAML, reading chart content as it goes.
func EncodeYAML(w io.Writer, doc *report.Document) error {
	out := YAMLDocument{
		ID:       doc.ID,
		Title:    doc.Title,
		Student:  YAMLStudent{ID: doc.StudentID, Name: doc.StudentName},
		Sections: make([]YAMLSection, 0, len(doc.Sections)),
	}
	for _, sec := range doc.Sections {
		ys := YAMLSection{
			Kind:     sec.Kind.String(),
			Part:     string(sec.Part),
			Semester: sec.Semester,
			Title:    sec.Title,
			Text:     sec.Text,
		}
		if sec.Table != nil {
			ys.Headers = sec.Table.Headers
			ys.Rows = sec.Table.Rows
		}
		if sec.Kind == report.KindChart {
			content, err := chartContent(sec)
			if err != nil {
				return err
			}
			ys.Chart = &YAMLChart{ID: sec.Chart.ID(), Title: sec.Chart.Title(), Content: content}
		}
		out.Sections = append(out.Sections, ys)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("%w: encode yaml: %v", model.ErrDocument, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: flush yaml: %v", model.ErrDocument, err)
	}
	return nil
}
