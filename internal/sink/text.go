package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/gradebook/internal/report"
	"github.com/verte-zerg/gradebook/internal/stats"
)

// Text writes a plain-text report with charts inlined.
type Text struct {
	Dir string
}

// Assemble renders doc and writes it under Dir.
func (s *Text) Assemble(ctx context.Context, doc *report.Document) (report.Handle, error) {
	var buf bytes.Buffer
	if err := WriteText(&buf, doc); err != nil {
		return report.Handle{}, err
	}
	return writeDocument(ctx, s.Dir, doc, "txt", FormatText, buf.Bytes())
}

// WriteText renders doc as plain text.
func WriteText(w io.Writer, doc *report.Document) error {
	var b strings.Builder
	for i, sec := range doc.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch sec.Kind {
		case report.KindHeading:
			writeHeading(&b, sec)
		case report.KindTable:
			if sec.Table == nil {
				continue
			}
			right := map[int]bool{}
			for c := 1; c < len(sec.Table.Headers); c++ {
				right[c] = true
			}
			for _, line := range stats.FormatTable(sec.Table.Headers, sec.Table.Rows, right) {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		case report.KindChart:
			content, err := chartContent(sec)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "[%s]\n", sec.Title)
			b.WriteString(content)
			if !strings.HasSuffix(content, "\n") {
				b.WriteByte('\n')
			}
		case report.KindNote:
			b.WriteString(sec.Text)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeading(b *strings.Builder, sec report.Section) {
	b.WriteString(sec.Title)
	b.WriteByte('\n')
	underline := "~"
	switch {
	case sec.Part == report.PartHeader:
		underline = "="
	case sec.Semester == 0:
		underline = "-"
	}
	b.WriteString(strings.Repeat(underline, runewidth.StringWidth(sec.Title)))
	b.WriteByte('\n')
}
