// Package report assembles a student's performance report from stored
// scores, rendered charts and a document sink.
package report

import "github.com/verte-zerg/gradebook/internal/model"

// Kind identifies what a section carries.
type Kind int

const (
	KindHeading Kind = iota
	KindTable
	KindChart
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	case KindChart:
		return "chart"
	case KindNote:
		return "note"
	default:
		return "unknown"
	}
}

// Part groups sections into the report's top-level divisions.
type Part string

const (
	PartHeader      Part = "header"
	PartScores      Part = "scores"
	PartSummary     Part = "summary"
	PartComparative Part = "comparative"
)

// Table is a rectangular block of preformatted cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Section is one block of the document. Exactly one of Table, Chart or Text
// is meaningful, depending on Kind; headings use Title only. Chart is only
// set while the document is being assembled.
type Section struct {
	Kind     Kind
	Part     Part
	Semester int
	Title    string
	Table    *Table
	Chart    model.ChartArtifact
	Text     string
}

// Document is an assembled report.
type Document struct {
	ID          string
	StudentID   string
	StudentName string
	Title       string
	Sections    []Section
}

// Count returns how many sections of kind belong to part. An empty part
// counts across the whole document.
func (d *Document) Count(part Part, kind Kind) int {
	n := 0
	for _, s := range d.Sections {
		if s.Kind != kind {
			continue
		}
		if part != "" && s.Part != part {
			continue
		}
		n++
	}
	return n
}

// Filter returns the sections of part, in document order.
func (d *Document) Filter(part Part) []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Part == part {
			out = append(out, s)
		}
	}
	return out
}

// detachCharts drops the artifact references once they have been released.
func (d *Document) detachCharts() {
	for i := range d.Sections {
		d.Sections[i].Chart = nil
	}
}

// Handle identifies a document written by a sink.
type Handle struct {
	DocumentID string
	Location   string
	Format     string
}
