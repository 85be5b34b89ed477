// Package report renders already filtered dashboard data as PDF documents or
// XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind names a report.
type Kind string

const (
	KindTasks             Kind = "tasks"
	KindEmployees         Kind = "employees"
	KindClients           Kind = "clients"
	KindDepartmentSummary Kind = "department-summary"
)

// ParseKind validates a raw report kind.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(raw)
	switch k {
	case KindTasks, KindEmployees, KindClients, KindDepartmentSummary:
		return k, true
	}
	return "", false
}

// Format is the output flavour of a report.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a raw format, defaulting to PDF.
func ParseFormat(raw string) (Format, bool) {
	switch strings.ToLower(raw) {
	case "", "pdf":
		return FormatPDF, true
	case "xlsx":
		return FormatXLSX, true
	}
	return "", false
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Report is a titled table.
type Report struct {
	Kind    Kind
	Title   string
	Month   string
	Columns []string
	Rows    [][]string
}

// Artifact is a rendered report file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Header carries the fixed document header.
type Header struct {
	Product     string
	GeneratedAt time.Time
}

// Renderer writes a report in one format.
type Renderer interface {
	Render(w io.Writer, header Header, r Report) error
}

// Exporter names and renders report files.
type Exporter struct {
	company   string
	product   string
	now       func() time.Time
	renderers map[Format]Renderer
}

// NewExporter creates an exporter with the PDF and XLSX renderers.
func NewExporter(company, product string) *Exporter {
	return &Exporter{
		company: company,
		product: product,
		now:     time.Now,
		renderers: map[Format]Renderer{
			FormatPDF:  PDFRenderer{},
			FormatXLSX: XLSXRenderer{},
		},
	}
}

// Export renders r in the requested format.
func (e *Exporter) Export(r Report, format Format) (*Artifact, error) {
	renderer, ok := e.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	now := e.now()
	var buf bytes.Buffer
	if err := renderer.Render(&buf, Header{Product: e.product, GeneratedAt: now}, r); err != nil {
		return nil, fmt.Errorf("render %s report: %w", format, err)
	}
	return &Artifact{
		Filename:    Filename(e.company, r.Kind, r.Month, now, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Filename builds <company>_<kind>_<period>.<ext>, where period is the month
// when one is selected and the current date otherwise.
func Filename(company string, kind Kind, month string, now time.Time, format Format) string {
	label := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(company)), " ", "_")
	period := month
	if period == "" {
		period = now.Format("2006-01-02")
	}
	return fmt.Sprintf("%s_%s_%s.%s", label, kind, period, format)
}
