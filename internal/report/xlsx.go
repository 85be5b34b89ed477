package report

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXRenderer writes one sheet holding the header row and the data rows.
type XLSXRenderer struct{}

// Render implements Renderer.
func (XLSXRenderer) Render(w io.Writer, header Header, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(r)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   r.Title,
		Creator: header.Product,
		Created: header.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}); err != nil {
		return err
	}

	headerRow := make([]any, len(r.Columns))
	for i, col := range r.Columns {
		headerRow[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}
	if len(r.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(r.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// SheetName derives a valid worksheet name from the report kind.
func SheetName(r Report) string {
	name := string(r.Kind)
	if name == "" {
		name = "report"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
