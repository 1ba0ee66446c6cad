package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Grid is a week-view timetable matrix: one row per working day, one
// column per time slot. Cells hold pre-formatted text; empty cells mean
// free slots.
type Grid struct {
	Title       string
	SlotLabels  []string
	DayRows     []string
	Cells       [][]string
	Annotations []string
}

// PDFExporter renders a timetable grid into a landscape PDF page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrid creates the PDF document for the grid.
func (e *PDFExporter) RenderGrid(grid Grid) ([]byte, error) {
	if len(grid.SlotLabels) == 0 || len(grid.DayRows) == 0 {
		return nil, fmt.Errorf("pdf grid requires day rows and slot columns")
	}
	if len(grid.Cells) != len(grid.DayRows) {
		return nil, fmt.Errorf("pdf grid has %d cell rows for %d days", len(grid.Cells), len(grid.DayRows))
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(grid.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	const dayColWidth = 28.0
	slotColWidth := (277.0 - dayColWidth) / float64(len(grid.SlotLabels))

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(dayColWidth, 8, "Day", "1", 0, "C", false, 0, "")
	for _, label := range grid.SlotLabels {
		pdf.CellFormat(slotColWidth, 8, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for i, day := range grid.DayRows {
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(dayColWidth, 12, day, "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		for j := range grid.SlotLabels {
			cell := ""
			if j < len(grid.Cells[i]) {
				cell = grid.Cells[i][j]
			}
			pdf.CellFormat(slotColWidth, 12, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(grid.Annotations) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		for _, note := range grid.Annotations {
			pdf.CellFormat(0, 5, note, "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
