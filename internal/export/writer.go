package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// sheetWriter appends rows to a single excelize sheet.
type sheetWriter struct {
	file       *excelize.File
	sheet      string
	columns    int
	currentRow int
}

func newSheetWriter(sheet string, columns int) *sheetWriter {
	f := excelize.NewFile()
	// Excel limits sheet names to 31 characters.
	if len([]rune(sheet)) > 31 {
		sheet = string([]rune(sheet)[:31])
	}
	_ = f.SetSheetName("Sheet1", sheet)
	return &sheetWriter{file: f, sheet: sheet, columns: columns, currentRow: 1}
}

func (w *sheetWriter) lastColumn() string {
	name, _ := excelize.ColumnNumberToName(w.columns)
	return name
}

// WriteBanner writes text into a row merged across all columns.
func (w *sheetWriter) WriteBanner(text string, style *excelize.Style) error {
	start := fmt.Sprintf("A%d", w.currentRow)
	end := fmt.Sprintf("%s%d", w.lastColumn(), w.currentRow)
	if err := w.file.MergeCell(w.sheet, start, end); err != nil {
		return fmt.Errorf("merge %s:%s: %w", start, end, err)
	}
	if err := w.file.SetCellValue(w.sheet, start, text); err != nil {
		return err
	}
	if style != nil {
		id, err := w.file.NewStyle(style)
		if err == nil {
			_ = w.file.SetCellStyle(w.sheet, start, end, id)
		}
	}
	w.currentRow++
	return nil
}

// SkipRow leaves the current row empty.
func (w *sheetWriter) SkipRow() {
	w.currentRow++
}

// WriteHeader writes column headers to current sheet.
func (w *sheetWriter) WriteHeader(columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.sheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to current sheet.
func (w *sheetWriter) WriteRow(row []any) error {
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}
	w.currentRow++
	return nil
}

// SetWidths sets column widths starting at column A.
func (w *sheetWriter) SetWidths(widths []float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(w.sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) SaveToFile(path string) error {
	return w.file.SaveAs(path)
}

func (w *sheetWriter) Close() error {
	return w.file.Close()
}
