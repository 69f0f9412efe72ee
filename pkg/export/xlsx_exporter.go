package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	SheetName string
}

// NewXLSXExporter builds an exporter writing to a sheet named "Feedback".
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{SheetName: "Feedback"}
}

// Render writes a bold header row followed by one row per record.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := writeXLSXHeader(f, defaultSheet, data.Headers); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range data.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := rowValues(data.Headers, row)
		line := make([]interface{}, len(values))
		for j, value := range values {
			line[j] = value
		}
		if err := f.SetSheetRow(defaultSheet, cell, &line); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}

	if e.SheetName != "" && e.SheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, e.SheetName); err != nil {
			return nil, fmt.Errorf("rename xlsx sheet: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 25); err != nil {
		return err
	}
	line := make([]interface{}, len(headers))
	for i, header := range headers {
		line[i] = header
	}
	return f.SetSheetRow(sheet, first, &line)
}
