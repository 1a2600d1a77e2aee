package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"agrofin/internal/domain"
)

const sheetName = "Contas a Pagar"

// amountColumns are written as numbers so spreadsheet sums work.
var amountColumns = map[int]bool{5: true, 8: true}

// WriteXLSX writes a single-sheet workbook with the same layout as WriteCSV.
func WriteXLSX(w io.Writer, accounts []domain.PayableAccount, today time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for r, row := range Rows(accounts, today) {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			var value interface{} = v
			if amountColumns[c] && v != "" {
				if n, err := parseAmount(v); err == nil {
					value = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "C", 36)
	_ = f.SetColWidth(sheetName, "D", "D", 20)
	_ = f.SetColWidth(sheetName, "E", "E", 48)
	_ = f.SetColWidth(sheetName, "F", "J", 14)
	_ = f.SetColWidth(sheetName, "K", "K", 40)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// Write dispatches on format.
func Write(w io.Writer, format domain.ExportFormat, accounts []domain.PayableAccount, today time.Time) error {
	switch format {
	case domain.ExportCSV:
		return WriteCSV(w, accounts, today)
	case domain.ExportXLSX:
		return WriteXLSX(w, accounts, today)
	default:
		return domain.ErrUnsupportedExport
	}
}

// ContentType returns the MIME type for format.
func ContentType(format domain.ExportFormat) string {
	if format == domain.ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
