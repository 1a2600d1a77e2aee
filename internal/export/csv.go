package export

import (
	"encoding/csv"
	"io"
	"time"

	"agrofin/internal/domain"
)

// BOM is the UTF-8 byte order mark. Excel needs it to read accents correctly.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM, the header row and one row per installment.
func WriteCSV(w io.Writer, accounts []domain.PayableAccount, today time.Time) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(accounts, today)); err != nil {
		return err
	}
	return cw.Error()
}
