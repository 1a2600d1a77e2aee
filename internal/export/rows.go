// Package export renders payable accounts as CSV or XLSX.
package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agrofin/internal/domain"
)

// columns defines the header row. Each installment is one row.
var columns = []string{
	"Invoice Number",
	"Issue Date",
	"Supplier",
	"Supplier CNPJ",
	"Description",
	"Total Amount",
	"Installment",
	"Due Date",
	"Installment Amount",
	"Payment Status",
	"Categories",
	"Overall Confidence",
	"Needs Review",
	"Created At",
}

// Columns returns a copy of the header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Rows flattens accounts to one row per installment. Accounts without
// installments produce a single row with empty installment columns.
func Rows(accounts []domain.PayableAccount, today time.Time) [][]string {
	var rows [][]string
	for i := range accounts {
		a := &accounts[i]
		if len(a.Installments) == 0 {
			rows = append(rows, accountRow(a, nil, today))
			continue
		}
		for j := range a.Installments {
			rows = append(rows, accountRow(a, &a.Installments[j], today))
		}
	}
	return rows
}

func accountRow(a *domain.PayableAccount, inst *domain.PayableInstallment, today time.Time) []string {
	row := make([]string, len(columns))
	row[0] = deref(a.InvoiceNumber)
	row[1] = a.IssueDate.Format("2006-01-02")
	row[2] = a.SupplierName
	row[3] = a.SupplierTaxID
	row[4] = a.Description
	row[5] = a.TotalAmount.StringFixed(2)
	if inst != nil {
		row[6] = strconv.Itoa(inst.Number)
		row[7] = inst.DueDate.Format("2006-01-02")
		row[8] = inst.Amount.StringFixed(2)
		row[9] = string(inst.Status(today))
	}
	row[10] = categories(a.Classifications)
	row[11] = strconv.FormatFloat(a.OverallConfidence, 'f', 2, 64)
	row[12] = formatBool(needsReview(a.Classifications))
	row[13] = a.CreatedAt.Format(time.RFC3339)
	return row
}

func categories(cs []domain.AccountClassification) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s (%.2f)", c.Category, c.Confidence)
	}
	return strings.Join(parts, "; ")
}

func needsReview(cs []domain.AccountClassification) bool {
	for _, c := range cs {
		if c.NeedsReview {
			return true
		}
	}
	return false
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {prefix}_{YYYY-MM-DD}.{format}.
func BuildFilename(prefix string, format domain.ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(prefix), now.Format("2006-01-02"), format)
}
