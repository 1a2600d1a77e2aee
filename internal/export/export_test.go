package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agrofin/internal/domain"
	"agrofin/internal/export"
)

var today = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func sampleAccounts() []domain.PayableAccount {
	paid := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []domain.PayableAccount{
		{
			ID:                uuid.New(),
			InvoiceNumber:     ptr("000123"),
			IssueDate:         time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			Description:       "Óleo diesel S10",
			TotalAmount:       decimal.RequireFromString("1500.50"),
			SupplierName:      "Posto Central Ltda",
			SupplierTaxID:     "12.345.678/0001-90",
			OverallConfidence: 0.92,
			CreatedAt:         time.Date(2024, 2, 11, 8, 0, 0, 0, time.UTC),
			Installments: []domain.PayableInstallment{
				{Number: 1, DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("750.25"), PaidAt: &paid},
				{Number: 2, DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("750.25")},
			},
			Classifications: []domain.AccountClassification{
				{Category: "MANUTENÇÃO E OPERAÇÃO", Confidence: 0.16},
			},
		},
		{
			ID:          uuid.New(),
			IssueDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description: "Serviço",
			TotalAmount: decimal.RequireFromString("99"),
			CreatedAt:   time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			Classifications: []domain.AccountClassification{
				{Category: "ADMINISTRATIVAS", Confidence: 0.2, NeedsReview: true},
			},
		},
	}
}

func TestRows_OnePerInstallment(t *testing.T) {
	rows := export.Rows(sampleAccounts(), today)

	require.Len(t, rows, 3)
	assert.Equal(t, "000123", rows[0][0])
	assert.Equal(t, "2024-02-10", rows[0][1])
	assert.Equal(t, "1500.50", rows[0][5])
	assert.Equal(t, "1", rows[0][6])
	assert.Equal(t, "750.25", rows[0][8])
	assert.Equal(t, "PAID", rows[0][9])
	assert.Equal(t, "OVERDUE", rows[1][9])
	assert.Equal(t, "MANUTENÇÃO E OPERAÇÃO (0.16)", rows[0][10])
	assert.Equal(t, "No", rows[0][12])

	// No installments: one row, installment columns blank.
	assert.Equal(t, "", rows[2][0])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "99.00", rows[2][5])
	assert.Equal(t, "Yes", rows[2][12])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleAccounts(), today))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, export.BOM))

	records, err := csv.NewReader(bytes.NewReader(raw[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, export.Columns(), records[0])
	assert.Equal(t, "Posto Central Ltda", records[1][2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sampleAccounts(), today))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Contas a Pagar")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Invoice Number", rows[0][0])
	assert.Equal(t, "Posto Central Ltda", rows[1][2])

	total, err := f.GetCellValue("Contas a Pagar", "F2")
	require.NoError(t, err)
	assert.Equal(t, "1500.5", total)
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := export.Write(&bytes.Buffer{}, "pdf", nil, today)
	assert.ErrorIs(t, err, domain.ErrUnsupportedExport)
}

func TestBuildFilename(t *testing.T) {
	assert.Equal(t, "contas_a_pagar_2024-03-20.xlsx",
		export.BuildFilename("contas a pagar!", domain.ExportXLSX, today))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b-c", export.SanitizeFilename("__a   b-c!!"))
}
