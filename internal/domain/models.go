package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Supplier is the issuer of an invoice, keyed by CNPJ.
type Supplier struct {
	ID        uuid.UUID `db:"id" json:"id"`
	LegalName string    `db:"legal_name" json:"legal_name"`
	TradeName *string   `db:"trade_name" json:"trade_name,omitempty"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BilledParty is the person an invoice is billed to, keyed by CPF.
type BilledParty struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	DocumentID string    `db:"document_id" json:"document_id"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PayableAccount is an accounts-payable entry generated from an invoice.
type PayableAccount struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	InvoiceNumber     *string         `db:"invoice_number" json:"invoice_number,omitempty"`
	IssueDate         time.Time       `db:"issue_date" json:"issue_date"`
	Description       string          `db:"description" json:"description"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	SupplierID        uuid.UUID       `db:"supplier_id" json:"supplier_id"`
	BilledPartyID     *uuid.UUID      `db:"billed_party_id" json:"billed_party_id,omitempty"`
	OverallConfidence float64         `db:"overall_confidence" json:"overall_confidence"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`

	// Populated by joins, not stored on the row.
	SupplierName    string                  `db:"supplier_name" json:"supplier_name,omitempty"`
	SupplierTaxID   string                  `db:"supplier_tax_id" json:"supplier_tax_id,omitempty"`
	Installments    []PayableInstallment    `db:"-" json:"installments,omitempty"`
	Classifications []AccountClassification `db:"-" json:"classifications,omitempty"`
}

// PayableInstallment is one scheduled payment of a PayableAccount.
type PayableInstallment struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	AccountID  uuid.UUID           `db:"account_id" json:"account_id"`
	Number     int                 `db:"number" json:"number"`
	DueDate    time.Time           `db:"due_date" json:"due_date"`
	Amount     decimal.Decimal     `db:"amount" json:"amount"`
	PaidAt     *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	PaidAmount decimal.NullDecimal `db:"paid_amount" json:"paid_amount"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// Status reports whether the installment is paid, overdue or pending on the given day.
func (i *PayableInstallment) Status(today time.Time) PaymentStatus {
	switch {
	case i.PaidAt != nil:
		return PaymentStatusPaid
	case i.DueDate.Before(truncateDay(today)):
		return PaymentStatusOverdue
	default:
		return PaymentStatusPending
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AccountClassification links a PayableAccount to an expense category.
type AccountClassification struct {
	AccountID   uuid.UUID       `db:"account_id" json:"-"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	Percentage  decimal.Decimal `db:"percentage" json:"percentage"`
	Confidence  float64         `db:"confidence" json:"confidence"`
	NeedsReview bool            `db:"needs_review" json:"needs_review"`
}

// GeneratedAccount reports the rows written for one extracted invoice.
type GeneratedAccount struct {
	AccountID          uuid.UUID   `json:"account_id"`
	SupplierID         uuid.UUID   `json:"supplier_id"`
	SupplierCreated    bool        `json:"supplier_created"`
	BilledPartyID      *uuid.UUID  `json:"billed_party_id,omitempty"`
	BilledPartyCreated bool        `json:"billed_party_created"`
	InstallmentIDs     []uuid.UUID `json:"installment_ids"`
}

// ExtractionLog records the outcome of one pipeline run.
type ExtractionLog struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	DocumentID   uuid.UUID       `db:"document_id" json:"document_id"`
	Filename     string          `db:"filename" json:"filename"`
	Success      bool            `db:"success" json:"success"`
	ErrorCode    *string         `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	Stage        string          `db:"stage" json:"stage"`
	Model        *string         `db:"model" json:"model,omitempty"`
	ElapsedMS    int64           `db:"elapsed_ms" json:"elapsed_ms"`
	ArchiveKey   *string         `db:"archive_key" json:"archive_key,omitempty"`
	Record       json.RawMessage `db:"record" json:"record,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
