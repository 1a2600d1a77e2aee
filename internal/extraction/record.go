package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only date format accepted from the model.
const DateLayout = "2006-01-02"

// Date is a calendar date without time-of-day.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Supplier is the issuing company of the invoice.
type Supplier struct {
	LegalName string  `json:"legal_name"`
	TradeName *string `json:"trade_name,omitempty"`
	TaxID     string  `json:"tax_id"`
}

// BilledParty is the individual the invoice is billed to.
type BilledParty struct {
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
}

// Installment is one scheduled payment of the invoice total.
type Installment struct {
	Number  int             `json:"number"`
	DueDate Date            `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// Classification is an expense category assigned to the invoice.
type Classification struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Percentage  decimal.Decimal `json:"percentage"`
	Confidence  float64         `json:"confidence"`
	NeedsReview bool            `json:"needs_review,omitempty"`
}

// Record is the validated result of an invoice extraction.
type Record struct {
	InvoiceNumber     *string          `json:"invoice_number,omitempty"`
	IssueDate         Date             `json:"issue_date"`
	Description       string           `json:"description"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	Supplier          Supplier         `json:"supplier"`
	BilledParty       *BilledParty     `json:"billed_party,omitempty"`
	Installments      []Installment    `json:"installments"`
	InstallmentCount  int              `json:"installment_count"`
	Classifications   []Classification `json:"classifications"`
	OverallConfidence float64          `json:"overall_confidence"`
	Notes             *string          `json:"notes,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// NeedsReview reports whether any classification was flagged for manual review.
func (r *Record) NeedsReview() bool {
	for _, c := range r.Classifications {
		if c.NeedsReview {
			return true
		}
	}
	return false
}
