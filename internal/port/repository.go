package port

import (
	"context"

	"github.com/google/uuid"

	"agrofin/internal/domain"
	"agrofin/internal/extraction"
)

// SupplierFilter narrows a supplier listing. Empty fields match everything.
type SupplierFilter struct {
	LegalName       string
	TradeName       string
	TaxID           string
	IncludeInactive bool
}

// SupplierRepository defines persistence operations for suppliers.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	GetByTaxID(ctx context.Context, taxID string) (*domain.Supplier, error)
	List(ctx context.Context, filter SupplierFilter, offset, limit int) ([]domain.Supplier, int, error)
	Search(ctx context.Context, term string, offset, limit int) ([]domain.Supplier, error)
	Update(ctx context.Context, supplier *domain.Supplier) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// PayableAccountRepository persists accounts generated from extracted invoices.
type PayableAccountRepository interface {
	// CreateFromExtraction writes the supplier, billed party, account,
	// installments and classifications of rec in one transaction.
	CreateFromExtraction(ctx context.Context, rec *extraction.Record) (*domain.GeneratedAccount, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error)
	List(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error)
}

// ExtractionLogRepository records pipeline outcomes.
type ExtractionLogRepository interface {
	Create(ctx context.Context, log *domain.ExtractionLog) error
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error)
}
