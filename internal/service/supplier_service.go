package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrofin/internal/domain"
	"agrofin/internal/extraction"
	"agrofin/internal/port"
)

// CreateSupplierInput is the DTO for supplier creation.
type CreateSupplierInput struct {
	LegalName string  `json:"legal_name" binding:"required"`
	TradeName *string `json:"trade_name"`
	TaxID     string  `json:"tax_id" binding:"required"`
}

// UpdateSupplierInput is the DTO for supplier updates. Nil fields are left unchanged.
type UpdateSupplierInput struct {
	LegalName *string `json:"legal_name"`
	TradeName *string `json:"trade_name"`
	TaxID     *string `json:"tax_id"`
}

// SupplierService defines the supplier management contract.
type SupplierService interface {
	Create(ctx context.Context, input CreateSupplierInput) (*domain.Supplier, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	GetByTaxID(ctx context.Context, taxID string) (*domain.Supplier, error)
	List(ctx context.Context, filter port.SupplierFilter, offset, limit int) ([]domain.Supplier, int, error)
	Search(ctx context.Context, term string, offset, limit int) ([]domain.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*domain.Supplier, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
}

type supplierService struct {
	repo port.SupplierRepository
	log  *zap.Logger
}

// NewSupplierService creates a new SupplierService implementation.
func NewSupplierService(repo port.SupplierRepository, log *zap.Logger) SupplierService {
	if log == nil {
		log = zap.NewNop()
	}
	return &supplierService{repo: repo, log: log}
}

func (s *supplierService) Create(ctx context.Context, input CreateSupplierInput) (*domain.Supplier, error) {
	legalName := strings.TrimSpace(input.LegalName)
	taxID := strings.TrimSpace(input.TaxID)
	if legalName == "" {
		return nil, fmt.Errorf("%w: legal_name is required", domain.ErrInvalidRecord)
	}
	if !extraction.ValidTaxID(taxID) {
		return nil, domain.ErrInvalidTaxID
	}

	existing, err := s.repo.GetByTaxID(ctx, taxID)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateTaxID
	case err != nil && !errors.Is(err, domain.ErrSupplierNotFound):
		return nil, fmt.Errorf("checking tax id: %w", err)
	}

	supplier := &domain.Supplier{
		ID:        uuid.New(),
		LegalName: legalName,
		TradeName: trimmed(input.TradeName),
		TaxID:     taxID,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	s.log.Info("supplierService.Create: supplier created",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("tax_id", supplier.TaxID),
	)
	return supplier, nil
}

func (s *supplierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *supplierService) GetByTaxID(ctx context.Context, taxID string) (*domain.Supplier, error) {
	taxID = strings.TrimSpace(taxID)
	if !extraction.ValidTaxID(taxID) {
		return nil, domain.ErrInvalidTaxID
	}
	return s.repo.GetByTaxID(ctx, taxID)
}

func (s *supplierService) List(ctx context.Context, filter port.SupplierFilter, offset, limit int) ([]domain.Supplier, int, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *supplierService) Search(ctx context.Context, term string, offset, limit int) ([]domain.Supplier, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Supplier{}, nil
	}
	return s.repo.Search(ctx, term, offset, limit)
}

func (s *supplierService) Update(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*domain.Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.LegalName != nil {
		name := strings.TrimSpace(*input.LegalName)
		if name == "" {
			return nil, fmt.Errorf("%w: legal_name must not be blank", domain.ErrInvalidRecord)
		}
		supplier.LegalName = name
	}
	if input.TradeName != nil {
		supplier.TradeName = trimmed(input.TradeName)
	}
	if input.TaxID != nil {
		taxID := strings.TrimSpace(*input.TaxID)
		if !extraction.ValidTaxID(taxID) {
			return nil, domain.ErrInvalidTaxID
		}
		supplier.TaxID = taxID
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.log.Info("supplierService.Deactivate: supplier deactivated", zap.String("supplier_id", id.String()))
	return nil
}

func (s *supplierService) Reactivate(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return nil, err
	}
	s.log.Info("supplierService.Reactivate: supplier reactivated", zap.String("supplier_id", id.String()))
	return s.repo.GetByID(ctx, id)
}

// trimmed returns nil for nil or blank input.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
