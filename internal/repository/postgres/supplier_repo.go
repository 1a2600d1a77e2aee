package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agrofin/internal/domain"
	"agrofin/internal/port"
)

const supplierColumns = "id, legal_name, trade_name, tax_id, is_active, created_at, updated_at"

type supplierRepo struct {
	db *sqlx.DB
}

// NewSupplierRepo creates a new PostgreSQL-backed SupplierRepository.
func NewSupplierRepo(db *sqlx.DB) port.SupplierRepository {
	return &supplierRepo{db: db}
}

func (r *supplierRepo) Create(ctx context.Context, supplier *domain.Supplier) error {
	supplier.ID = uuid.New()
	now := time.Now().UTC()
	supplier.CreatedAt = now
	supplier.UpdatedAt = now

	query := `INSERT INTO suppliers (id, legal_name, trade_name, tax_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		supplier.ID, supplier.LegalName, supplier.TradeName, supplier.TaxID,
		supplier.IsActive, supplier.CreatedAt, supplier.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "suppliers_tax_id_key") {
			return domain.ErrDuplicateTaxID
		}
		return fmt.Errorf("supplierRepo.Create: %w", err)
	}
	return nil
}

func (r *supplierRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := r.db.GetContext(ctx, &supplier, "SELECT "+supplierColumns+" FROM suppliers WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("supplierRepo.GetByID: %w", err)
	}
	return &supplier, nil
}

func (r *supplierRepo) GetByTaxID(ctx context.Context, taxID string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := r.db.GetContext(ctx, &supplier, "SELECT "+supplierColumns+" FROM suppliers WHERE tax_id = $1", taxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("supplierRepo.GetByTaxID: %w", err)
	}
	return &supplier, nil
}

func (r *supplierRepo) List(ctx context.Context, filter port.SupplierFilter, offset, limit int) ([]domain.Supplier, int, error) {
	where, args := supplierWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM suppliers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("supplierRepo.List count: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM suppliers%s ORDER BY legal_name, id LIMIT $%d OFFSET $%d",
		supplierColumns, where, len(args)+1, len(args)+2)
	var suppliers []domain.Supplier
	if err := r.db.SelectContext(ctx, &suppliers, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("supplierRepo.List: %w", err)
	}
	return suppliers, total, nil
}

// supplierWhere builds a WHERE clause with positional arguments for filter.
func supplierWhere(filter port.SupplierFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.LegalName != "" {
		add("legal_name ILIKE $%d", "%"+filter.LegalName+"%")
	}
	if filter.TradeName != "" {
		add("trade_name ILIKE $%d", "%"+filter.TradeName+"%")
	}
	if filter.TaxID != "" {
		add("tax_id = $%d", filter.TaxID)
	}
	if !filter.IncludeInactive {
		conds = append(conds, "is_active")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *supplierRepo) Search(ctx context.Context, term string, offset, limit int) ([]domain.Supplier, error) {
	pattern := "%" + term + "%"
	var suppliers []domain.Supplier
	err := r.db.SelectContext(ctx, &suppliers,
		`SELECT `+supplierColumns+` FROM suppliers
		WHERE is_active AND (legal_name ILIKE $1 OR trade_name ILIKE $1)
		ORDER BY legal_name, id LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("supplierRepo.Search: %w", err)
	}
	return suppliers, nil
}

func (r *supplierRepo) Update(ctx context.Context, supplier *domain.Supplier) error {
	supplier.UpdatedAt = time.Now().UTC()
	query := `UPDATE suppliers SET legal_name = $1, trade_name = $2, tax_id = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		supplier.LegalName, supplier.TradeName, supplier.TaxID, supplier.UpdatedAt, supplier.ID)
	if err != nil {
		if isUniqueViolation(err, "suppliers_tax_id_key") {
			return domain.ErrDuplicateTaxID
		}
		return fmt.Errorf("supplierRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSupplierNotFound
	}
	return nil
}

func (r *supplierRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE suppliers SET is_active = $1, updated_at = $2 WHERE id = $3",
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("supplierRepo.SetActive: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSupplierNotFound
	}
	return nil
}
