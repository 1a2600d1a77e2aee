package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agrofin/internal/domain"
	"agrofin/internal/extraction"
	"agrofin/internal/port"
)

type payableAccountRepo struct {
	db *sqlx.DB
}

// NewPayableAccountRepo creates a new PostgreSQL-backed PayableAccountRepository.
func NewPayableAccountRepo(db *sqlx.DB) port.PayableAccountRepository {
	return &payableAccountRepo{db: db}
}

func (r *payableAccountRepo) CreateFromExtraction(ctx context.Context, rec *extraction.Record) (_ *domain.GeneratedAccount, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payableAccountRepo.CreateFromExtraction begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	out := &domain.GeneratedAccount{}

	out.SupplierID, out.SupplierCreated, err = upsertSupplier(ctx, tx, &rec.Supplier, now)
	if err != nil {
		return nil, err
	}

	if rec.BilledParty != nil {
		id, created, err := upsertBilledParty(ctx, tx, rec.BilledParty, now)
		if err != nil {
			return nil, err
		}
		out.BilledPartyID = &id
		out.BilledPartyCreated = created
	}

	out.AccountID = uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO payable_accounts (id, invoice_number, issue_date, description, total_amount,
			supplier_id, billed_party_id, overall_confidence, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10, $10)`,
		out.AccountID, rec.InvoiceNumber, rec.IssueDate.Time, rec.Description, rec.TotalAmount,
		out.SupplierID, out.BilledPartyID, rec.OverallConfidence, rec.Notes, now)
	if err != nil {
		return nil, fmt.Errorf("payableAccountRepo.CreateFromExtraction account: %w", err)
	}

	for _, inst := range rec.Installments {
		id := uuid.New()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payable_installments (id, account_id, number, due_date, amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, out.AccountID, inst.Number, inst.DueDate.Time, inst.Amount, now)
		if err != nil {
			return nil, fmt.Errorf("payableAccountRepo.CreateFromExtraction installment %d: %w", inst.Number, err)
		}
		out.InstallmentIDs = append(out.InstallmentIDs, id)
	}

	for _, c := range rec.Classifications {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payable_account_classifications
				(account_id, category, description, percentage, confidence, needs_review)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			out.AccountID, c.Category, c.Description, c.Percentage, c.Confidence, c.NeedsReview)
		if err != nil {
			return nil, fmt.Errorf("payableAccountRepo.CreateFromExtraction classification %s: %w", c.Category, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("payableAccountRepo.CreateFromExtraction commit: %w", err)
	}
	return out, nil
}

// upsertSupplier returns the supplier for s.TaxID, creating it when absent and
// reactivating it when inactive. xmax is zero only for freshly inserted rows.
func upsertSupplier(ctx context.Context, tx *sqlx.Tx, s *extraction.Supplier, now time.Time) (uuid.UUID, bool, error) {
	var row struct {
		ID      uuid.UUID `db:"id"`
		Created bool      `db:"created"`
	}
	err := tx.GetContext(ctx, &row,
		`INSERT INTO suppliers (id, legal_name, trade_name, tax_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (tax_id) DO UPDATE SET
			is_active = TRUE,
			updated_at = CASE WHEN suppliers.is_active THEN suppliers.updated_at ELSE EXCLUDED.updated_at END
		RETURNING id, (xmax = 0) AS created`,
		uuid.New(), s.LegalName, s.TradeName, s.TaxID, now)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upserting supplier %s: %w", s.TaxID, err)
	}
	return row.ID, row.Created, nil
}

func upsertBilledParty(ctx context.Context, tx *sqlx.Tx, b *extraction.BilledParty, now time.Time) (uuid.UUID, bool, error) {
	var row struct {
		ID      uuid.UUID `db:"id"`
		Created bool      `db:"created"`
	}
	err := tx.GetContext(ctx, &row,
		`INSERT INTO billed_parties (id, full_name, document_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (document_id) DO UPDATE SET
			is_active = TRUE,
			updated_at = CASE WHEN billed_parties.is_active THEN billed_parties.updated_at ELSE EXCLUDED.updated_at END
		RETURNING id, (xmax = 0) AS created`,
		uuid.New(), b.FullName, b.DocumentID, now)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upserting billed party: %w", err)
	}
	return row.ID, row.Created, nil
}

const accountSelect = `SELECT a.id, a.invoice_number, a.issue_date, a.description, a.total_amount,
	a.supplier_id, a.billed_party_id, a.overall_confidence, a.notes, a.is_active,
	a.created_at, a.updated_at, s.legal_name AS supplier_name, s.tax_id AS supplier_tax_id
	FROM payable_accounts a JOIN suppliers s ON s.id = a.supplier_id`

func (r *payableAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error) {
	var account domain.PayableAccount
	if err := r.db.GetContext(ctx, &account, accountSelect+" WHERE a.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("payableAccountRepo.GetByID: %w", err)
	}
	accounts := []domain.PayableAccount{account}
	if err := r.loadChildren(ctx, accounts); err != nil {
		return nil, err
	}
	return &accounts[0], nil
}

func (r *payableAccountRepo) List(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payable_accounts WHERE is_active"); err != nil {
		return nil, 0, fmt.Errorf("payableAccountRepo.List count: %w", err)
	}

	var accounts []domain.PayableAccount
	err := r.db.SelectContext(ctx, &accounts,
		accountSelect+" WHERE a.is_active ORDER BY a.issue_date DESC, a.id LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("payableAccountRepo.List: %w", err)
	}
	if err := r.loadChildren(ctx, accounts); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// loadChildren attaches installments and classifications to accounts in two queries.
func (r *payableAccountRepo) loadChildren(ctx context.Context, accounts []domain.PayableAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	ids := make([]string, len(accounts))
	index := make(map[uuid.UUID]int, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID.String()
		index[accounts[i].ID] = i
	}

	var installments []domain.PayableInstallment
	err := r.db.SelectContext(ctx, &installments,
		`SELECT id, account_id, number, due_date, amount, paid_at, paid_amount, created_at
		FROM payable_installments WHERE account_id = ANY($1::uuid[]) ORDER BY account_id, number`, ids)
	if err != nil {
		return fmt.Errorf("payableAccountRepo.loadChildren installments: %w", err)
	}
	for _, inst := range installments {
		i := index[inst.AccountID]
		accounts[i].Installments = append(accounts[i].Installments, inst)
	}

	var classifications []domain.AccountClassification
	err = r.db.SelectContext(ctx, &classifications,
		`SELECT account_id, category, description, percentage, confidence, needs_review
		FROM payable_account_classifications WHERE account_id = ANY($1::uuid[])
		ORDER BY account_id, confidence DESC`, ids)
	if err != nil {
		return fmt.Errorf("payableAccountRepo.loadChildren classifications: %w", err)
	}
	for _, c := range classifications {
		i := index[c.AccountID]
		accounts[i].Classifications = append(accounts[i].Classifications, c)
	}
	return nil
}
