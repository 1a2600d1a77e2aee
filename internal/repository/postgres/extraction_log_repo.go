package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agrofin/internal/domain"
	"agrofin/internal/port"
)

type extractionLogRepo struct {
	db *sqlx.DB
}

// NewExtractionLogRepo creates a new PostgreSQL-backed ExtractionLogRepository.
func NewExtractionLogRepo(db *sqlx.DB) port.ExtractionLogRepository {
	return &extractionLogRepo{db: db}
}

func (r *extractionLogRepo) Create(ctx context.Context, entry *domain.ExtractionLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	if len(entry.Record) == 0 {
		entry.Record = json.RawMessage("null")
	}

	query := `INSERT INTO extraction_logs (id, document_id, filename, success, error_code, error_message,
			stage, model, elapsed_ms, archive_key, record, created_at)
		VALUES (:id, :document_id, :filename, :success, :error_code, :error_message,
			:stage, :model, :elapsed_ms, :archive_key, :record, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("extractionLogRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM extraction_logs"); err != nil {
		return nil, 0, fmt.Errorf("extractionLogRepo.List count: %w", err)
	}

	var logs []domain.ExtractionLog
	err := r.db.SelectContext(ctx, &logs,
		"SELECT * FROM extraction_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionLogRepo.List: %w", err)
	}
	return logs, total, nil
}
