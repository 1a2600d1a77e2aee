package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrofin/internal/config"
	"agrofin/internal/domain"
	"agrofin/internal/export"
	"agrofin/internal/extraction"
	"agrofin/internal/pipeline"
	"agrofin/internal/port"
	"agrofin/internal/textextract"
)

// exportPageSize is the page size used to walk every account during export.
const exportPageSize = 500

// UploadInput is the DTO for invoice uploads.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// InvoiceResult is a pipeline result plus the archive location of the upload.
type InvoiceResult struct {
	pipeline.Result
	ArchiveKey string `json:"archive_key,omitempty"`
}

// DocumentProcessor runs the extraction pipeline on one document.
type DocumentProcessor interface {
	Process(ctx context.Context, document []byte, filename string) pipeline.Result
}

// InvoiceServiceConfig carries the settings InvoiceService reads.
type InvoiceServiceConfig struct {
	MaxFileBytes     int64
	Bucket           string
	PresignExpiry    int64
	ReviewRecipients []string
}

// NewInvoiceServiceConfig derives an InvoiceServiceConfig from the application config.
func NewInvoiceServiceConfig(cfg *config.Config) InvoiceServiceConfig {
	return InvoiceServiceConfig{
		MaxFileBytes:     cfg.Upload.MaxBytes(),
		Bucket:           cfg.S3.Bucket,
		PresignExpiry:    cfg.S3.PresignExpiry,
		ReviewRecipients: cfg.Email.ReviewRecipients,
	}
}

// InvoiceService defines the invoice processing contract.
type InvoiceService interface {
	Process(ctx context.Context, input UploadInput) (*InvoiceResult, error)
	GenerateAccount(ctx context.Context, rec *extraction.Record) (*domain.GeneratedAccount, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error)
	ListAccounts(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error)
	ExportAccounts(ctx context.Context, w io.Writer, format domain.ExportFormat) error
	ListExtractionLogs(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error)
}

type invoiceService struct {
	processor   DocumentProcessor
	accountRepo port.PayableAccountRepository
	logRepo     port.ExtractionLogRepository
	storage     port.ObjectStorage
	emailSender port.EmailSender
	cfg         InvoiceServiceConfig
	log         *zap.Logger
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService implementation. storage may
// be nil, in which case uploads are not archived.
func NewInvoiceService(
	processor DocumentProcessor,
	accountRepo port.PayableAccountRepository,
	logRepo port.ExtractionLogRepository,
	storage port.ObjectStorage,
	emailSender port.EmailSender,
	cfg InvoiceServiceConfig,
	log *zap.Logger,
) InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &invoiceService{
		processor:   processor,
		accountRepo: accountRepo,
		logRepo:     logRepo,
		storage:     storage,
		emailSender: emailSender,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

func (s *invoiceService) Process(ctx context.Context, input UploadInput) (*InvoiceResult, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if input.ContentType != "" && !strings.Contains(strings.ToLower(input.ContentType), "pdf") &&
		input.ContentType != "application/octet-stream" {
		return nil, domain.ErrUnsupportedFileType
	}
	if s.cfg.MaxFileBytes > 0 && input.Size > s.cfg.MaxFileBytes {
		return nil, domain.ErrFileTooLarge
	}

	document, err := s.readBody(input.Body)
	if err != nil {
		return nil, err
	}
	if !textextract.IsPDF(document) {
		return nil, domain.ErrUnsupportedFileType
	}

	s.log.Info("invoiceService.Process: processing upload",
		zap.String("filename", input.Filename),
		zap.Int("bytes", len(document)),
	)

	res := &InvoiceResult{Result: s.processor.Process(ctx, document, input.Filename)}
	res.ArchiveKey = s.archive(ctx, res.Result, document)
	s.recordLog(ctx, res)
	s.notifyReview(ctx, res)
	return res, nil
}

func (s *invoiceService) readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, domain.ErrEmptyFile
	}
	r := body
	if s.cfg.MaxFileBytes > 0 {
		r = io.LimitReader(body, s.cfg.MaxFileBytes+1)
	}
	document, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if len(document) == 0 {
		return nil, domain.ErrEmptyFile
	}
	if s.cfg.MaxFileBytes > 0 && int64(len(document)) > s.cfg.MaxFileBytes {
		return nil, domain.ErrFileTooLarge
	}
	return document, nil
}

// archive stores the original PDF. Failures are logged and yield an empty key.
func (s *invoiceService) archive(ctx context.Context, res pipeline.Result, document []byte) string {
	if s.storage == nil || s.cfg.Bucket == "" {
		return ""
	}
	key := ArchiveKey(s.now(), res)
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(document),
		ContentType: "application/pdf",
		Size:        int64(len(document)),
		Metadata: map[string]string{
			"document-id": res.DocumentID.String(),
			"success":     fmt.Sprintf("%t", res.Success),
			"error-code":  res.ErrorCode,
		},
	})
	if err != nil {
		s.log.Warn("invoiceService.archive: upload failed",
			zap.String("document_id", res.DocumentID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}
	return key
}

// ArchiveKey returns invoices/YYYY/MM/<document id>/<filename>.
func ArchiveKey(now time.Time, res pipeline.Result) string {
	name := filepath.Base(res.Filename)
	ext := filepath.Ext(name)
	stem := export.SanitizeFilename(strings.TrimSuffix(name, ext))
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("invoices/%s/%s/%s%s",
		now.UTC().Format("2006/01"), res.DocumentID, stem, strings.ToLower(ext))
}

func (s *invoiceService) recordLog(ctx context.Context, res *InvoiceResult) {
	if s.logRepo == nil {
		return
	}
	entry := &domain.ExtractionLog{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
		Success:    res.Success,
		Stage:      string(res.Stage),
		ElapsedMS:  res.Elapsed.Milliseconds(),
	}
	if res.ErrorCode != "" {
		entry.ErrorCode = &res.ErrorCode
		entry.ErrorMessage = &res.Error
	}
	if res.Model != "" {
		entry.Model = &res.Model
	}
	if res.ArchiveKey != "" {
		entry.ArchiveKey = &res.ArchiveKey
	}
	if res.Data != nil {
		raw, err := json.Marshal(res.Data)
		if err == nil {
			entry.Record = raw
		}
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.log.Warn("invoiceService.recordLog: failed to write extraction log",
			zap.String("document_id", res.DocumentID.String()),
			zap.Error(err),
		)
	}
}

// notifyReview emails reviewers when extraction failed or classification
// fell back to manual review.
func (s *invoiceService) notifyReview(ctx context.Context, res *InvoiceResult) {
	if s.emailSender == nil || len(s.cfg.ReviewRecipients) == 0 {
		return
	}

	notice := port.ReviewNotice{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
	}
	switch {
	case !res.Success:
		notice.Reason = string(domain.ReviewExtractionFailed)
		notice.ErrorCode = res.ErrorCode
		notice.Error = res.Error
	case res.Data != nil && res.Data.NeedsReview():
		notice.Reason = string(domain.ReviewFallbackCategory)
		for _, c := range res.Data.Classifications {
			notice.Categories = append(notice.Categories, c.Category)
		}
	default:
		return
	}

	if res.ArchiveKey != "" {
		url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, res.ArchiveKey, s.cfg.PresignExpiry)
		if err != nil {
			s.log.Warn("invoiceService.notifyReview: presign failed", zap.Error(err))
		} else {
			notice.ArchiveURL = url
		}
	}

	if err := s.emailSender.SendReviewNotice(ctx, s.cfg.ReviewRecipients, notice); err != nil {
		s.log.Warn("invoiceService.notifyReview: failed to send review notice",
			zap.String("document_id", res.DocumentID.String()),
			zap.String("reason", notice.Reason),
			zap.Error(err),
		)
	}
}

func (s *invoiceService) GenerateAccount(ctx context.Context, rec *extraction.Record) (*domain.GeneratedAccount, error) {
	if err := checkRecord(rec); err != nil {
		return nil, err
	}
	generated, err := s.accountRepo.CreateFromExtraction(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.log.Info("invoiceService.GenerateAccount: account created",
		zap.String("account_id", generated.AccountID.String()),
		zap.String("supplier_id", generated.SupplierID.String()),
		zap.Bool("supplier_created", generated.SupplierCreated),
		zap.Int("installments", len(generated.InstallmentIDs)),
	)
	return generated, nil
}

// checkRecord guards persistence against records that did not come through
// the validator, such as hand-edited payloads posted by reviewers.
func checkRecord(rec *extraction.Record) error {
	switch {
	case rec == nil:
		return domain.ErrInvalidRecord
	case strings.TrimSpace(rec.Description) == "":
		return fmt.Errorf("%w: description is required", domain.ErrInvalidRecord)
	case strings.TrimSpace(rec.Supplier.LegalName) == "":
		return fmt.Errorf("%w: supplier legal name is required", domain.ErrInvalidRecord)
	case !extraction.ValidTaxID(rec.Supplier.TaxID):
		return domain.ErrInvalidTaxID
	case rec.BilledParty != nil && !extraction.ValidDocumentID(rec.BilledParty.DocumentID):
		return domain.ErrInvalidDocumentID
	case !rec.TotalAmount.IsPositive():
		return fmt.Errorf("%w: total amount must be positive", domain.ErrInvalidRecord)
	case len(rec.Installments) == 0:
		return fmt.Errorf("%w: at least one installment is required", domain.ErrInvalidRecord)
	}
	return nil
}

func (s *invoiceService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.PayableAccount, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *invoiceService) ListAccounts(ctx context.Context, offset, limit int) ([]domain.PayableAccount, int, error) {
	return s.accountRepo.List(ctx, offset, limit)
}

func (s *invoiceService) ExportAccounts(ctx context.Context, w io.Writer, format domain.ExportFormat) error {
	if format != domain.ExportCSV && format != domain.ExportXLSX {
		return domain.ErrUnsupportedExport
	}

	var all []domain.PayableAccount
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.accountRepo.List(ctx, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("listing accounts: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize || len(all) >= total {
			break
		}
	}

	return export.Write(w, format, all, s.now())
}

func (s *invoiceService) ListExtractionLogs(ctx context.Context, offset, limit int) ([]domain.ExtractionLog, int, error) {
	return s.logRepo.List(ctx, offset, limit)
}
