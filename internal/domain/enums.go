package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf": FileTypePDF,
}

// UserRole defines the API permission level carried in access tokens.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// PaymentStatus describes an installment relative to today.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
	PaymentStatusPending PaymentStatus = "PENDING"
)

// ExportFormat selects the account export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ReviewReason explains why an invoice needs a human look.
type ReviewReason string

const (
	ReviewExtractionFailed ReviewReason = "extraction_failed"
	ReviewFallbackCategory ReviewReason = "fallback_classification"
)
