package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrSupplierNotFound    = errors.New("supplier not found")
	ErrDuplicateTaxID      = errors.New("a supplier with this CNPJ already exists")
	ErrInvalidTaxID        = errors.New("invalid CNPJ; expected NN.NNN.NNN/NNNN-NN")
	ErrInvalidDocumentID   = errors.New("invalid CPF; expected NNN.NNN.NNN-NN")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile           = errors.New("file is empty")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrExtractionFailed    = errors.New("invoice extraction failed")
	ErrInvalidRecord       = errors.New("extracted record is incomplete")
	ErrUnsupportedExport   = errors.New("unsupported export format")
)
