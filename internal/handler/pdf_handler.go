package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrofin/internal/service"
)

// multipartOverhead is added to the file limit to allow for form boundaries and headers.
const multipartOverhead = 1 << 20

// PDFHandler handles invoice upload and processing endpoints.
type PDFHandler struct {
	invoiceService service.InvoiceService
	providers      []string
	maxFileBytes   int64
	log            *zap.Logger
}

// NewPDFHandler creates a new PDFHandler. providers names the configured
// language model providers, in fallback order.
func NewPDFHandler(invoiceService service.InvoiceService, providers []string, maxFileBytes int64, log *zap.Logger) *PDFHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFHandler{
		invoiceService: invoiceService,
		providers:      providers,
		maxFileBytes:   maxFileBytes,
		log:            log,
	}
}

// Upload handles POST /api/v1/pdf/upload
// @Summary Upload and process an invoice PDF
// @Description Extracts invoice data with a language model and classifies the expense. Pipeline failures are reported with success=false and HTTP 200.
// @Tags pdf
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Invoice PDF (max 10MB)"
// @Success 200 {object} service.InvoiceResult "Pipeline result"
// @Failure 400 {object} ErrorResponseBody "Missing, empty or non-PDF file"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Security BearerAuth
// @Router /pdf/upload [post]
func (h *PDFHandler) Upload(c *gin.Context) {
	if h.maxFileBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	filename := header.Filename
	if filename == "" {
		filename = "upload.pdf"
	}

	result, err := h.invoiceService.Process(c.Request.Context(), service.UploadInput{
		Filename:    filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health handles GET /api/v1/pdf/health
// @Summary Extraction service status
// @Tags pdf
// @Produce json
// @Success 200 {object} PDFHealthResponse
// @Security BearerAuth
// @Router /pdf/health [get]
func (h *PDFHandler) Health(c *gin.Context) {
	status := "healthy"
	if len(h.providers) == 0 {
		status = "degraded"
	}
	c.JSON(http.StatusOK, PDFHealthResponse{
		Status:        status,
		Service:       "PDF Processing",
		Timestamp:     time.Now().Unix(),
		LLMConfigured: len(h.providers) > 0,
		Providers:     h.providers,
	})
}
