package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrofin/internal/domain"
	"agrofin/internal/export"
	"agrofin/internal/extraction"
	"agrofin/internal/service"
)

// AccountHandler handles payable account endpoints.
type AccountHandler struct {
	invoiceService service.InvoiceService
	log            *zap.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(invoiceService service.InvoiceService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{invoiceService: invoiceService, log: log}
}

// Create handles POST /api/v1/accounts
// @Summary Generate a payable account from an extracted invoice
// @Description Creates or reuses the supplier and billed party, then writes the account, its installments and classifications in one transaction.
// @Tags accounts
// @Accept json
// @Produce json
// @Param body body extraction.Record true "Validated extraction record"
// @Success 201 {object} Response{data=domain.GeneratedAccount}
// @Failure 400 {object} ErrorResponseBody "Invalid record"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var rec extraction.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	generated, err := h.invoiceService.GenerateAccount(c.Request.Context(), &rec)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondCreated(c, generated)
}

// List handles GET /api/v1/accounts
// @Summary List payable accounts
// @Tags accounts
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.PayableAccount,meta=PagMeta}
// @Security BearerAuth
// @Router /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	accounts, total, err := h.invoiceService.ListAccounts(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if accounts == nil {
		accounts = []domain.PayableAccount{}
	}
	RespondPaginated(c, accounts, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Get handles GET /api/v1/accounts/:id
// @Summary Get a payable account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} Response{data=domain.PayableAccount}
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid account ID")
		return
	}
	account, err := h.invoiceService.GetAccount(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, account)
}

// Export handles GET /api/v1/accounts/export
// @Summary Export payable accounts
// @Description One row per installment. CSV is UTF-8 with BOM.
// @Tags accounts
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Security BearerAuth
// @Router /accounts/export [get]
func (h *AccountHandler) Export(c *gin.Context) {
	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportCSV)))

	var buf bytes.Buffer
	if err := h.invoiceService.ExportAccounts(c.Request.Context(), &buf, format); err != nil {
		HandleError(c, h.log, err)
		return
	}

	filename := export.BuildFilename("contas_a_pagar", format, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// ListLogs handles GET /api/v1/extraction-logs
// @Summary List extraction outcomes
// @Tags accounts
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.ExtractionLog,meta=PagMeta}
// @Security BearerAuth
// @Router /extraction-logs [get]
func (h *AccountHandler) ListLogs(c *gin.Context) {
	offset, limit := parsePagination(c)
	logs, total, err := h.invoiceService.ListExtractionLogs(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if logs == nil {
		logs = []domain.ExtractionLog{}
	}
	RespondPaginated(c, logs, PagMeta{Total: total, Offset: offset, Limit: limit})
}
