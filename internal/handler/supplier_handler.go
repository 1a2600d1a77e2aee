package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrofin/internal/domain"
	"agrofin/internal/port"
	"agrofin/internal/service"
)

// SupplierHandler handles supplier management endpoints.
type SupplierHandler struct {
	supplierService service.SupplierService
	log             *zap.Logger
}

// NewSupplierHandler creates a new SupplierHandler.
func NewSupplierHandler(supplierService service.SupplierService, log *zap.Logger) *SupplierHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SupplierHandler{supplierService: supplierService, log: log}
}

// Create handles POST /api/v1/suppliers
// @Summary Create a supplier
// @Tags suppliers
// @Accept json
// @Produce json
// @Param body body CreateSupplierRequest true "Supplier"
// @Success 201 {object} Response{data=domain.Supplier}
// @Failure 400 {object} ErrorResponseBody "Invalid CNPJ or missing fields"
// @Failure 409 {object} ErrorResponseBody "CNPJ already registered"
// @Security BearerAuth
// @Router /suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	var input service.CreateSupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	supplier, err := h.supplierService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondCreated(c, supplier)
}

// List handles GET /api/v1/suppliers
// @Summary List suppliers
// @Tags suppliers
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Param legal_name query string false "Filter by legal name (substring)"
// @Param trade_name query string false "Filter by trade name (substring)"
// @Param tax_id query string false "Filter by CNPJ"
// @Param include_inactive query bool false "Include deactivated suppliers"
// @Success 200 {object} Response{data=[]domain.Supplier,meta=PagMeta}
// @Security BearerAuth
// @Router /suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	includeInactive, _ := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))
	filter := port.SupplierFilter{
		LegalName:       strings.TrimSpace(c.Query("legal_name")),
		TradeName:       strings.TrimSpace(c.Query("trade_name")),
		TaxID:           strings.TrimSpace(c.Query("tax_id")),
		IncludeInactive: includeInactive,
	}

	suppliers, total, err := h.supplierService.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if suppliers == nil {
		suppliers = []domain.Supplier{}
	}
	RespondPaginated(c, suppliers, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Search handles GET /api/v1/suppliers/search
// @Summary Search active suppliers by legal or trade name
// @Tags suppliers
// @Produce json
// @Param q query string true "Search term"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.Supplier}
// @Failure 400 {object} ErrorResponseBody "Missing search term"
// @Security BearerAuth
// @Router /suppliers/search [get]
func (h *SupplierHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "q is required")
		return
	}
	offset, limit := parsePagination(c)

	suppliers, err := h.supplierService.Search(c.Request.Context(), term, offset, limit)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if suppliers == nil {
		suppliers = []domain.Supplier{}
	}
	RespondOK(c, suppliers)
}

// GetByTaxID handles GET /api/v1/suppliers/tax-id/*cnpj
// @Summary Get a supplier by CNPJ
// @Description Accepts the formatted CNPJ or its 14 digits.
// @Tags suppliers
// @Produce json
// @Param cnpj path string true "CNPJ"
// @Success 200 {object} Response{data=domain.Supplier}
// @Failure 400 {object} ErrorResponseBody "Invalid CNPJ"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /suppliers/tax-id/{cnpj} [get]
func (h *SupplierHandler) GetByTaxID(c *gin.Context) {
	taxID := normalizeTaxID(strings.TrimPrefix(c.Param("cnpj"), "/"))
	supplier, err := h.supplierService.GetByTaxID(c.Request.Context(), taxID)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, supplier)
}

// Get handles GET /api/v1/suppliers/:id
// @Summary Get a supplier
// @Tags suppliers
// @Produce json
// @Param id path string true "Supplier ID"
// @Success 200 {object} Response{data=domain.Supplier}
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /suppliers/{id} [get]
func (h *SupplierHandler) Get(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	supplier, err := h.supplierService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, supplier)
}

// Update handles PUT /api/v1/suppliers/:id
// @Summary Update a supplier
// @Tags suppliers
// @Accept json
// @Produce json
// @Param id path string true "Supplier ID"
// @Param body body UpdateSupplierRequest true "Fields to change"
// @Success 200 {object} Response{data=domain.Supplier}
// @Failure 400 {object} ErrorResponseBody "Invalid input"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Failure 409 {object} ErrorResponseBody "CNPJ already registered"
// @Security BearerAuth
// @Router /suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	var input service.UpdateSupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	supplier, err := h.supplierService.Update(c.Request.Context(), id, input)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, supplier)
}

// Delete handles DELETE /api/v1/suppliers/:id
// @Summary Deactivate a supplier
// @Tags suppliers
// @Param id path string true "Supplier ID"
// @Success 204
// @Failure 403 {object} ErrorResponseBody "Admin only"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /suppliers/{id} [delete]
func (h *SupplierHandler) Delete(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	if err := h.supplierService.Deactivate(c.Request.Context(), id); err != nil {
		HandleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reactivate handles PATCH /api/v1/suppliers/:id/reactivate
// @Summary Reactivate a supplier
// @Tags suppliers
// @Produce json
// @Param id path string true "Supplier ID"
// @Success 200 {object} Response{data=domain.Supplier}
// @Failure 403 {object} ErrorResponseBody "Admin only"
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Security BearerAuth
// @Router /suppliers/{id}/reactivate [patch]
func (h *SupplierHandler) Reactivate(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	supplier, err := h.supplierService.Reactivate(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, supplier)
}

func supplierID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid supplier ID")
		return uuid.Nil, false
	}
	return id, true
}

// normalizeTaxID formats a bare 14-digit CNPJ as NN.NNN.NNN/NNNN-NN.
// Anything else is returned trimmed.
func normalizeTaxID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) != 14 {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[0:2] + "." + s[2:5] + "." + s[5:8] + "/" + s[8:12] + "-" + s[12:14]
}
