package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// CreateSupplierRequest represents the create supplier request body.
type CreateSupplierRequest struct {
	LegalName string  `json:"legal_name" binding:"required" example:"Agropecuária Boa Vista Ltda"`
	TradeName *string `json:"trade_name" example:"Boa Vista Agro"`
	TaxID     string  `json:"tax_id" binding:"required" example:"12.345.678/0001-90"`
}

// UpdateSupplierRequest represents the update supplier request body.
type UpdateSupplierRequest struct {
	LegalName *string `json:"legal_name" example:"Agropecuária Boa Vista S.A."`
	TradeName *string `json:"trade_name" example:"Boa Vista"`
	TaxID     *string `json:"tax_id" example:"12.345.678/0001-90"`
}

// --- Response Types ---

// PDFHealthResponse represents the extraction service status.
type PDFHealthResponse struct {
	Status        string   `json:"status" example:"healthy"`
	Service       string   `json:"service" example:"PDF Processing"`
	Timestamp     int64    `json:"timestamp" example:"1718000000"`
	LLMConfigured bool     `json:"llm_configured" example:"true"`
	Providers     []string `json:"providers" example:"gemini,claude"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
