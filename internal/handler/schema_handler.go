package handler

import (
	"github.com/gin-gonic/gin"

	"aria/internal/domain"
	"aria/internal/schema"
)

// SchemaHandler serves the field schemas of the supported transaction types.
type SchemaHandler struct {
	registry *schema.Registry
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(registry *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: registry}
}

// List handles GET /api/v1/schemas
// @Summary List transaction schemas
// @Description List every supported transaction type with its fields in schema order
// @Tags schemas
// @Produce json
// @Success 200 {object} Response{data=[]schema.TypeDescription} "Schemas"
// @Router /schemas [get]
func (h *SchemaHandler) List(c *gin.Context) {
	RespondOK(c, h.registry.DescribeAll())
}

// Get handles GET /api/v1/schemas/:type
// @Summary Get a transaction schema
// @Tags schemas
// @Produce json
// @Param type path string true "Transaction type" Enums(hotel_booking, bill_payment, product_purchase)
// @Success 200 {object} Response{data=schema.TypeDescription} "Schema"
// @Failure 422 {object} ErrorResponseBody "Unknown transaction type"
// @Router /schemas/{type} [get]
func (h *SchemaHandler) Get(c *gin.Context) {
	desc, err := h.registry.Describe(domain.TransactionType(c.Param("type")))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, desc)
}
