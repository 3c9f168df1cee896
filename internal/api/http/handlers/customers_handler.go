package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportbase/keel/internal/ingest"
	apperrors "github.com/supportbase/keel/pkg/util"
)

// CustomersHandler exposes commerce customer lookups to operators.
type CustomersHandler struct {
	resolver ingest.CustomerResolver
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(resolver ingest.CustomerResolver) *CustomersHandler {
	return &CustomersHandler{resolver: resolver}
}

// Lookup GET /customers/lookup?phone=...
func (h *CustomersHandler) Lookup(c *fiber.Ctx) error {
	phone := c.Query("phone")
	if phone == "" {
		return apperrors.NewValidationError("phone query parameter required", nil)
	}
	result := h.resolver.Resolve(c.UserContext(), ingest.NormalizePhone(phone))
	return c.JSON(result)
}
