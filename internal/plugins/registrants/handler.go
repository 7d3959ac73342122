package registrants

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/varekai/roster/internal/apperror"
)

// Handler handles HTTP requests for registrant records. Handlers are thin:
// bind, call the service, shape the response.
type Handler struct {
	service RegistrantService
}

// NewHandler creates a registrants handler with the given service.
func NewHandler(service RegistrantService) *Handler {
	return &Handler{service: service}
}

// Register processes POST /register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	reg, err := h.service.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, reg)
}

// List returns all active registrants (GET /registrants).
func (h *Handler) List(c echo.Context) error {
	out, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	// Return an empty array instead of null when there are no rows.
	if out == nil {
		out = []Registrant{}
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one registrant (GET /registrants/:id).
func (h *Handler) Get(c echo.Context) error {
	reg, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reg)
}

// Update edits a registrant's profile fields (PUT /registrants/:id).
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	reg, err := h.service.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reg)
}

// Delete removes a registrant (DELETE /registrants/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
