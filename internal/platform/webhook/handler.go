package webhook

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/pkg/pagination"
)

// Handler exposes webhook endpoint management over HTTP.
type Handler struct {
	manager *Manager
}

// NewHandler creates a Handler backed by the given manager.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes binds the webhook management routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Register)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
	g.GET("/:id/deliveries", h.Deliveries)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.POST("/deliveries/:id/retry", h.RetryDelivery)
}

// redact returns a copy of ep without the secret. Secrets stay
// server-side after registration; the store's copy must not be touched.
func redact(ep *Endpoint) *Endpoint {
	out := *ep
	out.Secret = ""
	return &out
}

type registerRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

// Register handles POST /webhooks.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ep, err := h.manager.Register(c.Request().Context(), req.URL, req.Secret, req.Events)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ep)
}

// List handles GET /webhooks.
func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	eps, total, err := h.manager.store.ListEndpoints(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list endpoints")
	}
	redacted := make([]*Endpoint, len(eps))
	for i, ep := range eps {
		redacted[i] = redact(ep)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(redacted, total, p.Limit, p.Offset))
}

// Get handles GET /webhooks/:id.
func (h *Handler) Get(c echo.Context) error {
	ep, err := h.manager.store.GetEndpoint(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.JSON(http.StatusOK, redact(ep))
}

// Update handles PUT /webhooks/:id.
func (h *Handler) Update(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ep, err := h.manager.Update(c.Request().Context(), c.Param("id"), req.URL, req.Secret, req.Events)
	if err != nil {
		if errors.Is(err, ErrEndpointNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, redact(ep))
}

// Delete handles DELETE /webhooks/:id.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.manager.store.DeleteEndpoint(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// Test handles POST /webhooks/:id/test.
func (h *Handler) Test(c echo.Context) error {
	d, err := h.manager.Test(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEndpointNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

// Deliveries handles GET /webhooks/:id/deliveries.
func (h *Handler) Deliveries(c echo.Context) error {
	p := pagination.FromContext(c)
	logs, total, err := h.manager.Deliveries(c.Request().Context(), c.Param("id"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list deliveries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(logs, total, p.Limit, p.Offset))
}

// Pause handles POST /webhooks/:id/pause.
func (h *Handler) Pause(c echo.Context) error {
	if err := h.manager.Pause(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "paused"})
}

// Resume handles POST /webhooks/:id/resume.
func (h *Handler) Resume(c echo.Context) error {
	if err := h.manager.Resume(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "active"})
}

// RetryDelivery handles POST /webhooks/deliveries/:id/retry.
func (h *Handler) RetryDelivery(c echo.Context) error {
	d, err := h.manager.Retry(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrDeliveryNotFound) || errors.Is(err, ErrEndpointNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}
