package dashboard

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes the dashboard snapshot over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/metrics", h.Metrics)
}

func (h *Handler) Metrics(c echo.Context) error {
	day := time.Now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		}
		day = parsed
	}

	metrics, err := h.svc.Metrics(c.Request().Context(), day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute metrics"})
	}
	return c.JSON(http.StatusOK, metrics)
}
