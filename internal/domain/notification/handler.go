package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
)

// Handler exposes the notification feed over HTTP. All routes act on
// the session attendant's notifications.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Feed)
	g.POST("/:id/read", h.MarkRead)
	g.POST("/read-all", h.MarkAllRead)
}

func (h *Handler) Feed(c echo.Context) error {
	attendantID, err := uuid.Parse(auth.AttendantIDFromContext(c.Request().Context()))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
	}

	feed, err := h.svc.Feed(c.Request().Context(), attendantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, feed)
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid notification id"})
	}

	if err := h.svc.MarkRead(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to mark notification read"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	attendantID, err := uuid.Parse(auth.AttendantIDFromContext(c.Request().Context()))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
	}

	if err := h.svc.MarkAllRead(c.Request().Context(), attendantID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to mark notifications read"})
	}
	return c.NoContent(http.StatusNoContent)
}
