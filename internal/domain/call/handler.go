package call

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
	"github.com/connectsaude/connect/pkg/pagination"
)

// Handler exposes call logging over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Start)
	g.GET("", h.List)
	g.GET("/ranking", h.Ranking)
	g.GET("/:id", h.Get)
	g.POST("/:id/complete", h.Complete)
}

func (h *Handler) Start(c echo.Context) error {
	var in StartInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	attendantID, err := uuid.Parse(auth.AttendantIDFromContext(c.Request().Context()))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
	}

	call, err := h.svc.Start(c.Request().Context(), attendantID, in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start call"})
	}
	return c.JSON(http.StatusCreated, call)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid call id"})
	}

	var in CompleteInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	call, err := h.svc.Complete(c.Request().Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
		case errors.Is(err, ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrAlreadyCompleted):
			return c.JSON(http.StatusConflict, map[string]string{"error": "call already completed"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to complete call"})
	}
	return c.JSON(http.StatusOK, call)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid call id"})
	}

	call, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load call"})
	}
	return c.JSON(http.StatusOK, call)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{Limit: p.Limit, Offset: p.Offset}

	if raw := c.QueryParam("attendant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid attendant_id"})
		}
		filter.AttendantID = &id
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient_id"})
		}
		filter.PatientID = &id
	}
	if raw := c.QueryParam("date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		}
		filter.Day = &day
	}

	calls, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list calls"})
	}
	if calls == nil {
		calls = []*Call{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(calls, total, p.Limit, p.Offset))
}

func (h *Handler) Ranking(c echo.Context) error {
	day := time.Now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		}
		day = parsed
	}

	entries, err := h.svc.Ranking(c.Request().Context(), day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute ranking"})
	}
	if entries == nil {
		entries = []RankingEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":    day.Format("2006-01-02"),
		"ranking": entries,
	})
}
