package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
	"github.com/connectsaude/connect/pkg/pagination"
)

// Handler exposes patient management over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/queue", h.Queue)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.UpdateContact)
	g.POST("/:id/status", h.ChangeStatus)
	g.POST("/:id/transfer", h.Transfer)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrDuplicatePhone):
			return c.JSON(http.StatusConflict, map[string]string{"error": "phone already registered"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create patient"})
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient id"})
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "patient not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load patient"})
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		Status: c.QueryParam("status"),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.QueryParam("sector_id"); raw != "" {
		sectorID, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid sector_id"})
		}
		filter.SectorID = &sectorID
	}

	patients, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list patients"})
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p.Limit, p.Offset))
}

func (h *Handler) Queue(c echo.Context) error {
	entries, err := h.svc.Queue(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load queue"})
	}
	if entries == nil {
		entries = []QueueEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"queue": entries,
		"total": len(entries),
	})
}

func (h *Handler) UpdateContact(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient id"})
	}

	var in UpdateContactInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	p, err := h.svc.UpdateContact(c.Request().Context(), id, in)
	if err != nil {
		return patientError(c, err, "failed to update patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient id"})
	}

	var in struct {
		Status  string `json:"status"`
		Version int    `json:"version"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	var attendantID *uuid.UUID
	if raw := auth.AttendantIDFromContext(c.Request().Context()); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			attendantID = &parsed
		}
	}

	p, err := h.svc.ChangeStatus(c.Request().Context(), id, in.Status, in.Version, attendantID)
	if err != nil {
		return patientError(c, err, "failed to change patient status")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient id"})
	}

	var in TransferInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	p, err := h.svc.Transfer(c.Request().Context(), id, in)
	if err != nil {
		return patientError(c, err, "failed to transfer patient")
	}
	return c.JSON(http.StatusOK, p)
}

func patientError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "patient not found"})
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrVersionConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "patient was modified concurrently"})
	case errors.Is(err, ErrDuplicatePhone):
		return c.JSON(http.StatusConflict, map[string]string{"error": "phone already registered"})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
}
