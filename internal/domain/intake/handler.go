package intake

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/domain/patient"
)

// Handler serves the public patient intake endpoint consumed by
// external marketing integrations. Authentication and rate limiting
// run as route middleware.
type Handler struct {
	patients *patient.Service
	log      zerolog.Logger
}

func NewHandler(patients *patient.Service, log zerolog.Logger) *Handler {
	return &Handler{
		patients: patients,
		log:      log.With().Str("component", "intake").Logger(),
	}
}

// RegisterRoutes mounts the intake endpoint with the given middleware
// chain (API key auth, rate limit, CORS).
func (h *Handler) RegisterRoutes(g *echo.Group, middleware ...echo.MiddlewareFunc) {
	g.POST("/pacientes/create", h.CreatePatient, middleware...)
}

// createRequest is the external wire format of the intake payload.
type createRequest struct {
	Nome         string `json:"nome"`
	Telefone     string `json:"telefone"`
	CPF          string `json:"cpf"`
	Email        string `json:"email"`
	Unidade      string `json:"unidade"`
	SetorInicial string `json:"setor_inicial"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if strings.TrimSpace(req.Nome) == "" || strings.TrimSpace(req.Telefone) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nome and telefone are required"})
	}

	in := patient.CreateInput{
		Name:  req.Nome,
		Phone: req.Telefone,
	}
	if v := strings.TrimSpace(req.CPF); v != "" {
		in.CPF = &v
	}
	if v := strings.TrimSpace(req.Email); v != "" {
		in.Email = &v
	}
	if v := strings.TrimSpace(req.Unidade); v != "" {
		in.Unit = &v
	}
	if v := strings.TrimSpace(req.SetorInicial); v != "" {
		sectorID, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "setor_inicial must be a valid sector id"})
		}
		in.SectorID = &sectorID
	}

	p, err := h.patients.Create(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, patient.ErrDuplicatePhone):
			return c.JSON(http.StatusConflict, map[string]string{"error": "telefone ja cadastrado"})
		}
		h.log.Error().Err(err).Msg("intake patient creation failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, p)
}
