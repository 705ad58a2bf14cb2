package attendant

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
)

// AuthHandler serves the attendant login flow.
type AuthHandler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewAuthHandler(svc *Service, issuer *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{svc: svc, issuer: issuer}
}

// RegisterPublicRoutes mounts the unauthenticated login endpoint.
func (h *AuthHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
}

// RegisterRoutes mounts endpoints that require a session token.
func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	Attendant *Attendant `json:"attendant"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	a, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}

	token, err := h.issuer.Issue(a.ID, a.Name, a.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, Attendant: a})
}

func (h *AuthHandler) Me(c echo.Context) error {
	idStr := auth.AttendantIDFromContext(c.Request().Context())
	id, err := uuid.Parse(idStr)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
	}

	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "attendant not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load session"})
	}
	return c.JSON(http.StatusOK, a)
}
