package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/pkg/pagination"
)

// APIKeyHandler exposes API key administration over HTTP. The raw key
// material appears exactly once, in the create and rotate responses.
type APIKeyHandler struct {
	manager *APIKeyManager
}

func NewAPIKeyHandler(manager *APIKeyManager) *APIKeyHandler {
	return &APIKeyHandler{manager: manager}
}

func (h *APIKeyHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/rotate", h.Rotate)
	g.DELETE("/:id", h.Revoke)
}

type createKeyRequest struct {
	Name      string `json:"name"`
	RateLimit int    `json:"rate_limit"`
}

type createKeyResponse struct {
	Key    *APIKey `json:"key"`
	RawKey string  `json:"raw_key"`
}

func (h *APIKeyHandler) Create(c echo.Context) error {
	var req createKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	if req.RateLimit < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "rate_limit cannot be negative"})
	}

	key, rawKey, err := h.manager.GenerateKey(c.Request().Context(), req.Name, req.RateLimit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create key"})
	}
	return c.JSON(http.StatusCreated, createKeyResponse{Key: key, RawKey: rawKey})
}

func (h *APIKeyHandler) List(c echo.Context) error {
	p := pagination.FromContext(c)

	keys, total, err := h.manager.ListKeys(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list keys"})
	}
	if keys == nil {
		keys = []*APIKey{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(keys, total, p.Limit, p.Offset))
}

func (h *APIKeyHandler) Get(c echo.Context) error {
	key, err := h.manager.GetKey(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "key not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load key"})
	}
	return c.JSON(http.StatusOK, key)
}

func (h *APIKeyHandler) Rotate(c echo.Context) error {
	key, rawKey, err := h.manager.RotateKey(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "key not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to rotate key"})
	}
	return c.JSON(http.StatusOK, createKeyResponse{Key: key, RawKey: rawKey})
}

func (h *APIKeyHandler) Revoke(c echo.Context) error {
	if err := h.manager.RevokeKey(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "key not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to revoke key"})
	}
	return c.NoContent(http.StatusNoContent)
}
