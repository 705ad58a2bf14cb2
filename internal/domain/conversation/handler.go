package conversation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/connectsaude/connect/internal/platform/auth"
	"github.com/connectsaude/connect/pkg/pagination"
)

// Handler exposes conversation threads over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/by-patient/:patientID", h.GetByPatient)
	g.POST("/:id/messages", h.PostMessage)
	g.GET("/:id/messages", h.ListMessages)
	g.POST("/messages/:messageID/attachments", h.AttachFile)
	g.GET("/messages/:messageID/attachments", h.ListAttachments)
	g.PUT("/attachments/:attachmentID/transcription", h.SetTranscription)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)

	convs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list conversations"})
	}
	if convs == nil {
		convs = []*Conversation{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(convs, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	conv, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load conversation"})
	}
	return c.JSON(http.StatusOK, conv)
}

// GetByPatient returns the patient's thread, creating it if missing.
func (h *Handler) GetByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patient id"})
	}

	conv, err := h.svc.GetOrCreateByPatient(c.Request().Context(), patientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load conversation"})
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) PostMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	var in MessageInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	// Panel messages are authored by the session attendant.
	if in.AuthorRole == "" || in.AuthorRole == AuthorAttendant {
		in.AuthorRole = AuthorAttendant
		if raw := auth.AttendantIDFromContext(c.Request().Context()); raw != "" {
			if parsed, err := uuid.Parse(raw); err == nil {
				in.AttendantID = &parsed
			}
		}
	}

	m, err := h.svc.PostMessage(c.Request().Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		case errors.Is(err, ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to post message"})
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMessages(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
	}

	p := pagination.FromContext(c)
	msgs, total, err := h.svc.ListMessages(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(msgs, total, p.Limit, p.Offset))
}

func (h *Handler) AttachFile(c echo.Context) error {
	messageID, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid message id"})
	}

	var in AttachmentInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	a, err := h.svc.AttachFile(c.Request().Context(), messageID, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrMessageNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "message not found"})
		case errors.Is(err, ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to attach file"})
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAttachments(c echo.Context) error {
	messageID, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid message id"})
	}

	atts, err := h.svc.ListAttachments(c.Request().Context(), messageID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list attachments"})
	}
	if atts == nil {
		atts = []*Attachment{}
	}
	return c.JSON(http.StatusOK, atts)
}

func (h *Handler) SetTranscription(c echo.Context) error {
	attachmentID, err := uuid.Parse(c.Param("attachmentID"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid attachment id"})
	}

	var in struct {
		Transcription string `json:"transcription"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.svc.SetTranscription(c.Request().Context(), attachmentID, in.Transcription); err != nil {
		switch {
		case errors.Is(err, ErrAttachmentNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "attachment not found"})
		case errors.Is(err, ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to set transcription"})
	}
	return c.NoContent(http.StatusNoContent)
}
