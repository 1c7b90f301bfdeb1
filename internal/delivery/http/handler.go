package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aushadhi/client/internal/domain"
	"github.com/aushadhi/client/internal/usecase"
)

// MaxUploadSize bounds a captured image upload
const MaxUploadSize = 20 << 20

// Version is reported by the health endpoint
const Version = "1.0.0"

// Submissions is the part of the state machine the front end drives
type Submissions interface {
	Capture(img domain.ImageHandle) usecase.Ticket
	State() usecase.State
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	submissions Submissions
	previews    domain.PreviewStore
}

// NewHandler creates a new HTTP handler
func NewHandler(submissions Submissions, previews domain.PreviewStore) *Handler {
	return &Handler{submissions: submissions, previews: previews}
}

// HealthCheck returns the health status of the front end
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "aushadhi-client",
		"version": Version,
	})
}

// Capture accepts a photo under the "file" form field and starts a new
// submission session, superseding any session in flight
func (h *Handler) Capture(c *gin.Context) {
	if h.submissions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "submission pipeline not configured"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file could not be read"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file could not be read"})
		return
	}

	ticket := h.submissions.Capture(domain.NewBytesImage(header.Filename, data))
	c.JSON(http.StatusAccepted, gin.H{"session_id": ticket.ID})
}

// State returns the projected display model of the current session
func (h *Handler) State(c *gin.Context) {
	if h.submissions == nil {
		c.JSON(http.StatusOK, usecase.Project(usecase.State{}))
		return
	}
	c.JSON(http.StatusOK, usecase.Project(h.submissions.State()))
}

// Preview serves a stored preview image
func (h *Handler) Preview(c *gin.Context) {
	if h.previews == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview not found"})
		return
	}
	p, err := h.previews.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		if errors.Is(err, domain.ErrPreviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "preview not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, p.ContentType, p.Data)
}
