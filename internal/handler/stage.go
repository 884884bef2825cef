package handler

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"citiescrowl/internal/models"
	"citiescrowl/internal/page"
	"citiescrowl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Spawner drives the labels of one page.
type Spawner interface {
	Ready() error
	Run(ctx context.Context, doc service.Document) error
}

// StageHandler serves the floating city page and its event stream
type StageHandler struct {
	registry  *page.Registry
	spawner   Spawner
	heartbeat time.Duration
}

// NewStageHandler creates a new stage handler
func NewStageHandler(registry *page.Registry, spawner Spawner, heartbeat time.Duration) *StageHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StageHandler{registry: registry, spawner: spawner, heartbeat: heartbeat}
}

// Index handles GET / requests
func (h *StageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Layout": h.registry.Layout(),
	})
}

// Stream handles GET /stream requests. Each connection owns one page; the
// page's spawn loop and pending removals end with the connection.
func (h *StageHandler) Stream(c *gin.Context) {
	if err := h.spawner.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "city dataset not loaded"})
		return
	}

	p, err := h.registry.Open()
	if err != nil {
		log.Error().Err(err).Msg("cannot open page")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer h.registry.Close(p.ID())

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	logger := log.With().Str("page", p.ID()).Logger()
	logger.Info().Msg("page opened")

	go func() {
		err := h.spawner.Run(ctx, p)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("spawn loop stopped")
			cancel()
		}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(models.EventHello, models.Event{Type: models.EventHello, Page: p.ID()})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		case <-ctx.Done():
			return false
		}
	})

	logger.Info().Msg("page closed")
}

type viewportRequest struct {
	Height *int `json:"height" binding:"required,min=0"`
}

// Viewport handles POST /pages/:id/viewport requests
func (h *StageHandler) Viewport(c *gin.Context) {
	p, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport height"})
		return
	}

	if err := p.SetViewportHeight(*req.Height); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "page closed"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Click handles POST /pages/:id/labels/:label/click requests
func (h *StageHandler) Click(c *gin.Context) {
	p, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}

	err := p.Click(c.Request.Context(), c.Param("label"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, page.ErrNoSuchLabel):
		c.JSON(http.StatusNotFound, gin.H{"error": "label not found"})
	case errors.Is(err, page.ErrClosed):
		c.JSON(http.StatusGone, gin.H{"error": "page closed"})
	default:
		log.Warn().Err(err).Str("page", p.ID()).Msg("label activation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
