package handler

import (
	"embed"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//go:embed templates
var templateFS embed.FS

// NewRouter wires every route of the service
func NewRouter(stage *StageHandler, cities *CityHandler) (*gin.Engine, error) {
	tmpl, err := Templates()
	if err != nil {
		return nil, fmt.Errorf("handler: failed to parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())
	r.SetHTMLTemplate(tmpl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	r.GET("/", stage.Index)
	r.GET("/stream", stage.Stream)
	r.POST("/pages/:id/viewport", stage.Viewport)
	r.POST("/pages/:id/labels/:label/click", stage.Click)

	api := r.Group("/api")
	{
		api.GET("/cities", cities.Search)
		api.GET("/cities/nearest", cities.Nearest)
		api.GET("/cities/:index", cities.Detail)
	}

	return r, nil
}

// RequestLogger logs every request through zerolog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
