package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"citiescrowl/internal/models"
	"citiescrowl/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CityService interface for dependency injection
type CityService interface {
	Detail(ctx context.Context, index int) (*models.CityDetail, error)
	Search(ctx context.Context, query string) ([]models.CityDetail, error)
	Nearest(ctx context.Context, lat, lon float64) (*models.CityDetail, error)
}

// CityHandler handles city lookup requests
type CityHandler struct {
	service CityService
}

// NewCityHandler creates a new city handler
func NewCityHandler(svc CityService) *CityHandler {
	return &CityHandler{service: svc}
}

// Detail handles GET /api/cities/:index requests
func (h *CityHandler) Detail(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid city index"})
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), index)
	if err != nil {
		if errors.Is(err, service.ErrCityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "city not found"})
			return
		}
		log.Error().Err(err).Int("index", index).Msg("city detail failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Search handles GET /api/cities requests
func (h *CityHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	cities, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("q", query).Msg("city search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, cities)
}

// Nearest handles GET /api/cities/nearest requests
func (h *CityHandler) Nearest(c *gin.Context) {
	lat, ok := coordinate(c, "lat")
	if !ok {
		return
	}
	lon, ok := coordinate(c, "lon")
	if !ok {
		return
	}

	city, err := h.service.Nearest(c.Request.Context(), lat, lon)
	switch {
	case errors.Is(err, service.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
	case err != nil:
		log.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("nearest city failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	case city == nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "no city loaded"})
	default:
		c.JSON(http.StatusOK, city)
	}
}

// coordinate reads a float query parameter, answering 400 itself when it is
// missing or malformed.
func coordinate(c *gin.Context, name string) (float64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter '" + name + "'"})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed query parameter '" + name + "'"})
		return 0, false
	}
	return v, true
}
