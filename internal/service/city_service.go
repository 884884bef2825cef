package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"citiescrowl/internal/models"
)

var (
	// ErrCityNotFound is returned for an index outside the record store.
	ErrCityNotFound = errors.New("city not found")
	// ErrInvalidCoordinate is returned for a latitude or longitude out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

const searchLimit = 10

// CityService answers lookups against the loaded record store.
type CityService struct {
	store *models.RecordStore
	links Links
}

// NewCityService creates a new city lookup service
func NewCityService(store *models.RecordStore, links Links) *CityService {
	return &CityService{store: store, links: links}
}

// Detail returns the panel content of the city at index
func (s *CityService) Detail(ctx context.Context, index int) (*models.CityDetail, error) {
	city, ok := s.store.Lookup(index)
	if !ok {
		return nil, fmt.Errorf("service: index %d: %w", index, ErrCityNotFound)
	}
	d := s.detail(index, city)
	return &d, nil
}

// Search finds cities whose name, kana or prefecture contains query
func (s *CityService) Search(ctx context.Context, query string) ([]models.CityDetail, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("service: query cannot be empty")
	}

	results := []models.CityDetail{}
	s.store.Each(func(i int, c models.City) bool {
		if strings.Contains(c.City, query) ||
			strings.Contains(c.CityKana, query) ||
			strings.Contains(c.Prefecture, query) ||
			strings.Contains(c.PrefectureKana, query) {
			results = append(results, s.detail(i, c))
		}
		return len(results) < searchLimit && ctx.Err() == nil
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Nearest returns the city closest to the given coordinates, or nil when
// the store is empty
func (s *CityService) Nearest(ctx context.Context, lat, lon float64) (*models.CityDetail, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("service: latitude %f: %w", lat, ErrInvalidCoordinate)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("service: longitude %f: %w", lon, ErrInvalidCoordinate)
	}

	best, bestDist := -1, math.Inf(1)
	s.store.Each(func(i int, c models.City) bool {
		if d := Haversine(lat, lon, c.Latitude, c.Longitude); d < bestDist {
			best, bestDist = i, d
		}
		return true
	})
	if best < 0 {
		return nil, nil
	}

	d := s.detail(best, s.store.Get(best))
	return &d, nil
}

func (s *CityService) detail(index int, c models.City) models.CityDetail {
	return models.CityDetail{
		Index:           index,
		Name:            StripParenthetical(c.City),
		City:            c.City,
		Prefecture:      c.Prefecture,
		PrefectureKana:  c.PrefectureKana,
		CityKana:        c.CityKana,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		MapURL:          s.links.MapURL(c.Prefecture, c.City),
		EncyclopediaURL: s.links.EncyclopediaURL(c.City),
	}
}

// Haversine calculates distance between two points in kilometers
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth radius in km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
