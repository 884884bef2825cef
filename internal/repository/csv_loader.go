package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"citiescrowl/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// ErrLoad marks failures to obtain the dataset at all (network, CSV syntax,
// database). Malformed rows are skipped and never produce ErrLoad.
var ErrLoad = errors.New("dataset load failed")

const cityColumns = 6

// CSVLoader fetches the city dataset over HTTP.
type CSVLoader struct {
	client     *http.Client
	url        string
	skipHeader bool
	maxTries   uint
	backOff    func() backoff.BackOff
}

// LoaderOption customizes a CSVLoader.
type LoaderOption func(*CSVLoader)

// WithSkipHeader drops the first CSV row before parsing.
func WithSkipHeader(skip bool) LoaderOption {
	return func(l *CSVLoader) { l.skipHeader = skip }
}

// WithMaxTries bounds the number of fetch attempts.
func WithMaxTries(n uint) LoaderOption {
	return func(l *CSVLoader) { l.maxTries = n }
}

// WithBackOff replaces the retry schedule.
func WithBackOff(fn func() backoff.BackOff) LoaderOption {
	return func(l *CSVLoader) { l.backOff = fn }
}

// NewCSVLoader creates a loader for the CSV resource at url.
func NewCSVLoader(client *http.Client, url string, opts ...LoaderOption) *CSVLoader {
	l := &CSVLoader{
		client:   client,
		url:      url,
		maxTries: 5,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return b
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadCities downloads and parses the dataset, retrying transient failures.
func (l *CSVLoader) LoadCities(ctx context.Context) ([]models.City, error) {
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return l.fetch(ctx)
	},
		backoff.WithBackOff(l.backOff()),
		backoff.WithMaxTries(l.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("url", l.url).Dur("retry_in", next).Msg("dataset fetch failed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: %w: %w", ErrLoad, err)
	}

	cities, err := ParseCities(bytes.NewReader(body), l.skipHeader)
	if err != nil {
		return nil, fmt.Errorf("repository: %w: %w", ErrLoad, err)
	}
	return cities, nil
}

func (l *CSVLoader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch %s: unexpected status %d", l.url, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.url, err)
	}
	return body, nil
}

// ParseCities reads rows of prefecture, city, prefecture kana, city kana,
// latitude, longitude. Rows with the wrong column count or unparsable
// coordinates are excluded and logged; a CSV syntax error fails the load.
func ParseCities(r io.Reader, skipHeader bool) ([]models.City, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Checked per row below

	if skipHeader {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return []models.City{}, nil
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
	}

	cities := []models.City{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if line == 1 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}

		city, err := parseCity(record)
		if err != nil {
			row, _ := reader.FieldPos(0)
			log.Warn().Err(err).Int("row", row).Msg("skipping malformed dataset row")
			continue
		}
		cities = append(cities, city)
	}

	return cities, nil
}

func parseCity(record []string) (models.City, error) {
	if len(record) != cityColumns {
		return models.City{}, fmt.Errorf("invalid record length: %d, expected %d columns", len(record), cityColumns)
	}

	for i, name := range []string{"prefecture", "city", "prefecture kana", "city kana"} {
		if strings.TrimSpace(record[i]) == "" {
			return models.City{}, fmt.Errorf("empty %s", name)
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil || !finite(lat) {
		return models.City{}, fmt.Errorf("invalid latitude: %q", record[4])
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
	if err != nil || !finite(lon) {
		return models.City{}, fmt.Errorf("invalid longitude: %q", record[5])
	}

	return models.City{
		Prefecture:     record[0],
		City:           record[1],
		PrefectureKana: record[2],
		CityKana:       record[3],
		Latitude:       lat,
		Longitude:      lon,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
