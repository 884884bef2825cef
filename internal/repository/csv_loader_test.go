package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"citiescrowl/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `北海道,札幌市,ほっかいどう,さっぽろし,43.06417,141.34694
神奈川県,横浜市,かながわけん,よこはまし,35.44778,139.6425
東京都,府中市（東京都）,とうきょうと,ふちゅうし,35.66889,139.4775
`

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestParseCities(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		skipHeader bool
		expected   []string
	}{
		{
			name:     "all rows valid",
			input:    sampleCSV,
			expected: []string{"札幌市", "横浜市", "府中市（東京都）"},
		},
		{
			name:     "first row is data",
			input:    "北海道,札幌市,ほっかいどう,さっぽろし,43.06417,141.34694\n",
			expected: []string{"札幌市"},
		},
		{
			name:     "header row is excluded by coordinate check",
			input:    "prefecture,city,prefecture_kana,city_kana,latitude,longitude\n" + sampleCSV,
			expected: []string{"札幌市", "横浜市", "府中市（東京都）"},
		},
		{
			name:       "explicit header skip",
			input:      "prefecture,city,prefecture_kana,city_kana,latitude,longitude\n" + sampleCSV,
			skipHeader: true,
			expected:   []string{"札幌市", "横浜市", "府中市（東京都）"},
		},
		{
			name:     "non numeric latitude is excluded",
			input:    "北海道,札幌市,ほっかいどう,さっぽろし,north,141.34694\n神奈川県,横浜市,かながわけん,よこはまし,35.44778,139.6425\n",
			expected: []string{"横浜市"},
		},
		{
			name:     "non finite longitude is excluded",
			input:    "北海道,札幌市,ほっかいどう,さっぽろし,43.06417,NaN\n",
			expected: []string{},
		},
		{
			name:     "wrong column count is excluded",
			input:    "北海道,札幌市,ほっかいどう,43.06417,141.34694\n神奈川県,横浜市,かながわけん,よこはまし,35.44778,139.6425\n",
			expected: []string{"横浜市"},
		},
		{
			name:     "empty text fields are excluded",
			input:    ",,,,35.0,139.0\n北海道, ,ほっかいどう,さっぽろし,43.06417,141.34694\n神奈川県,横浜市,かながわけん,よこはまし,35.44778,139.6425\n",
			expected: []string{"横浜市"},
		},
		{
			name:     "byte order mark is stripped",
			input:    "\ufeff北海道,札幌市,ほっかいどう,さっぽろし,43.06417,141.34694\n",
			expected: []string{"札幌市"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cities, err := ParseCities(strings.NewReader(tt.input), tt.skipHeader)
			require.NoError(t, err)

			names := []string{}
			for _, c := range cities {
				names = append(names, c.City)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestParseCities_Fields(t *testing.T) {
	cities, err := ParseCities(strings.NewReader(sampleCSV), false)
	require.NoError(t, err)
	require.Len(t, cities, 3)

	assert.Equal(t, models.City{
		Prefecture:     "東京都",
		City:           "府中市（東京都）",
		PrefectureKana: "とうきょうと",
		CityKana:       "ふちゅうし",
		Latitude:       35.66889,
		Longitude:      139.4775,
	}, cities[2])
	assert.Equal(t, "北海道", cities[0].Prefecture)
	assert.InDelta(t, 43.06417, cities[0].Latitude, 1e-9)
}

func TestParseCities_SyntaxError(t *testing.T) {
	_, err := ParseCities(strings.NewReader("a,\"b,c\n"), false)
	assert.Error(t, err)
}

func TestCSVLoader_LoadCities(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/city_names.csv", r.URL.Path)
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	loader := NewCSVLoader(srv.Client(), srv.URL+"/city_names.csv", WithBackOff(noWait), WithMaxTries(5))

	cities, err := loader.LoadCities(context.Background())
	require.NoError(t, err)
	assert.Len(t, cities, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCSVLoader_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	loader := NewCSVLoader(srv.Client(), srv.URL, WithBackOff(noWait), WithMaxTries(2))

	_, err := loader.LoadCities(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCSVLoader_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	loader := NewCSVLoader(srv.Client(), srv.URL, WithBackOff(noWait), WithMaxTries(5))

	_, err := loader.LoadCities(context.Background())
	assert.ErrorIs(t, err, ErrLoad)
	assert.Equal(t, int32(1), calls.Load())
}
