package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstPlace(t *testing.T) {
	res, err := firstPlace([]nominatimPlace{{
		Lat:         "18.5204",
		Lon:         "73.8567",
		DisplayName: "Pune, Maharashtra, India",
		Importance:  0.72,
	}})
	require.NoError(t, err)
	assert.Equal(t, Result{Lat: 18.5204, Lon: 73.8567, DisplayName: "Pune, Maharashtra, India", Confidence: 0.72}, res)

	_, err = firstPlace(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = firstPlace([]nominatimPlace{{Lat: "0", Lon: "0"}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = firstPlace([]nominatimPlace{{Lat: "north", Lon: "1"}})
	assert.Error(t, err)
}

func TestNominatimGeocode(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "MG Road, Pune", r.URL.Query().Get("q"))
		assert.Equal(t, "in", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "civicmitra-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"18.5167","lon":"73.8750","display_name":"MG Road, Camp, Pune","importance":0.4}]`))
	}))
	defer srv.Close()

	g := &NominatimGeocoder{BaseURL: srv.URL, UserAgent: "civicmitra-test", CountryCodes: "in", MinInterval: time.Millisecond}

	res, err := g.Geocode(context.Background(), "MG Road, Pune")
	require.NoError(t, err)
	assert.InDelta(t, 18.5167, res.Lat, 1e-9)
	assert.InDelta(t, 73.8750, res.Lon, 1e-9)

	// Whitespace and case differences hit the cache.
	_, err = g.Geocode(context.Background(), "  mg road,   PUNE ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNominatimHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := &NominatimGeocoder{BaseURL: srv.URL, MinInterval: time.Millisecond}
	_, err := g.Geocode(context.Background(), "Station Road")
	assert.ErrorContains(t, err, "429")
}

func TestNominatimWaitHonoursContext(t *testing.T) {
	g := &NominatimGeocoder{MinInterval: time.Hour}
	require.NoError(t, g.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.wait(ctx), context.DeadlineExceeded)
}

func TestGeocodeEmptyQuery(t *testing.T) {
	g := &NominatimGeocoder{}
	_, err := g.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}
