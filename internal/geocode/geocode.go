// Package geocode resolves free-text complaint locations to coordinates.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/civicmitra/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Confidence  float64
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Result, error)
}

func BuildGeocodeQuery(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// ShouldGeocode reports whether a complaint needs coordinates looked up from its
// location text.
func ShouldGeocode(c models.Complaint) bool {
	if strings.TrimSpace(c.Location) == "" {
		return false
	}
	return c.Latitude == nil || c.Longitude == nil
}
