package geocode

import (
	"testing"

	"github.com/civicmitra/backend/internal/models"
)

func TestBuildGeocodeQuery(t *testing.T) {
	q := BuildGeocodeQuery("Main St", " ", "Pune")
	if q != "Main St, Pune" {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestShouldGeocodeSkipWhenLatLonExists(t *testing.T) {
	lat := 18.52
	lon := 73.85
	c := models.Complaint{ID: "1", Location: "Main St", Latitude: &lat, Longitude: &lon}
	if ShouldGeocode(c) {
		t.Fatalf("expected geocode to be skipped when lat/lon exist")
	}
	if !ShouldGeocode(models.Complaint{Location: "Main St", Latitude: &lat}) {
		t.Fatalf("expected geocode when only one coordinate is set")
	}
	if ShouldGeocode(models.Complaint{}) {
		t.Fatalf("expected no geocode without a location")
	}
}
