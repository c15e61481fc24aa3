package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	maxCachedQueries    = 1024
)

// NominatimGeocoder queries an OpenStreetMap Nominatim instance. Requests are
// spaced at least MinInterval apart, as the public instance requires, and
// answers are cached by normalized query. CountryCodes, e.g. "in", restricts
// matches to those countries.
type NominatimGeocoder struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	MinInterval  time.Duration
	Client       *http.Client

	mu    sync.Mutex
	next  time.Time
	cache map[string]Result
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return Result{}, ErrNotFound
	}
	if res, ok := g.cached(key); ok {
		return res, nil
	}
	if err := g.wait(ctx); err != nil {
		return Result{}, err
	}

	places, err := g.search(ctx, query)
	if err != nil {
		return Result{}, err
	}
	res, err := firstPlace(places)
	if err != nil {
		return Result{}, err
	}

	g.mu.Lock()
	if g.cache == nil || len(g.cache) >= maxCachedQueries {
		g.cache = make(map[string]Result)
	}
	g.cache[key] = res
	g.mu.Unlock()
	return res, nil
}

func (g *NominatimGeocoder) cached(key string) (Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.cache[key]
	return res, ok
}

// wait reserves the next request slot and sleeps until it, or until ctx ends.
func (g *NominatimGeocoder) wait(ctx context.Context) error {
	interval := g.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	g.mu.Lock()
	now := time.Now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(interval)
	g.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *NominatimGeocoder) search(ctx context.Context, query string) ([]nominatimPlace, error) {
	base := g.BaseURL
	if base == "" {
		base = defaultNominatimURL
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.CountryCodes != "" {
		params.Set("countrycodes", g.CountryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	ua := g.UserAgent
	if ua == "" {
		ua = "civicmitra-backend"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nominatim: unexpected status %s", resp.Status)
	}
	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("nominatim: decode response: %w", err)
	}
	return places, nil
}

func firstPlace(places []nominatimPlace) (Result, error) {
	if len(places) == 0 {
		return Result{}, ErrNotFound
	}
	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("nominatim: bad latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("nominatim: bad longitude %q: %w", p.Lon, err)
	}
	if lat == 0 && lon == 0 && p.DisplayName == "" {
		return Result{}, ErrNotFound
	}
	return Result{Lat: lat, Lon: lon, DisplayName: p.DisplayName, Confidence: p.Importance}, nil
}
