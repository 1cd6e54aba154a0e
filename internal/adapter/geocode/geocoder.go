// Package geocode implements the Geocoder contract against the Nominatim
// and Google geocoding HTTP APIs.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alemudanse/dispatch/internal/interfaces"
)

const requestTimeout = 12 * time.Second

// New returns the geocoder for the configured provider.
func New(provider, apiKey string) (interfaces.Geocoder, error) {
	client := &http.Client{Timeout: requestTimeout}
	switch provider {
	case "nominatim", "":
		return &Nominatim{client: client}, nil
	case "google":
		if apiKey == "" {
			return nil, fmt.Errorf("google geocoding requires an API key")
		}
		return &Google{client: client, apiKey: apiKey}, nil
	}
	return nil, fmt.Errorf("unknown geocoding provider %q", provider)
}

// Nominatim queries the public OpenStreetMap geocoder. The service asks for
// a descriptive User-Agent and caps request rates; the backfill sweep
// already paces requests well below the limit.
type Nominatim struct {
	client *http.Client
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (*interfaces.LatLng, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://nominatim.openstreetmap.org/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "dispatch-geocoder/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in nominatim response: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in nominatim response: %w", err)
	}
	return &interfaces.LatLng{Lat: lat, Lng: lng}, nil
}

// Google queries the Google Maps geocoding API.
type Google struct {
	client *http.Client
	apiKey string
}

func (g *Google) Geocode(ctx context.Context, address string) (*interfaces.LatLng, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://maps.googleapis.com/maps/api/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google geocode returned status %d", resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode google geocode response: %w", err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, fmt.Errorf("google geocode status %s", payload.Status)
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}

	loc := payload.Results[0].Geometry.Location
	return &interfaces.LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
}
