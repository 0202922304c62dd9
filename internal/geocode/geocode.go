// Package geocode resolves city names to coordinates with Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klesify/klesify-backend/pkg/core"
	"golang.org/x/sync/singleflight"
)

// Defaults for the public OpenStreetMap instance.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "Klesify-Backend/1.0"
	DefaultTimeout   = 10 * time.Second
)

// Config holds the client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client is a Nominatim search client. Successful lookups are cached for
// the life of the process.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]core.GeoPoint
	group singleflight.Group
}

// New creates a geocoding client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		cache:     make(map[string]core.GeoPoint),
	}
}

// Query builds the free-form search string.
func Query(city, country string) string {
	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if country == "" {
		return city
	}
	return city + ", " + country
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Country string `json:"country"`
	} `json:"address"`
}

// Geocode returns the best match for city (and optional country).
func (c *Client) Geocode(ctx context.Context, city, country string) (core.GeoPoint, error) {
	if strings.TrimSpace(city) == "" {
		return core.GeoPoint{}, core.InvalidArgument("city is required")
	}
	query := Query(city, country)
	key := strings.ToLower(query)

	c.mu.RLock()
	pt, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		pt.City = strings.TrimSpace(city)
		return pt, nil
	}

	// The shared lookup outlives any single caller; the http client
	// timeout bounds it.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.search(context.WithoutCancel(ctx), query)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.GeoPoint{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return core.GeoPoint{}, res.Err
	}
	pt = res.Val.(core.GeoPoint)

	c.mu.Lock()
	c.cache[key] = pt
	c.mu.Unlock()

	pt.City = strings.TrimSpace(city)
	return pt, nil
}

func (c *Client) search(ctx context.Context, query string) (core.GeoPoint, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("failed to create geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("geocoding failed", "query", query, "error", err)
		return core.GeoPoint{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("failed to read geocoding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("geocoding failed", "query", query, "status", resp.StatusCode)
		return core.GeoPoint{}, &core.UpstreamError{Service: "geocoding", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var results []place
	if err := json.Unmarshal(body, &results); err != nil {
		return core.GeoPoint{}, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(results) == 0 {
		c.logger.Info("city not found", "query", query)
		return core.GeoPoint{}, fmt.Errorf("city '%s' not found: %w", query, core.ErrNotFound)
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("invalid latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return core.GeoPoint{}, fmt.Errorf("invalid longitude %q: %w", first.Lon, err)
	}

	c.logger.Debug("geocoded", "query", query, "lat", lat, "lon", lon)
	return core.GeoPoint{
		Point:       core.Point{Latitude: lat, Longitude: lon},
		DisplayName: first.DisplayName,
		Country:     first.Address.Country,
	}, nil
}
