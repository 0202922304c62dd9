// Package orange implements the network API against the Orange CAMARA
// playground.
package orange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/pkg/core"
)

// DefaultBaseURL is the CAMARA playground API root.
const DefaultBaseURL = "https://api.orange.com/camara/playground/api"

const (
	simSwapCheckPath     = "/sim-swap/v1/check"
	simSwapDatePath      = "/sim-swap/v1/retrieve-date"
	kycMatchPath         = "/kyc-match/v0.2/match"
	locationVerifyPath   = "/location-verification/v1/verify"
	locationRetrievePath = "/location-retrieval/v0.3/retrieve"
)

// Geocoder turns a city name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (core.GeoPoint, error)
}

// Config holds the client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the CAMARA APIs with a bearer token from a TokenSource.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *TokenSource
	geocoder Geocoder
	logger   *slog.Logger
}

var _ network.Network = (*Client)(nil)

// New creates a CAMARA client.
func New(cfg Config, tokens *TokenSource, geocoder Geocoder, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		http:     &http.Client{Timeout: cfg.Timeout},
		tokens:   tokens,
		geocoder: geocoder,
		logger:   logger,
	}
}

type payload struct {
	contentType string
	body        []byte
}

func jsonPayload(v any) (payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return payload{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	return payload{contentType: "application/json", body: b}, nil
}

func formPayload(v url.Values) payload {
	return payload{contentType: "application/x-www-form-urlencoded", body: []byte(v.Encode())}
}

// post sends p to path and decodes the JSON answer into out. A 401 clears
// the cached token and retries once.
func (c *Client) post(ctx context.Context, service, path string, p payload, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", service, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(p.body))
		if err != nil {
			return fmt.Errorf("%s: failed to create request: %w", service, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", p.contentType)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: request failed: %w", service, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%s: failed to read response: %w", service, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Warn("access token rejected, refreshing", "service", service)
			c.tokens.Clear()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error("network API call failed", "service", service, "status", resp.StatusCode, "body", string(body))
			return &core.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: failed to parse response: %w", service, err)
		}
		return nil
	}
	return &core.UpstreamError{Service: service, StatusCode: http.StatusUnauthorized}
}

// CheckSimSwap calls sim-swap/check.
func (c *Client) CheckSimSwap(ctx context.Context, phone string, maxAge *int) (core.SimSwapCheck, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return core.SimSwapCheck{}, err
	}
	if err := network.ValidateMaxAge(maxAge); err != nil {
		return core.SimSwapCheck{}, err
	}

	form := url.Values{"phoneNumber": {phone}}
	if maxAge != nil {
		form.Set("maxAge", strconv.Itoa(*maxAge))
	}

	var resp struct {
		Swapped bool `json:"swapped"`
	}
	if err := c.post(ctx, "sim-swap", simSwapCheckPath, formPayload(form), &resp); err != nil {
		return core.SimSwapCheck{}, err
	}
	c.logger.Debug("sim swap checked", "phone", phone, "swapped", resp.Swapped)
	return core.SimSwapCheck{Swapped: resp.Swapped, PhoneNumber: phone}, nil
}

// RetrieveSimSwapDate calls sim-swap/retrieve-date.
func (c *Client) RetrieveSimSwapDate(ctx context.Context, phone string) (core.SimSwapDate, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return core.SimSwapDate{}, err
	}
	p, err := jsonPayload(map[string]string{"phoneNumber": phone})
	if err != nil {
		return core.SimSwapDate{}, err
	}
	var resp struct {
		LatestSimChange *string `json:"latestSimChange"`
	}
	if err := c.post(ctx, "sim-swap", simSwapDatePath, p, &resp); err != nil {
		return core.SimSwapDate{}, err
	}
	if resp.LatestSimChange == nil || *resp.LatestSimChange == "" {
		return core.SimSwapDate{}, fmt.Errorf("no SIM swap date for %s: %w", phone, core.ErrNoData)
	}
	return core.SimSwapDate{LatestSimChange: *resp.LatestSimChange, PhoneNumber: phone}, nil
}

// MatchKYC calls kyc-match/match with only the provided fields.
func (c *Client) MatchKYC(ctx context.Context, req core.KYCMatchRequest) (core.KYCMatchResult, error) {
	if err := network.ValidatePhone(req.PhoneNumber); err != nil {
		return core.KYCMatchResult{}, err
	}
	p, err := jsonPayload(req)
	if err != nil {
		return core.KYCMatchResult{}, err
	}
	var raw map[string]any
	if err := c.post(ctx, "kyc-match", kycMatchPath, p, &raw); err != nil {
		return core.KYCMatchResult{}, err
	}
	return parseKYCResponse(req.PhoneNumber, raw), nil
}

// parseKYCResponse folds "<field>Match" and "<field>MatchScore" keys into
// a KYCMatchResult.
func parseKYCResponse(phone string, raw map[string]any) core.KYCMatchResult {
	result := core.KYCMatchResult{PhoneNumber: phone, Fields: make(map[string]core.MatchValue)}
	for key, v := range raw {
		switch {
		case strings.HasSuffix(key, "MatchScore"):
			if f, ok := v.(float64); ok {
				if result.Scores == nil {
					result.Scores = make(map[string]int)
				}
				result.Scores[strings.TrimSuffix(key, "MatchScore")] = int(f)
			}
		case strings.HasSuffix(key, "Match"):
			field := strings.TrimSuffix(key, "Match")
			switch t := v.(type) {
			case string:
				result.Fields[field] = core.MatchValue(strings.ToLower(t))
			case bool:
				result.Fields[field] = core.MatchValue(strconv.FormatBool(t))
			}
		}
	}
	return result
}

type device struct {
	PhoneNumber string `json:"phoneNumber"`
}

// VerifyLocation calls location-verification/verify.
func (c *Client) VerifyLocation(ctx context.Context, phone string, area core.Area, maxAge *int) (core.LocationVerification, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return core.LocationVerification{}, err
	}
	if err := network.ValidateArea(&area); err != nil {
		return core.LocationVerification{}, err
	}
	p, err := jsonPayload(struct {
		Device device    `json:"device"`
		Area   core.Area `json:"area"`
		MaxAge *int      `json:"maxAge,omitempty"`
	}{device{phone}, area, maxAge})
	if err != nil {
		return core.LocationVerification{}, err
	}

	var out core.LocationVerification
	if err := c.post(ctx, "location-verification", locationVerifyPath, p, &out); err != nil {
		return core.LocationVerification{}, err
	}
	out.PhoneNumber = phone
	return out, nil
}

// VerifyLocationByCity geocodes the city and verifies the device against
// a circle around it.
func (c *Client) VerifyLocationByCity(ctx context.Context, req network.CityRequest) (core.LocationVerification, error) {
	if strings.TrimSpace(req.City) == "" {
		return core.LocationVerification{}, core.InvalidArgument("city is required")
	}
	if c.geocoder == nil {
		return core.LocationVerification{}, fmt.Errorf("%w: no geocoder", core.ErrNotConfigured)
	}
	place, err := c.geocoder.Geocode(ctx, req.City, req.Country)
	if err != nil {
		return core.LocationVerification{}, fmt.Errorf("could not find coordinates for city %s: %w: %w", req.City, core.ErrGeocoding, err)
	}

	out, err := c.VerifyLocation(ctx, req.Phone, core.Circle(place.Latitude, place.Longitude, req.Radius), req.MaxAge)
	if err != nil {
		return core.LocationVerification{}, err
	}
	out.City = req.City
	pt := place.Point
	out.Coordinates = &pt
	return out, nil
}

// RetrieveLocation calls location-retrieval/retrieve.
func (c *Client) RetrieveLocation(ctx context.Context, phone string, maxAge *int) (core.DeviceLocation, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return core.DeviceLocation{}, err
	}
	p, err := jsonPayload(struct {
		Device device `json:"device"`
		MaxAge *int   `json:"maxAge,omitempty"`
	}{device{phone}, maxAge})
	if err != nil {
		return core.DeviceLocation{}, err
	}
	var out core.DeviceLocation
	if err := c.post(ctx, "location-retrieval", locationRetrievePath, p, &out); err != nil {
		return core.DeviceLocation{}, err
	}
	out.PhoneNumber = phone
	return out, nil
}
