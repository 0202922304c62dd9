// Package mock implements the network API on top of the local dataset, so
// the whole pipeline can run without operator credentials.
package mock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/textmatch"
	"github.com/klesify/klesify-backend/pkg/core"
)

const (
	earthRadiusMeters     = 6371000
	defaultDeviceAccuracy = 500
)

// Network answers network API calls from dataset records.
type Network struct {
	data *dataset.Dataset
	now  func() time.Time
}

var _ network.Network = (*Network)(nil)

// New creates a mock network over data.
func New(data *dataset.Dataset) *Network {
	return &Network{data: data, now: time.Now}
}

func (n *Network) subscriber(phone string) (dataset.Subscriber, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return dataset.Subscriber{}, err
	}
	sub, ok := n.data.Subscriber(phone)
	if !ok {
		return dataset.Subscriber{}, fmt.Errorf("phone number %s not found in mock data: %w", phone, core.ErrNotFound)
	}
	return sub, nil
}

// CheckSimSwap reports a swap when the latest SIM change is within maxAge
// hours. Without maxAge any recorded change counts as a swap.
func (n *Network) CheckSimSwap(_ context.Context, phone string, maxAge *int) (core.SimSwapCheck, error) {
	if err := network.ValidateMaxAge(maxAge); err != nil {
		return core.SimSwapCheck{}, err
	}
	sub, err := n.subscriber(phone)
	if err != nil {
		return core.SimSwapCheck{}, err
	}

	latest := sub.Data.SimSwap.LatestSimChange
	if latest == "" {
		return core.SimSwapCheck{
			Swapped:     false,
			PhoneNumber: phone,
			Message:     "No SIM swap data available",
		}, nil
	}

	swapped := true
	if maxAge != nil {
		swapTime, err := time.Parse(time.RFC3339, latest)
		if err != nil {
			swapped = false
		} else {
			swapped = n.now().Sub(swapTime).Hours() <= float64(*maxAge)
		}
	}

	return core.SimSwapCheck{
		Swapped:         swapped,
		LatestSimChange: latest,
		PhoneNumber:     phone,
	}, nil
}

// RetrieveSimSwapDate returns the recorded SIM change timestamp.
func (n *Network) RetrieveSimSwapDate(_ context.Context, phone string) (core.SimSwapDate, error) {
	sub, err := n.subscriber(phone)
	if err != nil {
		return core.SimSwapDate{}, err
	}
	if sub.Data.SimSwap.LatestSimChange == "" {
		return core.SimSwapDate{}, fmt.Errorf("no SIM swap data available for %s: %w", phone, core.ErrNoData)
	}
	return core.SimSwapDate{LatestSimChange: sub.Data.SimSwap.LatestSimChange, PhoneNumber: phone}, nil
}

// MatchKYC compares every provided claim with the stored KYC record.
// Mismatching fields also get a similarity score.
func (n *Network) MatchKYC(_ context.Context, req core.KYCMatchRequest) (core.KYCMatchResult, error) {
	sub, err := n.subscriber(req.PhoneNumber)
	if err != nil {
		return core.KYCMatchResult{}, err
	}

	result := core.KYCMatchResult{
		PhoneNumber: req.PhoneNumber,
		Fields:      make(map[string]core.MatchValue),
	}
	for field, claimed := range req.Claims() {
		stored, ok := sub.KYCValue(field)
		switch {
		case !ok:
			result.Fields[field] = core.MatchNotAvailable
		case textmatch.Equal(claimed, stored):
			result.Fields[field] = core.MatchTrue
		default:
			result.Fields[field] = core.MatchFalse
			if result.Scores == nil {
				result.Scores = make(map[string]int)
			}
			result.Scores[field] = textmatch.Score(claimed, stored)
		}
	}
	return result, nil
}

// VerifyLocation compares the stored device position with area. A device
// outside the circle but within its own accuracy radius is a PARTIAL match.
func (n *Network) VerifyLocation(_ context.Context, phone string, area core.Area, maxAge *int) (core.LocationVerification, error) {
	if err := network.ValidateArea(&area); err != nil {
		return core.LocationVerification{}, err
	}
	sub, err := n.subscriber(phone)
	if err != nil {
		return core.LocationVerification{}, err
	}

	loc := sub.Data.Location
	if !loc.Available {
		return core.LocationVerification{
			Result:      core.VerificationUnknown,
			PhoneNumber: phone,
			Message:     "Location data not available",
		}, nil
	}

	accuracy := loc.Radius
	if accuracy <= 0 {
		accuracy = defaultDeviceAccuracy
	}
	distance := Distance(loc.Latitude, loc.Longitude, area.Center.Latitude, area.Center.Longitude)
	rounded := math.Round(distance*100) / 100
	combined := float64(area.Radius + accuracy)

	out := core.LocationVerification{
		LastLocationTime: loc.LastLocationTime,
		PhoneNumber:      phone,
		DistanceMeters:   &rounded,
	}
	switch {
	case distance <= float64(area.Radius):
		out.Result = core.VerificationTrue
	case distance <= combined:
		rate := int(100 * (combined - distance) / float64(accuracy))
		rate = max(0, min(100, rate))
		out.Result = core.VerificationPartial
		out.MatchRate = &rate
	default:
		out.Result = core.VerificationFalse
	}
	return out, nil
}

// VerifyLocationByCity matches the requested city (and country, when
// given) against the locality stored in the KYC record.
func (n *Network) VerifyLocationByCity(_ context.Context, req network.CityRequest) (core.LocationVerification, error) {
	if strings.TrimSpace(req.City) == "" {
		return core.LocationVerification{}, core.InvalidArgument("city is required")
	}
	sub, err := n.subscriber(req.Phone)
	if err != nil {
		return core.LocationVerification{}, err
	}

	storedLocality, _ := sub.KYCValue("locality")
	storedCountry, _ := sub.KYCValue("country")

	cityMatch := overlaps(req.City, storedLocality)
	countryMatch := req.Country == "" || overlaps(req.Country, storedCountry)

	result := core.VerificationFalse
	if cityMatch && countryMatch {
		result = core.VerificationTrue
	}

	loc := sub.Data.Location
	return core.LocationVerification{
		Result:           result,
		LastLocationTime: loc.LastLocationTime,
		PhoneNumber:      req.Phone,
		City:             req.City,
		StoredLocality:   storedLocality,
		Coordinates:      &core.Point{Latitude: loc.Latitude, Longitude: loc.Longitude},
	}, nil
}

// RetrieveLocation returns the stored device position.
func (n *Network) RetrieveLocation(_ context.Context, phone string, _ *int) (core.DeviceLocation, error) {
	sub, err := n.subscriber(phone)
	if err != nil {
		return core.DeviceLocation{}, err
	}
	loc := sub.Data.Location
	if !loc.Available {
		return core.DeviceLocation{}, fmt.Errorf("location data not available for %s: %w", phone, core.ErrNoData)
	}
	radius := loc.Radius
	if radius <= 0 {
		radius = defaultDeviceAccuracy
	}
	return core.DeviceLocation{
		LastLocationTime: loc.LastLocationTime,
		Area:             core.Circle(loc.Latitude, loc.Longitude, radius),
		PhoneNumber:      phone,
	}, nil
}

// overlaps reports containment in either direction after normalisation.
// An empty stored value matches anything.
func overlaps(claimed, stored string) bool {
	c, s := textmatch.Normalize(claimed), textmatch.Normalize(stored)
	return strings.Contains(s, c) || strings.Contains(c, s)
}

// Distance is the great-circle distance in meters between two points
// given in decimal degrees (haversine formula).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	phi1, phi2 := toRad(lat1), toRad(lat2)
	dPhi := toRad(lat2 - lat1)
	dLambda := toRad(lon2 - lon1)

	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusMeters
}
