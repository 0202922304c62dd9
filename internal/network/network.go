// Package network defines the telecom network API surface used to verify
// callers: SIM swap, KYC match and device location.
package network

import (
	"context"

	"github.com/klesify/klesify-backend/pkg/core"
)

// Parameter limits shared by every backend.
const (
	DefaultRadius = 2000
	MinRadius     = 2000
	MaxRadius     = 200000

	MinSimSwapMaxAge = 1
	MaxSimSwapMaxAge = 2400
)

// Network is implemented by every telecom backend.
type Network interface {
	// CheckSimSwap reports whether the SIM changed within maxAge hours.
	// A nil maxAge lets the backend pick its default window.
	CheckSimSwap(ctx context.Context, phone string, maxAge *int) (core.SimSwapCheck, error)
	// RetrieveSimSwapDate returns the timestamp of the latest SIM change.
	RetrieveSimSwapDate(ctx context.Context, phone string) (core.SimSwapDate, error)
	// MatchKYC compares identity claims with the operator's records.
	MatchKYC(ctx context.Context, req core.KYCMatchRequest) (core.KYCMatchResult, error)
	// VerifyLocation checks whether the device is inside area.
	VerifyLocation(ctx context.Context, phone string, area core.Area, maxAge *int) (core.LocationVerification, error)
	// VerifyLocationByCity checks whether the device is in the named city.
	VerifyLocationByCity(ctx context.Context, req CityRequest) (core.LocationVerification, error)
	// RetrieveLocation returns where the device was last seen.
	RetrieveLocation(ctx context.Context, phone string, maxAge *int) (core.DeviceLocation, error)
}

// CityRequest asks whether a device is in a named city.
type CityRequest struct {
	Phone   string
	City    string
	Country string
	Radius  int
	MaxAge  *int
}

// ValidateMaxAge checks a SIM swap window in hours.
func ValidateMaxAge(maxAge *int) error {
	if maxAge == nil {
		return nil
	}
	if *maxAge < MinSimSwapMaxAge || *maxAge > MaxSimSwapMaxAge {
		return core.InvalidArgument("max_age must be between 1 and 2400 hours")
	}
	return nil
}

// ValidateArea checks coordinates and radius, filling the default radius
// when it is zero.
func ValidateArea(area *core.Area) error {
	if area.Center.Latitude < -90 || area.Center.Latitude > 90 {
		return core.InvalidArgument("latitude must be between -90 and 90")
	}
	if area.Center.Longitude < -180 || area.Center.Longitude > 180 {
		return core.InvalidArgument("longitude must be between -180 and 180")
	}
	if area.Radius == 0 {
		area.Radius = DefaultRadius
	}
	if area.Radius < MinRadius || area.Radius > MaxRadius {
		return core.InvalidArgument("radius must be between 2,000 and 200,000 meters")
	}
	if area.AreaType == "" {
		area.AreaType = "CIRCLE"
	}
	return nil
}

// ValidatePhone rejects an empty phone number.
func ValidatePhone(phone string) error {
	if phone == "" {
		return core.InvalidArgument("phone number is required")
	}
	return nil
}
