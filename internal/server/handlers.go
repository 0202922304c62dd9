package server

import (
	"net/http"
	"strings"

	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/pkg/core"
)

type simSwapRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	MaxAge      *int   `json:"maxAge,omitempty"`
}

type locationRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Radius      int     `json:"radius,omitempty"`
	MaxAge      *int    `json:"maxAge,omitempty"`
}

type cityRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	City        string `json:"city"`
	Country     string `json:"country,omitempty"`
	Radius      int    `json:"radius,omitempty"`
	MaxAge      *int   `json:"maxAge,omitempty"`
}

func (s *Server) handleSimSwapCheck(w http.ResponseWriter, r *http.Request) {
	var req simSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.cfg.Network.CheckSimSwap(r.Context(), req.PhoneNumber, req.MaxAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSimSwapDate(w http.ResponseWriter, r *http.Request) {
	var req simSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.cfg.Network.RetrieveSimSwapDate(r.Context(), req.PhoneNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleKYCMatch(w http.ResponseWriter, r *http.Request) {
	var req core.KYCMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.cfg.Network.MatchKYC(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		core.KYCMatchResult
		OverallScore int `json:"overall_match_score"`
	}{out, out.OverallScore()})
}

func (s *Server) handleLocationVerify(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	area := core.Circle(req.Latitude, req.Longitude, req.Radius)
	out, err := s.cfg.Network.VerifyLocation(r.Context(), req.PhoneNumber, area, req.MaxAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLocationVerifyByCity(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	radius := req.Radius
	if radius == 0 {
		radius = network.DefaultRadius
	}
	out, err := s.cfg.Network.VerifyLocationByCity(r.Context(), network.CityRequest{
		Phone:   req.PhoneNumber,
		City:    req.City,
		Country: req.Country,
		Radius:  radius,
		MaxAge:  req.MaxAge,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLocationRetrieve(w http.ResponseWriter, r *http.Request) {
	var req simSwapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.cfg.Network.RetrieveLocation(r.Context(), req.PhoneNumber, req.MaxAge)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Geocoder == nil {
		s.writeError(w, r, notConfigured("geocoding"))
		return
	}
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		s.writeError(w, r, core.InvalidArgument("city query parameter is required"))
		return
	}
	out, err := s.cfg.Geocoder.Geocode(r.Context(), city, r.URL.Query().Get("country"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
