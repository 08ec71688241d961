package httpserver

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/analytics"
)

func (s *Server) handleAudienceGeoCountry(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	hotspots, err := s.service.GeoHotspots(r.Context(), f, "country")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, hotspots)
}

// handleAudienceGeoState ranks states by clicks, scoped to one country.
// The country comes from an explicit parameter or, when a caller IP is
// supplied and GeoIP is configured, from resolving that IP.
func (s *Server) handleAudienceGeoState(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	f.Country = r.URL.Query().Get("country")
	if f.Country == "" {
		if ip := r.URL.Query().Get("ip"); ip != "" && s.geo != nil {
			loc, err := s.geo.Resolve(ip)
			if err != nil {
				s.logger.Warn("geo resolution failed", zap.String("ip", ip), zap.Error(err))
			} else {
				f.Country = loc.Country
			}
		}
	}

	hotspots, err := s.service.GeoHotspots(r.Context(), f, "state")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, hotspots)
}

func (s *Server) handleAudienceDevice(w http.ResponseWriter, r *http.Request) {
	s.audienceBreakdown(w, r, s.service.DeviceBreakdown)
}

func (s *Server) handleAudienceBrowser(w http.ResponseWriter, r *http.Request) {
	s.audienceBreakdown(w, r, s.service.BrowserBreakdown)
}

func (s *Server) handleAudienceTimeOfDay(w http.ResponseWriter, r *http.Request) {
	s.audienceBreakdown(w, r, s.service.TimeOfDay)
}

func (s *Server) handleAudienceDayOfWeek(w http.ResponseWriter, r *http.Request) {
	s.audienceBreakdown(w, r, s.service.DayOfWeek)
}

func (s *Server) audienceBreakdown(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, f analytics.Filters) (*analytics.CountResponse, error)) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	breakdown, err := fn(r.Context(), f)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, breakdown)
}
