package httpserver

import "net/http"

func (s *Server) handleOverviewKPIs(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	kpis, err := s.service.Overview(r.Context(), f)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, kpis)
}

func (s *Server) handleOverviewClickTrends(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if r.URL.Query().Get("breakdown") == "link_type" {
		trends, err := s.service.ClickTrendsByLinkType(r.Context(), f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, trends)
		return
	}

	trends, err := s.service.ClickTrends(r.Context(), f)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, trends)
}

func (s *Server) handleLinkTypePerformance(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	breakdown, err := s.service.LinkTypePerformance(r.Context(), f)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, breakdown)
}

func (s *Server) handleGeoHotspots(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	level := r.URL.Query().Get("level")
	if level == "" {
		level = "country"
	}
	hotspots, err := s.service.GeoHotspots(r.Context(), f, level)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, hotspots)
}
