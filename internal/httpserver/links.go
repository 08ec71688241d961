package httpserver

import (
	"net/http"
	"net/url"
)

func (s *Server) handleLinksKPIs(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	kpis, err := s.service.LinkKPIs(r.Context(), f)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, kpis)
}

func (s *Server) handleLinksClickTrends(w http.ResponseWriter, r *http.Request) {
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

func (s *Server) handleLinksTable(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	page, size, err := parsePage(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	table, err := s.service.LinkPerformanceTable(r.Context(), f, page, size)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, table)
}

// handleLink serves /api/v1/links/{key}/... routes.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	key, rest := pathParam(r.URL.Path, "/api/v1/links/")
	key, _ = url.PathUnescape(key)
	if key == "" {
		http.NotFound(w, r)
		return
	}

	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	f.LinkKey = key

	switch rest {
	case "kpis":
		kpis, err := s.service.LinkKPIs(r.Context(), f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, kpis)

	case "charts/click-trends":
		trends, err := s.service.ClickTrends(r.Context(), f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, trends)

	default:
		http.NotFound(w, r)
	}
}
