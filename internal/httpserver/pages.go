package httpserver

import (
	"net/http"
	"net/url"
)

func (s *Server) handlePagesTable(w http.ResponseWriter, r *http.Request) {
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
	table, err := s.service.PagePerformanceTable(r.Context(), f, page, size)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, table)
}

// handlePage serves /api/v1/pages/{key}/... routes.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	key, rest := pathParam(r.URL.Path, "/api/v1/pages/")
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
	f.PageKey = key

	switch rest {
	case "kpis":
		kpis, err := s.service.PageKPIs(r.Context(), f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, kpis)

	case "charts/visit-trends":
		trends, err := s.service.VisitTrends(r.Context(), f)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, trends)

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
