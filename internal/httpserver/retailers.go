package httpserver

import (
	"net/http"
	"net/url"
)

func (s *Server) handleRetailersTable(w http.ResponseWriter, r *http.Request) {
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
	table, err := s.service.RetailerPerformanceTable(r.Context(), f, page, size)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, table)
}

// handleRetailer serves /api/v1/retailers/{name}/... routes.
func (s *Server) handleRetailer(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	name, rest := pathParam(r.URL.Path, "/api/v1/retailers/")
	name, _ = url.PathUnescape(name)
	if name == "" {
		http.NotFound(w, r)
		return
	}

	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	f.RetailerName = name

	switch rest {
	case "kpis":
		kpis, err := s.service.EntityKPIs(r.Context(), f)
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

	case "tables/product-performance":
		page, size, err := parsePage(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		table, err := s.service.ProductPerformanceTable(r.Context(), f, page, size)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, table)

	default:
		http.NotFound(w, r)
	}
}
