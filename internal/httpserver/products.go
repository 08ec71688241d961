package httpserver

import (
	"net/http"
	"net/url"
)

func (s *Server) handleProductsTable(w http.ResponseWriter, r *http.Request) {
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
	table, err := s.service.ProductPerformanceTable(r.Context(), f, page, size)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.jsonResponse(w, table)
}

// handleProduct serves /api/v1/products/{id}/... routes.
func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	id, rest := pathParam(r.URL.Path, "/api/v1/products/")
	id, _ = url.PathUnescape(id)
	if id == "" {
		http.NotFound(w, r)
		return
	}

	f, err := parseFilters(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	f.ProductID = id

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

	default:
		http.NotFound(w, r)
	}
}
