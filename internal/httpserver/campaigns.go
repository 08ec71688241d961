package httpserver

import (
	"net/http"
	"net/url"
)

// handleCampaign serves every /api/v1/campaigns/{key}/... route.
func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	key, rest := pathParam(r.URL.Path, "/api/v1/campaigns/")
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
	f.CampaignKey = key

	switch rest {
	case "kpis":
		kpis, err := s.service.Overview(r.Context(), f)
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

	case "charts/utm-performance":
		dimension := r.URL.Query().Get("dimension")
		if dimension == "" {
			dimension = "source"
		}
		breakdown, err := s.service.UTMPerformance(r.Context(), f, dimension)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		s.jsonResponse(w, breakdown)

	case "tables/link-performance":
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

	default:
		http.NotFound(w, r)
	}
}
