package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/analytics"
	"github.com/clicklens/analytics-api/internal/warehouse"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleError maps the core's error kinds to HTTP statuses: bad filters
// are the caller's fault, backend failures are upstream trouble, and an
// unsupported plan that had no executor to fall back to is advertised as
// not implemented rather than masked as an empty result.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, warehouse.ErrInvalidFilter):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, warehouse.ErrUnsupportedPlan):
		s.errorResponse(w, "query not supported by the active backend", http.StatusNotImplemented)
	case errors.Is(err, warehouse.ErrBackendQuery):
		s.logger.Error("backend query failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.errorResponse(w, "warehouse unavailable", http.StatusBadGateway)
	case errors.Is(err, context.DeadlineExceeded):
		s.errorResponse(w, "query timed out", http.StatusGatewayTimeout)
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

// requireGet rejects non-GET methods; every analytics endpoint is read-only.
func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// parseFilters reads the shared query parameters into a filter struct.
func parseFilters(r *http.Request) (analytics.Filters, error) {
	q := r.URL.Query()
	f := analytics.Filters{LinkType: q.Get("link_type")}

	start, err := parseDate(q.Get("start_date"))
	if err != nil {
		return f, err
	}
	end, err := parseDate(q.Get("end_date"))
	if err != nil {
		return f, err
	}
	f.Start, f.End = start, end
	return f, nil
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", warehouse.ErrInvalidFilter, v)
	}
	return &t, nil
}

// parsePage reads page/size with defaults and a size cap.
func parsePage(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, size := 1, defaultPageSize

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("%w: invalid page %q", warehouse.ErrInvalidFilter, v)
		}
		page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("%w: invalid size %q", warehouse.ErrInvalidFilter, v)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		size = n
	}
	return page, size, nil
}

// pathParam splits "/{key}/rest-of-path" into the key and remainder.
func pathParam(path, prefix string) (string, string) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", ""
	}
	if idx := strings.Index(rest, "/"); idx != -1 {
		return rest[:idx], rest[idx+1:]
	}
	return rest, ""
}
