// Package tableapi is a minimal client for a PostgREST-style data API:
// per-table select with column filters, optional exact counting, ordering
// and range pagination. No joins, no grouping; the emulated executor
// reconstructs relational semantics on top of it.
package tableapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Filter is one column predicate in the table API's operator syntax.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq filters a column to one value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: renderValue(value)}
}

// Gte filters a column to values >= value.
func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: "gte", Value: renderValue(value)}
}

// Lte filters a column to values <= value.
func Lte(column string, value any) Filter {
	return Filter{Column: column, Op: "lte", Value: renderValue(value)}
}

// In filters a column to membership in values.
func In(column string, values []any) Filter {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = renderListValue(v)
	}
	return Filter{Column: column, Op: "in", Value: "(" + strings.Join(parts, ",") + ")"}
}

// Is filters a boolean column to a literal.
func Is(column string, value bool) Filter {
	return Filter{Column: column, Op: "is", Value: strconv.FormatBool(value)}
}

// Order sorts the response server-side.
type Order struct {
	Column string
	Desc   bool
}

// SelectRequest describes one single-table read.
type SelectRequest struct {
	Table   string
	Columns []string
	Filters []Filter
	// Count requests an exact row count alongside (or instead of) rows.
	Count  bool
	Order  *Order
	Limit  int
	Offset int
}

// SelectResult carries the rows and, when requested, the exact count.
type SelectResult struct {
	Rows  []map[string]any
	Count int64
}

// Client talks to one table API endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
	// MaxFetchRows caps any single fetch so client-side aggregation can
	// never grow without bound.
	MaxFetchRows int
}

// New constructs a Client. timeout bounds every request end to end.
func New(baseURL, apiKey string, timeout time.Duration, maxFetchRows int, logger *zap.Logger) *Client {
	if maxFetchRows <= 0 {
		maxFetchRows = 10000
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		http:         &http.Client{Timeout: timeout},
		logger:       logger,
		MaxFetchRows: maxFetchRows,
	}
}

// Select performs one table read. The row slice preserves server order.
func (c *Client) Select(ctx context.Context, req SelectRequest) (*SelectResult, error) {
	q := url.Values{}
	if len(req.Columns) > 0 {
		q.Set("select", strings.Join(req.Columns, ","))
	} else {
		q.Set("select", "*")
	}
	for _, f := range req.Filters {
		q.Add(f.Column, f.Op+"."+f.Value)
	}
	if req.Order != nil {
		dir := "asc"
		if req.Order.Desc {
			dir = "desc"
		}
		q.Set("order", req.Order.Column+"."+dir)
	}
	limit := req.Limit
	if limit <= 0 || limit > c.MaxFetchRows {
		limit = c.MaxFetchRows
	}
	q.Set("limit", strconv.Itoa(limit))
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(req.Table), q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("table api request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("apikey", c.apiKey)
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.Count {
		httpReq.Header.Set("Prefer", "count=exact")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("table api %s: %w", req.Table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("table api %s: status %d: %s", req.Table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("table api %s: decode: %w", req.Table, err)
	}

	result := &SelectResult{Rows: rows, Count: -1}
	if req.Count {
		result.Count = parseContentRange(resp.Header.Get("Content-Range"))
		if result.Count < 0 {
			// Some deployments omit the total; fall back to row count.
			result.Count = int64(len(rows))
		}
	}

	if c.logger != nil {
		c.logger.Debug("table api select",
			zap.String("table", req.Table),
			zap.Int("rows", len(rows)),
			zap.Int64("count", result.Count),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return result, nil
}

// parseContentRange extracts the total from a "0-24/3573" style header,
// returning -1 when absent or unparseable.
func parseContentRange(h string) int64 {
	idx := strings.LastIndex(h, "/")
	if idx < 0 {
		return -1
	}
	total := h[idx+1:]
	if total == "*" || total == "" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func renderValue(v any) string {
	switch x := v.(type) {
	case time.Time:
		return x.Format("2006-01-02")
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// renderListValue quotes strings inside in.(...) lists so embedded commas
// cannot split a value.
func renderListValue(v any) string {
	if s, ok := v.(string); ok {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return renderValue(v)
}
