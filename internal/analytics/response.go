package analytics

// Response shapes returned by the service layer and serialized verbatim by
// the HTTP handlers. Degraded propagates the emulated executor's partial
// lookup flag so callers can tell an empty answer from a broken one.

type OverviewKPIs struct {
	TotalClicks     int64   `json:"total_clicks"`
	TotalATCClicks  int64   `json:"total_atc_clicks"`
	TotalPageVisits int64   `json:"total_page_visits"`
	PageCTR         float64 `json:"page_ctr"`
	TotalLinkValue  float64 `json:"total_link_value"`
	Degraded        bool    `json:"degraded,omitempty"`
}

type LinkKPIs struct {
	TotalClicks    int64   `json:"total_clicks"`
	TotalATCClicks int64   `json:"total_atc_clicks"`
	ConversionRate float64 `json:"conversion_rate"`
	Degraded       bool    `json:"degraded,omitempty"`
}

type PageKPIs struct {
	Visits   int64   `json:"visits"`
	Clicks   int64   `json:"clicks"`
	CTR      float64 `json:"ctr"`
	Degraded bool    `json:"degraded,omitempty"`
}

type EntityKPIs struct {
	Clicks    int64 `json:"clicks"`
	ATCClicks int64 `json:"atc_clicks"`
	Degraded  bool  `json:"degraded,omitempty"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

type TrendResponse struct {
	Points   []TrendPoint `json:"points"`
	Degraded bool         `json:"degraded,omitempty"`
}

// TrendSeries is one group's trend in a broken-down chart.
type TrendSeries struct {
	Key    string       `json:"key"`
	Points []TrendPoint `json:"points"`
}

type MultiTrendResponse struct {
	Series   []TrendSeries `json:"series"`
	Degraded bool          `json:"degraded,omitempty"`
}

type BreakdownItem struct {
	Key       string `json:"key"`
	Clicks    int64  `json:"clicks"`
	ATCClicks int64  `json:"atc_clicks"`
}

type BreakdownResponse struct {
	Items    []BreakdownItem `json:"items"`
	Degraded bool            `json:"degraded,omitempty"`
}

type GeoItem struct {
	Location string `json:"location"`
	Clicks   int64  `json:"clicks"`
}

type GeoResponse struct {
	Items    []GeoItem `json:"items"`
	Degraded bool      `json:"degraded,omitempty"`
}

type CountItem struct {
	Key    string `json:"key"`
	Clicks int64  `json:"clicks"`
}

type CountResponse struct {
	Items    []CountItem `json:"items"`
	Degraded bool        `json:"degraded,omitempty"`
}

// Paginated wraps a table page in the standard envelope.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	Degraded   bool  `json:"degraded,omitempty"`
}

type LinkPerformanceRow struct {
	LinkKey        string  `json:"link_key"`
	LinkName       string  `json:"link_name"`
	ShortURL       string  `json:"short_url"`
	LinkType       string  `json:"link_type"`
	Clicks         int64   `json:"clicks"`
	ATCClicks      int64   `json:"atc_clicks"`
	ConversionRate float64 `json:"conversion_rate"`
	TotalValue     float64 `json:"total_value"`
}

type PagePerformanceRow struct {
	PageKey   string  `json:"page_key"`
	PageURL   string  `json:"page_url"`
	PageTitle string  `json:"page_title"`
	Visits    int64   `json:"visits"`
	Clicks    int64   `json:"clicks"`
	CTR       float64 `json:"ctr"`
}

type ProductPerformanceRow struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Clicks      int64  `json:"clicks"`
	ATCClicks   int64  `json:"atc_clicks"`
}

type RetailerPerformanceRow struct {
	RetailerName string `json:"retailer_name"`
	Clicks       int64  `json:"clicks"`
	ATCClicks    int64  `json:"atc_clicks"`
}
