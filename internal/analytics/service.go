package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/warehouse"
)

// PlanExecutor runs one built plan. The executor.Selector satisfies this;
// tests substitute spies.
type PlanExecutor interface {
	Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error)
}

// Service owns the analytics read operations: it builds plans from request
// filters, hands them to the executor and shapes the normalized results
// into response types.
type Service struct {
	exec   PlanExecutor
	logger *zap.Logger
}

func NewService(exec PlanExecutor, logger *zap.Logger) *Service {
	return &Service{exec: exec, logger: logger}
}

// Filters narrows a query to entities and/or a date window. The zero value
// means warehouse-wide. Entity filters bind their parameter positions
// before the date bounds, in the field order below, so positions depend
// only on which filters are present.
type Filters struct {
	CampaignKey  string
	LinkKey      string
	LinkType     string
	PageKey      string
	ProductID    string
	RetailerName string
	Country      string
	State        string
	Start        *time.Time
	End          *time.Time
}

func (f Filters) set() *warehouse.FilterSet {
	fs := &warehouse.FilterSet{}
	if f.CampaignKey != "" {
		fs.WithEquality(&warehouse.DimCampaign, "campaign_natural_key", f.CampaignKey)
	}
	if f.LinkKey != "" {
		fs.WithEquality(&warehouse.DimLink, "link_natural_key", f.LinkKey)
	}
	if f.LinkType != "" {
		fs.WithEquality(&warehouse.DimLink, "link_type_name", f.LinkType)
	}
	if f.PageKey != "" {
		fs.WithEquality(&warehouse.DimPage, "page_natural_key", f.PageKey)
	}
	if f.ProductID != "" {
		fs.WithEquality(&warehouse.DimProduct, "product_id", f.ProductID)
	}
	if f.RetailerName != "" {
		fs.WithEquality(&warehouse.DimRetailer, "retailer_name", f.RetailerName)
	}
	if f.Country != "" {
		fs.WithEquality(&warehouse.DimLocation, "country_name", f.Country)
	}
	if f.State != "" {
		fs.WithEquality(&warehouse.DimLocation, "state_name", f.State)
	}
	fs.WithDates(f.Start, f.End)
	return fs
}

func (s *Service) runScalar(ctx context.Context, t *warehouse.Template, fs *warehouse.FilterSet) (float64, bool, error) {
	plan, err := warehouse.Build(t, fs)
	if err != nil {
		return 0, false, err
	}
	res, err := s.exec.Execute(ctx, plan)
	if err != nil {
		return 0, false, err
	}
	return res.Scalar, res.Degraded, nil
}

func (s *Service) runRows(ctx context.Context, t *warehouse.Template, fs *warehouse.FilterSet) ([]warehouse.Row, bool, error) {
	plan, err := warehouse.Build(t, fs)
	if err != nil {
		return nil, false, err
	}
	res, err := s.exec.Execute(ctx, plan)
	if err != nil {
		return nil, false, err
	}
	return res.Rows, res.Degraded, nil
}

// Overview computes the headline KPIs, warehouse-wide or narrowed to one
// campaign by the caller's filters.
func (s *Service) Overview(ctx context.Context, f Filters) (*OverviewKPIs, error) {
	out := &OverviewKPIs{}
	for _, q := range []struct {
		tmpl *warehouse.Template
		dst  func(v float64)
	}{
		{TotalClicks, func(v float64) { out.TotalClicks = int64(v) }},
		{TotalATCClicks, func(v float64) { out.TotalATCClicks = int64(v) }},
		{TotalPageVisits, func(v float64) { out.TotalPageVisits = int64(v) }},
		{PageCTR, func(v float64) { out.PageCTR = v }},
		{TotalLinkValue, func(v float64) { out.TotalLinkValue = v }},
	} {
		v, degraded, err := s.runScalar(ctx, q.tmpl, f.set())
		if err != nil {
			return nil, err
		}
		q.dst(v)
		out.Degraded = out.Degraded || degraded
	}
	return out, nil
}

// LinkKPIs computes per-link click totals and conversion rate.
func (s *Service) LinkKPIs(ctx context.Context, f Filters) (*LinkKPIs, error) {
	out := &LinkKPIs{}
	for _, q := range []struct {
		tmpl *warehouse.Template
		dst  func(v float64)
	}{
		{TotalClicks, func(v float64) { out.TotalClicks = int64(v) }},
		{TotalATCClicks, func(v float64) { out.TotalATCClicks = int64(v) }},
		{ConversionRate, func(v float64) { out.ConversionRate = v }},
	} {
		v, degraded, err := s.runScalar(ctx, q.tmpl, f.set())
		if err != nil {
			return nil, err
		}
		q.dst(v)
		out.Degraded = out.Degraded || degraded
	}
	return out, nil
}

// PageKPIs computes per-page visits, clicks and click-through rate.
func (s *Service) PageKPIs(ctx context.Context, f Filters) (*PageKPIs, error) {
	out := &PageKPIs{}
	for _, q := range []struct {
		tmpl *warehouse.Template
		dst  func(v float64)
	}{
		{TotalPageVisits, func(v float64) { out.Visits = int64(v) }},
		{TotalClicks, func(v float64) { out.Clicks = int64(v) }},
		{PageCTR, func(v float64) { out.CTR = v }},
	} {
		v, degraded, err := s.runScalar(ctx, q.tmpl, f.set())
		if err != nil {
			return nil, err
		}
		q.dst(v)
		out.Degraded = out.Degraded || degraded
	}
	return out, nil
}

// EntityKPIs computes click and add-to-cart totals for one product or
// retailer.
func (s *Service) EntityKPIs(ctx context.Context, f Filters) (*EntityKPIs, error) {
	out := &EntityKPIs{}
	for _, q := range []struct {
		tmpl *warehouse.Template
		dst  func(v float64)
	}{
		{TotalClicks, func(v float64) { out.Clicks = int64(v) }},
		{TotalATCClicks, func(v float64) { out.ATCClicks = int64(v) }},
	} {
		v, degraded, err := s.runScalar(ctx, q.tmpl, f.set())
		if err != nil {
			return nil, err
		}
		q.dst(v)
		out.Degraded = out.Degraded || degraded
	}
	return out, nil
}

// ClickTrends returns the daily click trend.
func (s *Service) ClickTrends(ctx context.Context, f Filters) (*TrendResponse, error) {
	rows, degraded, err := s.runRows(ctx, ClickTrends, f.set())
	if err != nil {
		return nil, err
	}
	return &TrendResponse{Points: trendPoints(rows, "clicks"), Degraded: degraded}, nil
}

// VisitTrends returns the daily page-visit trend.
func (s *Service) VisitTrends(ctx context.Context, f Filters) (*TrendResponse, error) {
	rows, degraded, err := s.runRows(ctx, VisitTrends, f.set())
	if err != nil {
		return nil, err
	}
	return &TrendResponse{Points: trendPoints(rows, "visits"), Degraded: degraded}, nil
}

// ClickTrendsByLinkType splits the click trend into one series per link
// type. Rows arrive ordered group-first, so each series' points stay
// contiguous and date-ordered.
func (s *Service) ClickTrendsByLinkType(ctx context.Context, f Filters) (*MultiTrendResponse, error) {
	fs := f.set().WithGroupBy(warehouse.DimLink.Col("link_type_name"))
	rows, degraded, err := s.runRows(ctx, ClickTrends, fs)
	if err != nil {
		return nil, err
	}
	out := &MultiTrendResponse{Series: []TrendSeries{}, Degraded: degraded}
	for _, row := range rows {
		key := warehouse.ToString(row["group_key"])
		point := TrendPoint{
			Date:  warehouse.ToString(row["date"]),
			Value: warehouse.ToInt(row["clicks"], 0),
		}
		n := len(out.Series)
		if n == 0 || out.Series[n-1].Key != key {
			out.Series = append(out.Series, TrendSeries{Key: key})
			n++
		}
		out.Series[n-1].Points = append(out.Series[n-1].Points, point)
	}
	return out, nil
}

// LinkTypePerformance breaks clicks down by link type.
func (s *Service) LinkTypePerformance(ctx context.Context, f Filters) (*BreakdownResponse, error) {
	rows, degraded, err := s.runRows(ctx, LinkTypePerformance, f.set())
	if err != nil {
		return nil, err
	}
	return &BreakdownResponse{Items: breakdownItems(rows, "link_type"), Degraded: degraded}, nil
}

// utmColumns maps the caller-facing dimension names to fact columns.
var utmColumns = map[string]string{
	"source":        "utm_source",
	"medium":        "utm_medium",
	"content":       "utm_content",
	"term":          "utm_term",
	"campaign_name": "utm_campaign",
}

// UTMPerformance breaks clicks down by one UTM dimension.
func (s *Service) UTMPerformance(ctx context.Context, f Filters, dimension string) (*BreakdownResponse, error) {
	col, ok := utmColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: unknown utm dimension %q", warehouse.ErrInvalidFilter, dimension)
	}
	fs := f.set().WithGroupBy(warehouse.FactLinkClicks.Col(col))
	rows, degraded, err := s.runRows(ctx, UTMPerformance, fs)
	if err != nil {
		return nil, err
	}
	return &BreakdownResponse{Items: breakdownItems(rows, "utm_value"), Degraded: degraded}, nil
}

// GeoHotspots ranks countries or states by clicks.
func (s *Service) GeoHotspots(ctx context.Context, f Filters, level string) (*GeoResponse, error) {
	var col warehouse.ColumnRef
	switch level {
	case "country":
		col = warehouse.DimLocation.Col("country_name")
	case "state":
		col = warehouse.DimLocation.Col("state_name")
	default:
		return nil, fmt.Errorf("%w: unknown geo level %q", warehouse.ErrInvalidFilter, level)
	}
	rows, degraded, err := s.runRows(ctx, GeoHotspots, f.set().WithGroupBy(col))
	if err != nil {
		return nil, err
	}
	out := &GeoResponse{Items: []GeoItem{}, Degraded: degraded}
	for _, row := range rows {
		out.Items = append(out.Items, GeoItem{
			Location: warehouse.ToString(row["location"]),
			Clicks:   warehouse.ToInt(row["clicks"], 0),
		})
	}
	return out, nil
}

// DeviceBreakdown ranks device types by clicks.
func (s *Service) DeviceBreakdown(ctx context.Context, f Filters) (*CountResponse, error) {
	return s.countBreakdown(ctx, DeviceBreakdown, f, "device_type", nil)
}

// BrowserBreakdown ranks browsers by clicks.
func (s *Service) BrowserBreakdown(ctx context.Context, f Filters) (*CountResponse, error) {
	return s.countBreakdown(ctx, BrowserBreakdown, f, "browser", nil)
}

// TimeOfDay buckets clicks by hour of day.
func (s *Service) TimeOfDay(ctx context.Context, f Filters) (*CountResponse, error) {
	return s.countBreakdown(ctx, TimeOfDay, f, "hour", func(row warehouse.Row) string {
		return fmt.Sprintf("%02d:00", warehouse.ToInt(row["hour"], 0))
	})
}

// DayOfWeek buckets clicks by weekday, Monday first.
func (s *Service) DayOfWeek(ctx context.Context, f Filters) (*CountResponse, error) {
	return s.countBreakdown(ctx, DayOfWeek, f, "day", nil)
}

func (s *Service) countBreakdown(ctx context.Context, t *warehouse.Template, f Filters, keyAlias string, keyFn func(warehouse.Row) string) (*CountResponse, error) {
	rows, degraded, err := s.runRows(ctx, t, f.set())
	if err != nil {
		return nil, err
	}
	out := &CountResponse{Items: []CountItem{}, Degraded: degraded}
	for _, row := range rows {
		key := warehouse.ToString(row[keyAlias])
		if keyFn != nil {
			key = keyFn(row)
		}
		out.Items = append(out.Items, CountItem{Key: key, Clicks: warehouse.ToInt(row["clicks"], 0)})
	}
	return out, nil
}

// LinkPerformanceTable serves one page of the per-link table, with the
// total row count computed by a distinct-link count under the same
// filters.
func (s *Service) LinkPerformanceTable(ctx context.Context, f Filters, page, size int) (*Paginated[LinkPerformanceRow], error) {
	rows, degraded, err := s.runRows(ctx, LinkPerformance, f.set().WithPage(page, size))
	if err != nil {
		return nil, err
	}
	total, totalDegraded, err := s.runScalar(ctx, DistinctLinks, f.set())
	if err != nil {
		return nil, err
	}
	out := newPage[LinkPerformanceRow](page, size, int64(total), degraded || totalDegraded)
	for _, row := range rows {
		out.Items = append(out.Items, LinkPerformanceRow{
			LinkKey:        warehouse.ToString(row["link_key"]),
			LinkName:       warehouse.ToString(row["link_name"]),
			ShortURL:       warehouse.ToString(row["short_url"]),
			LinkType:       warehouse.ToString(row["link_type"]),
			Clicks:         warehouse.ToInt(row["clicks"], 0),
			ATCClicks:      warehouse.ToInt(row["atc_clicks"], 0),
			ConversionRate: warehouse.ToFloat(row["conversion_rate"], 0),
			TotalValue:     warehouse.ToFloat(row["total_value"], 0),
		})
	}
	return out, nil
}

// PagePerformanceTable merges visit rows with a click count per page. The
// click side aggregates a different fact table, so it runs as its own
// plan and joins in memory on the page key.
func (s *Service) PagePerformanceTable(ctx context.Context, f Filters, page, size int) (*Paginated[PagePerformanceRow], error) {
	rows, degraded, err := s.runRows(ctx, PagePerformance, f.set().WithPage(page, size))
	if err != nil {
		return nil, err
	}
	clickRows, clicksDegraded, err := s.runRows(ctx, PageClicks, f.set())
	if err != nil {
		return nil, err
	}
	clicksByPage := make(map[string]int64, len(clickRows))
	for _, row := range clickRows {
		clicksByPage[warehouse.ToString(row["page_key"])] = warehouse.ToInt(row["clicks"], 0)
	}
	total, totalDegraded, err := s.runScalar(ctx, DistinctPages, f.set())
	if err != nil {
		return nil, err
	}
	out := newPage[PagePerformanceRow](page, size, int64(total), degraded || clicksDegraded || totalDegraded)
	for _, row := range rows {
		key := warehouse.ToString(row["page_key"])
		visits := warehouse.ToInt(row["visits"], 0)
		clicks := clicksByPage[key]
		var ctr float64
		if visits > 0 {
			ctr = float64(clicks) * 100 / float64(visits)
		}
		out.Items = append(out.Items, PagePerformanceRow{
			PageKey:   key,
			PageURL:   warehouse.ToString(row["page_url"]),
			PageTitle: warehouse.ToString(row["page_title"]),
			Visits:    visits,
			Clicks:    clicks,
			CTR:       ctr,
		})
	}
	return out, nil
}

// ProductPerformanceTable serves one page of the per-product table.
func (s *Service) ProductPerformanceTable(ctx context.Context, f Filters, page, size int) (*Paginated[ProductPerformanceRow], error) {
	rows, degraded, err := s.runRows(ctx, ProductPerformance, f.set().WithPage(page, size))
	if err != nil {
		return nil, err
	}
	total, totalDegraded, err := s.runScalar(ctx, DistinctProducts, f.set())
	if err != nil {
		return nil, err
	}
	out := newPage[ProductPerformanceRow](page, size, int64(total), degraded || totalDegraded)
	for _, row := range rows {
		out.Items = append(out.Items, ProductPerformanceRow{
			ProductID:   warehouse.ToString(row["product_id"]),
			ProductName: warehouse.ToString(row["product_name"]),
			Clicks:      warehouse.ToInt(row["clicks"], 0),
			ATCClicks:   warehouse.ToInt(row["atc_clicks"], 0),
		})
	}
	return out, nil
}

// RetailerPerformanceTable serves one page of the per-retailer table.
func (s *Service) RetailerPerformanceTable(ctx context.Context, f Filters, page, size int) (*Paginated[RetailerPerformanceRow], error) {
	rows, degraded, err := s.runRows(ctx, RetailerPerformance, f.set().WithPage(page, size))
	if err != nil {
		return nil, err
	}
	total, totalDegraded, err := s.runScalar(ctx, DistinctRetailers, f.set())
	if err != nil {
		return nil, err
	}
	out := newPage[RetailerPerformanceRow](page, size, int64(total), degraded || totalDegraded)
	for _, row := range rows {
		out.Items = append(out.Items, RetailerPerformanceRow{
			RetailerName: warehouse.ToString(row["retailer_name"]),
			Clicks:       warehouse.ToInt(row["clicks"], 0),
			ATCClicks:    warehouse.ToInt(row["atc_clicks"], 0),
		})
	}
	return out, nil
}

func newPage[T any](page, size int, total int64, degraded bool) *Paginated[T] {
	req := warehouse.PageRequest{Page: page, Size: size}
	return &Paginated[T]{
		Items:      []T{},
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: req.TotalPages(total),
		Degraded:   degraded,
	}
}

func trendPoints(rows []warehouse.Row, valueAlias string) []TrendPoint {
	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, TrendPoint{
			Date:  warehouse.ToString(row["date"]),
			Value: warehouse.ToInt(row[valueAlias], 0),
		})
	}
	return points
}

func breakdownItems(rows []warehouse.Row, keyAlias string) []BreakdownItem {
	items := make([]BreakdownItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, BreakdownItem{
			Key:       warehouse.ToString(row[keyAlias]),
			Clicks:    warehouse.ToInt(row["clicks"], 0),
			ATCClicks: warehouse.ToInt(row["atc_clicks"], 0),
		})
	}
	return items
}
