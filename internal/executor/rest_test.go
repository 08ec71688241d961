package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/tableapi"
	"github.com/clicklens/analytics-api/internal/warehouse"
)

// fakeTableAPI evaluates select requests against in-memory tables the way
// a single-table REST backend would: filter, order, slice, count. It
// records every request it serves.
type fakeTableAPI struct {
	tables map[string][]map[string]any
	fail   map[string]bool
	calls  []tableapi.SelectRequest
}

func (f *fakeTableAPI) Select(ctx context.Context, req tableapi.SelectRequest) (*tableapi.SelectResult, error) {
	f.calls = append(f.calls, req)
	if f.fail[req.Table] {
		return nil, fmt.Errorf("table %s unavailable", req.Table)
	}

	rows := []map[string]any{}
	for _, row := range f.tables[req.Table] {
		if matchesAll(row, req.Filters) {
			rows = append(rows, row)
		}
	}

	if req.Count {
		return &tableapi.SelectResult{Count: int64(len(rows))}, nil
	}

	if req.Order != nil {
		col, desc := req.Order.Column, req.Order.Desc
		sort.SliceStable(rows, func(i, j int) bool {
			a := fmt.Sprint(rows[i][col])
			b := fmt.Sprint(rows[j][col])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	if req.Offset > 0 {
		if req.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[req.Offset:]
		}
	}
	if req.Limit > 0 && len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		if len(req.Columns) == 0 {
			out[i] = row
			continue
		}
		projected := map[string]any{}
		for _, col := range req.Columns {
			projected[col] = row[col]
		}
		out[i] = projected
	}
	return &tableapi.SelectResult{Rows: out, Count: -1}, nil
}

func matchesAll(row map[string]any, filters []tableapi.Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row map[string]any, f tableapi.Filter) bool {
	got := fmt.Sprint(row[f.Column])
	switch f.Op {
	case "eq", "is":
		return got == f.Value
	case "gte":
		return compare(got, f.Value) >= 0
	case "lte":
		return compare(got, f.Value) <= 0
	case "in":
		list := strings.Trim(f.Value, "()")
		for _, item := range strings.Split(list, ",") {
			if got == strings.Trim(item, `"`) {
				return true
			}
		}
		return false
	}
	return false
}

func compare(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// warehouse fixture: ten clicks across three campaigns, march 2025.
func clickWarehouse() *fakeTableAPI {
	campaigns := []map[string]any{
		{"campaignkey": 1, "campaign_natural_key": "cmp-a"},
		{"campaignkey": 2, "campaign_natural_key": "cmp-b"},
		{"campaignkey": 3, "campaign_natural_key": "cmp-c"},
	}

	clicks := []map[string]any{}
	add := func(campaignKey, dateKey int, atc bool, value float64) {
		clicks = append(clicks, map[string]any{
			"clickfactkey": len(clicks) + 1,
			"campaignkey":  campaignKey,
			"datekey":      dateKey,
			"is_atc_click": atc,
			"link_value":   value,
		})
	}
	add(1, 20250301, true, 1.5)
	add(1, 20250302, false, 0)
	add(1, 20250303, true, 2.5)
	add(1, 20250304, false, 0)
	add(1, 20250305, false, 0)
	add(2, 20250310, true, 4.0)
	add(2, 20250311, false, 0)
	add(2, 20250312, false, 0)
	add(3, 20250401, false, 0)
	add(3, 20250402, false, 0)

	visits := []map[string]any{}
	for i := 0; i < 20; i++ {
		visits = append(visits, map[string]any{
			"pagevisitfactkey": i + 1,
			"campaignkey":      1 + i%2,
			"datekey":          20250301 + i%10,
		})
	}

	return &fakeTableAPI{
		tables: map[string][]map[string]any{
			"dimcampaign":    campaigns,
			"factlinkclicks": clicks,
			"factpagevisits": visits,
		},
		fail: map[string]bool{},
	}
}

func newREST(api *fakeTableAPI) *REST {
	return NewREST(api, 10000, zap.NewNop(), nil)
}

func TestRESTCountFoldsLookupIntoMembershipFilter(t *testing.T) {
	api := clickWarehouse()
	exec := newREST(api)

	tests := []struct {
		campaign string
		want     float64
	}{
		{"cmp-a", 5},
		{"cmp-b", 3},
		{"cmp-c", 2},
	}

	for _, tt := range tests {
		t.Run(tt.campaign, func(t *testing.T) {
			plan, err := warehouse.Build(countClicksTmpl, (&warehouse.FilterSet{}).
				WithEquality(&warehouse.DimCampaign, "campaign_natural_key", tt.campaign))
			require.NoError(t, err)

			res, err := exec.Execute(context.Background(), plan)
			require.NoError(t, err)
			require.Equal(t, tt.want, res.Scalar)
			require.False(t, res.Degraded)
		})
	}

	// Each count issues a dimension lookup followed by a fact count with
	// an IN filter on the foreign key.
	lookup := api.calls[0]
	require.Equal(t, "dimcampaign", lookup.Table)
	require.Equal(t, []string{"campaignkey"}, lookup.Columns)

	count := api.calls[1]
	require.Equal(t, "factlinkclicks", count.Table)
	require.True(t, count.Count)
	require.Equal(t, "in", count.Filters[0].Op)
	require.Equal(t, "campaignkey", count.Filters[0].Column)
}

func TestRESTEmptyLookupShortCircuits(t *testing.T) {
	api := clickWarehouse()
	exec := newREST(api)

	plan, err := warehouse.Build(countClicksTmpl, (&warehouse.FilterSet{}).
		WithEquality(&warehouse.DimCampaign, "campaign_natural_key", "cmp-nope"))
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Scalar)
	require.False(t, res.Degraded)

	// Only the lookup ran; the fact table was never queried.
	require.Len(t, api.calls, 1)
	require.Equal(t, "dimcampaign", api.calls[0].Table)
}

func TestRESTFailedLookupDegradesInsteadOfLying(t *testing.T) {
	api := clickWarehouse()
	api.fail["dimcampaign"] = true
	exec := newREST(api)

	plan, err := warehouse.Build(countClicksTmpl, (&warehouse.FilterSet{}).
		WithEquality(&warehouse.DimCampaign, "campaign_natural_key", "cmp-a"))
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Scalar)
	require.True(t, res.Degraded)
}

func TestRESTDateBoundsBecomeDateKeyInts(t *testing.T) {
	api := clickWarehouse()
	exec := newREST(api)

	plan, err := warehouse.Build(countClicksTmpl, (&warehouse.FilterSet{}).
		WithDates(datePtr(2025, 3, 1), datePtr(2025, 3, 31)))
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 8.0, res.Scalar) // two clicks fall in april

	count := api.calls[0]
	require.Equal(t, "factlinkclicks", count.Table)
	require.Equal(t, tableapi.Filter{Column: "datekey", Op: "gte", Value: "20250301"}, count.Filters[0])
	require.Equal(t, tableapi.Filter{Column: "datekey", Op: "lte", Value: "20250331"}, count.Filters[1])
}

func TestRESTFlagFiltersPassThrough(t *testing.T) {
	atc := &warehouse.Template{
		Name:       "total_atc_clicks",
		Fact:       warehouse.FactLinkClicks,
		Shape:      warehouse.ShapeScalar,
		Agg:        warehouse.AggCount,
		AggAlias:   "total_atc_clicks",
		FixedFlags: []warehouse.FlagFilter{{Column: "is_atc_click", Value: true}},
	}

	exec := newREST(clickWarehouse())
	plan, err := warehouse.Build(atc, &warehouse.FilterSet{})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 3.0, res.Scalar)
}

func TestRESTSumReducesClientSide(t *testing.T) {
	sum := &warehouse.Template{
		Name:      "total_link_value",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggSum,
		AggColumn: warehouse.FactLinkClicks.Col("link_value"),
		AggAlias:  "total_link_value",
	}

	exec := newREST(clickWarehouse())
	plan, err := warehouse.Build(sum, &warehouse.FilterSet{})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 8.0, res.Scalar)
}

func TestRESTRatioZeroDenominatorYieldsZero(t *testing.T) {
	ratio := &warehouse.Template{
		Name:      "page_ctr",
		Agg:       warehouse.AggRatio,
		AggAlias:  "page_ctr",
		Scale:     100,
		Numerator: countClicksTmpl,
		Denominator: &warehouse.Template{
			Name:     "total_page_visits",
			Fact:     warehouse.FactPageVisits,
			Shape:    warehouse.ShapeScalar,
			Agg:      warehouse.AggCount,
			AggAlias: "total_page_visits",
		},
	}

	api := clickWarehouse()
	api.tables["factpagevisits"] = nil
	exec := newREST(api)

	plan, err := warehouse.Build(ratio, &warehouse.FilterSet{})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Scalar)
}

func TestRESTRatioComputesScaledQuotient(t *testing.T) {
	ratio := &warehouse.Template{
		Name:      "page_ctr",
		Agg:       warehouse.AggRatio,
		AggAlias:  "page_ctr",
		Scale:     100,
		Numerator: countClicksTmpl,
		Denominator: &warehouse.Template{
			Name:     "total_page_visits",
			Fact:     warehouse.FactPageVisits,
			Shape:    warehouse.ShapeScalar,
			Agg:      warehouse.AggCount,
			AggAlias: "total_page_visits",
		},
	}

	exec := newREST(clickWarehouse())
	plan, err := warehouse.Build(ratio, &warehouse.FilterSet{})
	require.NoError(t, err)

	// 10 clicks over 20 visits, scaled by 100.
	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 50.0, res.Scalar)
}

func TestRESTRefusesGroupedPlans(t *testing.T) {
	trend := &warehouse.Template{
		Name:  "click_trends",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDate.Col("fulldate"), Alias: "date"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "date"}},
	}

	exec := newREST(clickWarehouse())
	plan, err := warehouse.Build(trend, &warehouse.FilterSet{})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), plan)
	require.True(t, errors.Is(err, warehouse.ErrUnsupportedPlan))
}

func TestRESTRefusesCountDistinct(t *testing.T) {
	distinct := &warehouse.Template{
		Name:      "distinct_links",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggCountDistinct,
		AggColumn: warehouse.FactLinkClicks.Col("linkkey"),
		AggAlias:  "total_items",
	}

	exec := newREST(clickWarehouse())
	plan, err := warehouse.Build(distinct, &warehouse.FilterSet{})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), plan)
	require.True(t, errors.Is(err, warehouse.ErrUnsupportedPlan))
}

func TestRESTRowPlanPushesDownPagination(t *testing.T) {
	listing := &warehouse.Template{
		Name:  "click_listing",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		Select: []warehouse.SelectExpr{
			{Alias: "click_id", Func: warehouse.FuncGroup, Column: warehouse.FactLinkClicks.Col("clickfactkey")},
			{Alias: "date_key", Func: warehouse.FuncGroup, Column: warehouse.FactLinkClicks.Col("datekey")},
		},
		Order:     []warehouse.OrderKey{{Expr: "click_id"}},
		Paginated: true,
	}

	api := &fakeTableAPI{
		tables: map[string][]map[string]any{"factlinkclicks": {}},
		fail:   map[string]bool{},
	}
	for i := 0; i < 25; i++ {
		api.tables["factlinkclicks"] = append(api.tables["factlinkclicks"], map[string]any{
			"clickfactkey": i + 1,
			"datekey":      20250301,
		})
	}
	exec := newREST(api)

	plan, err := warehouse.Build(listing, (&warehouse.FilterSet{}).WithPage(2, 20))
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, res.Rows, 5)
	// Aliased back to the plan's output names.
	require.Contains(t, res.Rows[0], "click_id")
	require.Contains(t, res.Rows[0], "date_key")
}
