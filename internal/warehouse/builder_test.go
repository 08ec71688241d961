package warehouse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var countClicks = &Template{
	Name:     "total_clicks",
	Fact:     FactLinkClicks,
	Shape:    ShapeScalar,
	Agg:      AggCount,
	AggAlias: "total_clicks",
}

var countVisits = &Template{
	Name:     "total_page_visits",
	Fact:     FactPageVisits,
	Shape:    ShapeScalar,
	Agg:      AggCount,
	AggAlias: "total_page_visits",
}

var clickTrend = &Template{
	Name:  "click_trends",
	Fact:  FactLinkClicks,
	Shape: ShapeRows,
	GroupColumns: []GroupColumn{
		{Column: DimDate.Col("fulldate"), Alias: "date"},
	},
	Select: []SelectExpr{
		{Alias: "clicks", Func: FuncCount},
	},
	Order:             []OrderKey{{Expr: "date"}},
	GroupAlias:        "group_key",
	GuardGroupNotNull: true,
	GroupLeadsOrder:   true,
	Paginated:         true,
}

func TestBuildParamPositionsAreContiguous(t *testing.T) {
	tests := []struct {
		name       string
		filters    *FilterSet
		wantParams int
	}{
		{"no filters", &FilterSet{}, 0},
		{
			"campaign only",
			(&FilterSet{}).WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1"),
			1,
		},
		{
			"dates only",
			(&FilterSet{}).WithDates(date(2025, 3, 1), date(2025, 3, 31)),
			2,
		},
		{
			"campaign and dates",
			(&FilterSet{}).
				WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1").
				WithDates(date(2025, 3, 1), date(2025, 3, 31)),
			3,
		},
		{
			"two equalities, dates and flag",
			(&FilterSet{}).
				WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1").
				WithEquality(&DimLink, "link_type_name", "short").
				WithFlag("is_atc_click", true).
				WithDates(date(2025, 3, 1), date(2025, 3, 31)),
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Build(countClicks, tt.filters)
			require.NoError(t, err)
			require.Len(t, plan.Params, tt.wantParams)
			require.NoError(t, plan.CheckParams())
		})
	}
}

func TestBuildPositionsDependOnlyOnPresence(t *testing.T) {
	// With the campaign filter absent, the date bounds move up to fill
	// the gap instead of keeping their old positions.
	withCampaign, err := Build(countClicks, (&FilterSet{}).
		WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1").
		WithDates(date(2025, 3, 1), date(2025, 3, 31)))
	require.NoError(t, err)

	withoutCampaign, err := Build(countClicks, (&FilterSet{}).
		WithDates(date(2025, 3, 1), date(2025, 3, 31)))
	require.NoError(t, err)

	require.Equal(t, 2, withCampaign.Predicates[1].ParamIndex)
	require.Equal(t, 1, withoutCampaign.Predicates[0].ParamIndex)
	require.Equal(t, 2, withoutCampaign.Predicates[1].ParamIndex)
}

func TestBuildOneSidedDateBounds(t *testing.T) {
	tests := []struct {
		name   string
		start  *time.Time
		end    *time.Time
		wantOp Op
	}{
		{"start only", date(2025, 3, 1), nil, OpGte},
		{"end only", nil, date(2025, 3, 31), OpLte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Build(countClicks, (&FilterSet{}).WithDates(tt.start, tt.end))
			require.NoError(t, err)
			require.Len(t, plan.Predicates, 1)
			require.Equal(t, tt.wantOp, plan.Predicates[0].Op)
			require.Equal(t, 1, plan.Predicates[0].ParamIndex)
			require.Len(t, plan.Params, 1)
			require.True(t, plan.HasJoin(DimDate))
		})
	}
}

func TestBuildRatioBindsSidesIndependently(t *testing.T) {
	ratio := &Template{
		Name:        "page_ctr",
		Agg:         AggRatio,
		AggAlias:    "page_ctr",
		Scale:       100,
		Numerator:   countClicks,
		Denominator: countVisits,
	}

	plan, err := Build(ratio, (&FilterSet{}).
		WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1").
		WithDates(date(2025, 3, 1), date(2025, 3, 31)))
	require.NoError(t, err)

	// Numerator takes 1..3, denominator 4..6; the shared value slice
	// holds every binding exactly once.
	require.Len(t, plan.Params, 6)
	require.NoError(t, plan.CheckParams())
	require.Equal(t, 1, plan.Numerator.Predicates[0].ParamIndex)
	require.Equal(t, 4, plan.Denominator.Predicates[0].ParamIndex)
	require.Equal(t, plan.Params, plan.Numerator.Params)
	require.Equal(t, plan.Params, plan.Denominator.Params)
}

func TestBuildFlagsBindNoParams(t *testing.T) {
	atc := &Template{
		Name:       "total_atc_clicks",
		Fact:       FactLinkClicks,
		Shape:      ShapeScalar,
		Agg:        AggCount,
		AggAlias:   "total_atc_clicks",
		FixedFlags: []FlagFilter{{Column: "is_atc_click", Value: true}},
	}

	plan, err := Build(atc, (&FilterSet{}).WithDates(date(2025, 3, 1), nil))
	require.NoError(t, err)
	require.Len(t, plan.Params, 1)

	var flagPred *Predicate
	for i := range plan.Predicates {
		if plan.Predicates[i].Op == OpIsTrue {
			flagPred = &plan.Predicates[i]
		}
	}
	require.NotNil(t, flagPred)
	require.Equal(t, 0, flagPred.ParamIndex)
}

func TestBuildPaginationBindsLast(t *testing.T) {
	plan, err := Build(clickTrend, (&FilterSet{}).
		WithDates(date(2025, 3, 1), date(2025, 3, 31)).
		WithPage(2, 20))
	require.NoError(t, err)

	require.NotNil(t, plan.Pagination)
	require.Equal(t, 3, plan.Pagination.SizeParam)
	require.Equal(t, 4, plan.Pagination.OffsetParam)
	require.Equal(t, 20, plan.Params[2])
	require.Equal(t, 20, plan.Params[3]) // offset of page 2, size 20
	require.NoError(t, plan.CheckParams())
}

func TestBuildRejectsInvalidFilters(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    *Template
		filters *FilterSet
	}{
		{
			"unknown dimension column",
			countClicks,
			(&FilterSet{}).WithEquality(&DimCampaign, "campaign_color", "blue"),
		},
		{
			"dimension not joined to fact",
			countVisits,
			(&FilterSet{}).WithEquality(&DimLink, "link_natural_key", "lnk-1"),
		},
		{
			"end before start",
			countClicks,
			(&FilterSet{}).WithDates(date(2025, 3, 31), date(2025, 3, 1)),
		},
		{
			"group by on scalar template",
			countClicks,
			(&FilterSet{}).WithGroupBy(DimLink.Col("link_type_name")),
		},
		{
			"group by non-groupable column",
			clickTrend,
			(&FilterSet{}).WithGroupBy(DimCampaign.Col("campaign_natural_key")),
		},
		{
			"pagination on non-paginated template",
			countClicks,
			(&FilterSet{}).WithPage(1, 20),
		},
		{
			"zero page",
			clickTrend,
			(&FilterSet{}).WithPage(0, 20),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.tmpl, tt.filters)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidFilter))
		})
	}
}

func TestBuildGroupBySelection(t *testing.T) {
	plan, err := Build(clickTrend, (&FilterSet{}).WithGroupBy(DimLink.Col("link_type_name")))
	require.NoError(t, err)

	require.Len(t, plan.GroupBy, 2)
	require.Equal(t, "group_key", plan.GroupBy[1].Alias)
	require.True(t, plan.HasJoin(DimLink))
	// Null guard on the selected column, group key leading the order.
	require.Equal(t, OpNotNull, plan.Predicates[len(plan.Predicates)-1].Op)
	require.Equal(t, "group_key", plan.Order[0].Expr)
}

func TestBuildTemplateIntrinsicJoin(t *testing.T) {
	// The trend template groups by the date dimension, so the join must
	// exist even without any date filter.
	plan, err := Build(clickTrend, &FilterSet{})
	require.NoError(t, err)
	require.True(t, plan.HasJoin(DimDate))
	require.Empty(t, plan.Params)
}
