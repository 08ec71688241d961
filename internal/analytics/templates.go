package analytics

import "github.com/clicklens/analytics-api/internal/warehouse"

// Query templates over the click warehouse. Each template is combined with
// a per-request filter set by warehouse.Build; the service never composes
// SQL or table requests itself.

// Scalar KPI templates.
var (
	TotalClicks = &warehouse.Template{
		Name:     "total_clicks",
		Fact:     warehouse.FactLinkClicks,
		Shape:    warehouse.ShapeScalar,
		Agg:      warehouse.AggCount,
		AggAlias: "total_clicks",
	}

	TotalATCClicks = &warehouse.Template{
		Name:       "total_atc_clicks",
		Fact:       warehouse.FactLinkClicks,
		Shape:      warehouse.ShapeScalar,
		Agg:        warehouse.AggCount,
		AggAlias:   "total_atc_clicks",
		FixedFlags: []warehouse.FlagFilter{{Column: "is_atc_click", Value: true}},
	}

	TotalPageVisits = &warehouse.Template{
		Name:     "total_page_visits",
		Fact:     warehouse.FactPageVisits,
		Shape:    warehouse.ShapeScalar,
		Agg:      warehouse.AggCount,
		AggAlias: "total_page_visits",
	}

	TotalLinkValue = &warehouse.Template{
		Name:      "total_link_value",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggSum,
		AggColumn: warehouse.FactLinkClicks.Col("link_value"),
		AggAlias:  "total_link_value",
	}

	// PageCTR divides link clicks by page visits. The two sides aggregate
	// different fact tables, so each binds its own parameter positions.
	PageCTR = &warehouse.Template{
		Name:        "page_ctr",
		Agg:         warehouse.AggRatio,
		AggAlias:    "page_ctr",
		Scale:       100,
		Numerator:   TotalClicks,
		Denominator: TotalPageVisits,
	}

	ConversionRate = &warehouse.Template{
		Name:        "conversion_rate",
		Agg:         warehouse.AggRatio,
		AggAlias:    "conversion_rate",
		Scale:       100,
		Numerator:   TotalATCClicks,
		Denominator: TotalClicks,
	}
)

// Distinct-entity counts, used as pagination totals for the performance
// tables. They accept the same filter sets as the tables they count for.
var (
	DistinctLinks = &warehouse.Template{
		Name:      "distinct_links",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggCountDistinct,
		AggColumn: warehouse.FactLinkClicks.Col("linkkey"),
		AggAlias:  "total_items",
	}

	DistinctPages = &warehouse.Template{
		Name:      "distinct_pages",
		Fact:      warehouse.FactPageVisits,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggCountDistinct,
		AggColumn: warehouse.FactPageVisits.Col("pagekey"),
		AggAlias:  "total_items",
	}

	DistinctProducts = &warehouse.Template{
		Name:      "distinct_products",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggCountDistinct,
		AggColumn: warehouse.FactLinkClicks.Col("productkey"),
		AggAlias:  "total_items",
	}

	DistinctRetailers = &warehouse.Template{
		Name:      "distinct_retailers",
		Fact:      warehouse.FactLinkClicks,
		Shape:     warehouse.ShapeScalar,
		Agg:       warehouse.AggCountDistinct,
		AggColumn: warehouse.FactLinkClicks.Col("retailerkey"),
		AggAlias:  "total_items",
	}
)

// Trend templates bucket by calendar date. An optional group-by (say, the
// link type) splits the trend into one series per group value; the group
// column leads the ordering so series arrive contiguously.
var (
	ClickTrends = &warehouse.Template{
		Name:  "click_trends",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDate.Col("fulldate"), Alias: "date"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order:             []warehouse.OrderKey{{Expr: "date"}},
		GroupAlias:        "group_key",
		GuardGroupNotNull: true,
		GroupLeadsOrder:   true,
	}

	VisitTrends = &warehouse.Template{
		Name:  "visit_trends",
		Fact:  warehouse.FactPageVisits,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDate.Col("fulldate"), Alias: "date"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "visits", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "date"}},
	}
)

// Breakdown templates.
var (
	LinkTypePerformance = &warehouse.Template{
		Name:  "link_type_performance",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimLink.Col("link_type_name"), Alias: "link_type"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
			{Alias: "atc_clicks", Func: warehouse.FuncSumFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
		},
		Order: []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
	}

	// UTMPerformance groups by whichever utm column the caller selects.
	UTMPerformance = &warehouse.Template{
		Name:  "utm_performance",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
			{Alias: "atc_clicks", Func: warehouse.FuncSumFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
		},
		Order:             []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
		RequireGroupBy:    true,
		GroupAlias:        "utm_value",
		GuardGroupNotNull: true,
	}

	// GeoHotspots groups by country or state, per the caller's selection.
	GeoHotspots = &warehouse.Template{
		Name:  "geo_hotspots",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order:             []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
		RequireGroupBy:    true,
		GroupAlias:        "location",
		GuardGroupNotNull: true,
	}

	DeviceBreakdown = &warehouse.Template{
		Name:  "device_breakdown",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDevice.Col("device_type"), Alias: "device_type"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
	}

	BrowserBreakdown = &warehouse.Template{
		Name:  "browser_breakdown",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDevice.Col("browser"), Alias: "browser"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
	}

	TimeOfDay = &warehouse.Template{
		Name:  "time_of_day",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDate.Col("hour_of_day"), Alias: "hour"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "hour"}},
	}

	DayOfWeek = &warehouse.Template{
		Name:  "day_of_week",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimDate.Col("day_of_week"), Alias: "day_index"},
			{Column: warehouse.DimDate.Col("day_name"), Alias: "day"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "day_index"}},
	}
)

// Performance table templates, paginated per entity.
var (
	LinkPerformance = &warehouse.Template{
		Name:  "link_performance",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimLink.Col("link_natural_key"), Alias: "link_key"},
			{Column: warehouse.DimLink.Col("link_name"), Alias: "link_name"},
			{Column: warehouse.DimLink.Col("short_link_url"), Alias: "short_url"},
			{Column: warehouse.DimLink.Col("link_type_name"), Alias: "link_type"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
			{Alias: "atc_clicks", Func: warehouse.FuncSumFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
			{Alias: "conversion_rate", Func: warehouse.FuncShareFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
			{Alias: "total_value", Func: warehouse.FuncSum, Column: warehouse.FactLinkClicks.Col("link_value")},
		},
		Order:     []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
		Paginated: true,
	}

	PagePerformance = &warehouse.Template{
		Name:  "page_performance",
		Fact:  warehouse.FactPageVisits,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimPage.Col("page_natural_key"), Alias: "page_key"},
			{Column: warehouse.DimPage.Col("page_url"), Alias: "page_url"},
			{Column: warehouse.DimPage.Col("page_title"), Alias: "page_title"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "visits", Func: warehouse.FuncCount},
		},
		Order:     []warehouse.OrderKey{{Expr: "visits", Desc: true}},
		Paginated: true,
	}

	// PageClicks supplies the click side of the page table; the service
	// merges it with PagePerformance rows by page key.
	PageClicks = &warehouse.Template{
		Name:  "page_clicks",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimPage.Col("page_natural_key"), Alias: "page_key"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
		},
		Order: []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
	}

	ProductPerformance = &warehouse.Template{
		Name:  "product_performance",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimProduct.Col("product_id"), Alias: "product_id"},
			{Column: warehouse.DimProduct.Col("product_name"), Alias: "product_name"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
			{Alias: "atc_clicks", Func: warehouse.FuncSumFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
		},
		Order:     []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
		Paginated: true,
	}

	RetailerPerformance = &warehouse.Template{
		Name:  "retailer_performance",
		Fact:  warehouse.FactLinkClicks,
		Shape: warehouse.ShapeRows,
		GroupColumns: []warehouse.GroupColumn{
			{Column: warehouse.DimRetailer.Col("retailer_name"), Alias: "retailer_name"},
		},
		Select: []warehouse.SelectExpr{
			{Alias: "clicks", Func: warehouse.FuncCount},
			{Alias: "atc_clicks", Func: warehouse.FuncSumFlag, Column: warehouse.FactLinkClicks.Col("is_atc_click")},
		},
		Order:     []warehouse.OrderKey{{Expr: "clicks", Desc: true}},
		Paginated: true,
	}
)
