package warehouse

// DimensionRef identifies a dimension table of the star schema: its
// surrogate key, the natural key callers filter by, and which columns may
// appear in filters or group-bys. Definitions are package-level and never
// mutated after init, so they are safe to share across requests.
type DimensionRef struct {
	Table      string
	Key        string
	NaturalKey string
	Filterable []string
	Groupable  []string
}

// Col returns a qualified reference to a column of this dimension.
func (d DimensionRef) Col(name string) ColumnRef {
	return ColumnRef{Table: d.Table, Name: name}
}

// KeyCol returns the surrogate key column reference.
func (d DimensionRef) KeyCol() ColumnRef {
	return ColumnRef{Table: d.Table, Name: d.Key}
}

// CanFilter reports whether name is declared filterable on this dimension.
func (d DimensionRef) CanFilter(name string) bool {
	return contains(d.Filterable, name)
}

// CanGroup reports whether name is declared groupable on this dimension.
func (d DimensionRef) CanGroup(name string) bool {
	return contains(d.Groupable, name)
}

// FactRef identifies a fact table, its primary key, its date key and the
// dimensions it can join to via which foreign key.
type FactRef struct {
	Table   string
	Key     string
	DateKey string
	// ForeignKeys maps a dimension table name to the fact column holding
	// its surrogate key.
	ForeignKeys map[string]string
	Filterable  []string
	Groupable   []string
}

// Col returns a qualified reference to a column of this fact table.
func (f FactRef) Col(name string) ColumnRef {
	return ColumnRef{Table: f.Table, Name: name}
}

// KeyCol returns the fact primary key column reference.
func (f FactRef) KeyCol() ColumnRef {
	return ColumnRef{Table: f.Table, Name: f.Key}
}

// JoinKey returns the fact-side foreign key column for dim, and whether the
// fact can join to it at all.
func (f FactRef) JoinKey(dim DimensionRef) (string, bool) {
	fk, ok := f.ForeignKeys[dim.Table]
	return fk, ok
}

// CanFilter reports whether name is declared filterable on the fact itself.
func (f FactRef) CanFilter(name string) bool {
	return contains(f.Filterable, name)
}

// CanGroup reports whether name is declared groupable on the fact itself.
func (f FactRef) CanGroup(name string) bool {
	return contains(f.Groupable, name)
}

// ColumnRef names a physical column, qualified by its table.
type ColumnRef struct {
	Table string
	Name  string
}

// IsZero reports whether the reference is empty.
func (c ColumnRef) IsZero() bool { return c.Table == "" && c.Name == "" }

// String returns the qualified column name.
func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Warehouse dimensions. The date dimension carries precomputed calendar
// attributes (hour_of_day, day_name, day_of_week) so that time-of-day and
// day-of-week rollups are plain group-bys instead of dialect-specific
// date arithmetic.
var (
	DimCampaign = DimensionRef{
		Table:      "dimcampaign",
		Key:        "campaignkey",
		NaturalKey: "campaign_natural_key",
		Filterable: []string{"campaign_natural_key"},
		Groupable:  []string{"campaign_name"},
	}

	DimLink = DimensionRef{
		Table:      "dimlink",
		Key:        "linkkey",
		NaturalKey: "link_natural_key",
		Filterable: []string{"link_natural_key", "link_type_name"},
		Groupable:  []string{"link_name", "short_link_url", "link_type_name"},
	}

	DimPage = DimensionRef{
		Table:      "dimpage",
		Key:        "pagekey",
		NaturalKey: "page_natural_key",
		Filterable: []string{"page_natural_key"},
		Groupable:  []string{"page_url", "page_title"},
	}

	DimProduct = DimensionRef{
		Table:      "dimproduct",
		Key:        "productkey",
		NaturalKey: "product_id",
		Filterable: []string{"product_id"},
		Groupable:  []string{"product_name", "product_id"},
	}

	DimRetailer = DimensionRef{
		Table:      "dimretailer",
		Key:        "retailerkey",
		NaturalKey: "retailer_name",
		Filterable: []string{"retailer_name"},
		Groupable:  []string{"retailer_name"},
	}

	DimLocation = DimensionRef{
		Table:      "dimlocation",
		Key:        "locationkey",
		NaturalKey: "country_name",
		Filterable: []string{"country_name", "state_name"},
		Groupable:  []string{"country_name", "state_name"},
	}

	DimDevice = DimensionRef{
		Table:      "dimdevice",
		Key:        "devicekey",
		NaturalKey: "device_type",
		Filterable: []string{"device_type", "browser"},
		Groupable:  []string{"device_type", "browser"},
	}

	DimDate = DimensionRef{
		Table:      "dimdate",
		Key:        "datekey",
		NaturalKey: "fulldate",
		Filterable: []string{"fulldate"},
		Groupable:  []string{"fulldate", "hour_of_day", "day_name", "day_of_week"},
	}
)

// Warehouse fact tables.
var (
	FactLinkClicks = FactRef{
		Table:   "factlinkclicks",
		Key:     "clickfactkey",
		DateKey: "datekey",
		ForeignKeys: map[string]string{
			DimCampaign.Table: "campaignkey",
			DimLink.Table:     "linkkey",
			DimPage.Table:     "pagekey",
			DimProduct.Table:  "productkey",
			DimRetailer.Table: "retailerkey",
			DimLocation.Table: "locationkey",
			DimDevice.Table:   "devicekey",
			DimDate.Table:     "datekey",
		},
		Filterable: []string{
			"is_atc_click",
			"utm_source", "utm_medium", "utm_content", "utm_term", "utm_campaign",
		},
		Groupable: []string{
			"utm_source", "utm_medium", "utm_content", "utm_term", "utm_campaign",
		},
	}

	FactPageVisits = FactRef{
		Table:   "factpagevisits",
		Key:     "pagevisitfactkey",
		DateKey: "datekey",
		ForeignKeys: map[string]string{
			DimCampaign.Table: "campaignkey",
			DimPage.Table:     "pagekey",
			DimDate.Table:     "datekey",
		},
		Filterable: []string{},
		Groupable:  []string{},
	}
)

// DimensionByTable resolves a dimension ref from its physical table name.
func DimensionByTable(table string) (DimensionRef, bool) {
	for _, d := range []DimensionRef{
		DimCampaign, DimLink, DimPage, DimProduct,
		DimRetailer, DimLocation, DimDevice, DimDate,
	} {
		if d.Table == table {
			return d, true
		}
	}
	return DimensionRef{}, false
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
