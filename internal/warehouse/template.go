package warehouse

// Template declares one logical query over the star schema: which fact it
// aggregates, what it computes, which grouping is intrinsic to it, and how
// rows are ordered. Templates are package-level constants of the caller;
// Build combines one with a per-request FilterSet into a QueryPlan.
type Template struct {
	Name  string
	Fact  FactRef
	Shape Shape

	// Scalar aggregate (ShapeScalar). For AggRatio the aggregate is
	// described by the Numerator/Denominator sub-templates instead.
	Agg       AggKind
	AggColumn ColumnRef
	AggAlias  string

	// Ratio sub-templates; both are built against the same FilterSet but
	// bind their parameter positions independently.
	Numerator   *Template
	Denominator *Template
	Scale       float64

	// FixedFlags are boolean literals intrinsic to the template, such as
	// restricting a click count to add-to-cart clicks.
	FixedFlags []FlagFilter

	// Row-shaped settings.
	Select       []SelectExpr
	GroupColumns []GroupColumn
	Order        []OrderKey
	Paginated    bool

	// RequireGroupBy makes the FilterSet's group-by selector mandatory
	// (breakdown templates where the caller picks the dimension).
	RequireGroupBy bool
	// GroupAlias names the FilterSet-selected group column in the output;
	// empty means the column's own name.
	GroupAlias string
	// GuardGroupNotNull adds an IS NOT NULL predicate on the selected
	// group column so null categories never produce a bucket.
	GuardGroupNotNull bool
	// GroupLeadsOrder prepends the selected group column to the ordering,
	// keeping series contiguous in multi-series output.
	GroupLeadsOrder bool
}

// IsRatio reports whether the template computes a two-sided ratio.
func (t *Template) IsRatio() bool {
	return t.Agg == AggRatio
}
