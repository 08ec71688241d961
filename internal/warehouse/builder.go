package warehouse

import "fmt"

// paramSeq hands out positional parameter indices. One sequence spans an
// entire plan, ratio sub-plans included, so positions are a pure function
// of filter presence and order.
type paramSeq struct {
	values []any
}

func (s *paramSeq) bind(v any) int {
	s.values = append(s.values, v)
	return len(s.values)
}

// Build combines a template with a request's FilterSet into a QueryPlan.
// It fails with ErrInvalidFilter when the set references a column the
// template's schema refs do not declare, before any backend is touched.
func Build(t *Template, f *FilterSet) (*QueryPlan, error) {
	if f == nil {
		f = &FilterSet{}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	seq := &paramSeq{}

	if t.IsRatio() {
		num, err := buildOne(t.Numerator, f, seq)
		if err != nil {
			return nil, err
		}
		den, err := buildOne(t.Denominator, f, seq)
		if err != nil {
			return nil, err
		}
		plan := &QueryPlan{
			Template:    t.Name,
			Shape:       ShapeScalar,
			Agg:         AggRatio,
			AggAlias:    t.AggAlias,
			Scale:       t.Scale,
			Numerator:   num,
			Denominator: den,
			Params:      seq.values,
		}
		num.Params = seq.values
		den.Params = seq.values
		return plan, nil
	}

	plan, err := buildOne(t, f, seq)
	if err != nil {
		return nil, err
	}
	plan.Params = seq.values
	return plan, nil
}

// buildOne assembles a single-fact plan, drawing parameter positions from
// the shared sequence.
func buildOne(t *Template, f *FilterSet, seq *paramSeq) (*QueryPlan, error) {
	plan := &QueryPlan{
		Template:  t.Name,
		Shape:     t.Shape,
		Fact:      t.Fact,
		Agg:       t.Agg,
		AggColumn: t.AggColumn,
		AggAlias:  t.AggAlias,
		Select:    append([]SelectExpr(nil), t.Select...),
		GroupBy:   append([]GroupColumn(nil), t.GroupColumns...),
		Order:     append([]OrderKey(nil), t.Order...),
	}

	ensureJoin := func(dim DimensionRef) error {
		if plan.HasJoin(dim) {
			return nil
		}
		if _, ok := t.Fact.JoinKey(dim); !ok {
			return fmt.Errorf("%w: %s does not join %s", ErrInvalidFilter, t.Fact.Table, dim.Table)
		}
		plan.Joins = append(plan.Joins, dim)
		return nil
	}

	// Joins implied by the template's own grouping and select list.
	for _, g := range t.GroupColumns {
		if g.Column.Table != t.Fact.Table {
			if dim, ok := DimensionByTable(g.Column.Table); ok {
				if err := ensureJoin(dim); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, sel := range t.Select {
		if sel.Column.IsZero() || sel.Column.Table == t.Fact.Table {
			continue
		}
		if dim, ok := DimensionByTable(sel.Column.Table); ok {
			if err := ensureJoin(dim); err != nil {
				return nil, err
			}
		}
	}

	// Equality filters, in FilterSet order. Each consumes the next
	// parameter position, so positions never shift when an unrelated
	// optional filter is absent.
	for _, eq := range f.Equality {
		var col ColumnRef
		if eq.Dim == nil {
			if !t.Fact.CanFilter(eq.Column) {
				return nil, fmt.Errorf("%w: column %s not filterable on %s", ErrInvalidFilter, eq.Column, t.Fact.Table)
			}
			col = t.Fact.Col(eq.Column)
		} else {
			if !eq.Dim.CanFilter(eq.Column) {
				return nil, fmt.Errorf("%w: column %s not filterable on %s", ErrInvalidFilter, eq.Column, eq.Dim.Table)
			}
			if err := ensureJoin(*eq.Dim); err != nil {
				return nil, err
			}
			col = eq.Dim.Col(eq.Column)
		}
		plan.Predicates = append(plan.Predicates, Predicate{
			Column:     col,
			Op:         OpEq,
			ParamIndex: seq.bind(eq.Value),
		})
	}

	// Boolean literals: template-intrinsic first, then caller flags.
	for _, fl := range append(append([]FlagFilter(nil), t.FixedFlags...), f.Flags...) {
		if !t.Fact.CanFilter(fl.Column) {
			return nil, fmt.Errorf("%w: flag %s not declared on %s", ErrInvalidFilter, fl.Column, t.Fact.Table)
		}
		op := OpIsTrue
		if !fl.Value {
			op = OpIsFalse
		}
		plan.Predicates = append(plan.Predicates, Predicate{Column: t.Fact.Col(fl.Column), Op: op})
	}

	// Group-by, resolved before the date range so null guards sit with
	// the other non-parameter predicates.
	if t.RequireGroupBy && f.GroupBy == nil {
		return nil, fmt.Errorf("%w: template %s requires a group_by selection", ErrInvalidFilter, t.Name)
	}
	if f.GroupBy != nil {
		if t.Shape != ShapeRows {
			return nil, fmt.Errorf("%w: template %s does not support group_by", ErrInvalidFilter, t.Name)
		}
		col := *f.GroupBy
		if col.Table == t.Fact.Table {
			if !t.Fact.CanGroup(col.Name) {
				return nil, fmt.Errorf("%w: column %s not groupable on %s", ErrInvalidFilter, col.Name, t.Fact.Table)
			}
		} else {
			dim, ok := DimensionByTable(col.Table)
			if !ok {
				return nil, fmt.Errorf("%w: unknown dimension table %s", ErrInvalidFilter, col.Table)
			}
			if !dim.CanGroup(col.Name) {
				return nil, fmt.Errorf("%w: column %s not groupable on %s", ErrInvalidFilter, col.Name, dim.Table)
			}
			if err := ensureJoin(dim); err != nil {
				return nil, err
			}
		}
		alias := t.GroupAlias
		if alias == "" {
			alias = col.Name
		}
		plan.GroupBy = append(plan.GroupBy, GroupColumn{Column: col, Alias: alias})
		if t.GuardGroupNotNull {
			plan.Predicates = append(plan.Predicates, Predicate{Column: col, Op: OpNotNull})
		}
		if t.GroupLeadsOrder {
			plan.Order = append([]OrderKey{{Expr: alias}}, plan.Order...)
		}
	}

	// Date range: zero, one or two predicates depending on which bounds
	// are present. A one-sided range is still a bound, never dropped.
	if !f.DateRange.Empty() {
		if err := ensureJoin(DimDate); err != nil {
			return nil, err
		}
		dateCol := DimDate.Col(DimDate.NaturalKey)
		if f.DateRange.Start != nil {
			plan.Predicates = append(plan.Predicates, Predicate{
				Column:     dateCol,
				Op:         OpGte,
				ParamIndex: seq.bind(*f.DateRange.Start),
			})
		}
		if f.DateRange.End != nil {
			plan.Predicates = append(plan.Predicates, Predicate{
				Column:     dateCol,
				Op:         OpLte,
				ParamIndex: seq.bind(*f.DateRange.End),
			})
		}
	}

	if f.Page != nil {
		if !t.Paginated {
			return nil, fmt.Errorf("%w: template %s is not paginated", ErrInvalidFilter, t.Name)
		}
		plan.Pagination = &Pagination{
			Size:        f.Page.Size,
			Offset:      f.Page.Offset(),
			SizeParam:   seq.bind(f.Page.Size),
			OffsetParam: seq.bind(f.Page.Offset()),
		}
	}

	return plan, nil
}
