package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clicklens/analytics-api/internal/warehouse"
)

// renderSQL lowers a plan to one SQL statement in the given dialect.
// Parameter placeholders appear in the same order the builder bound them,
// so plan.Params can be passed through unchanged for both $N and ?
// placeholder styles.
func renderSQL(p *warehouse.QueryPlan, d Dialect) (string, error) {
	if p.Agg == warehouse.AggRatio {
		return renderRatio(p, d)
	}
	return renderSingle(p, d, p.AggAlias)
}

func renderRatio(p *warehouse.QueryPlan, d Dialect) (string, error) {
	num, err := renderSingle(p.Numerator, d, "n")
	if err != nil {
		return "", err
	}
	den, err := renderSingle(p.Denominator, d, "n")
	if err != nil {
		return "", err
	}
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	quotient := fmt.Sprintf("%s * %s / NULLIF((SELECT n FROM denominator), 0)",
		d.CastFloat("(SELECT n FROM numerator)"),
		strconv.FormatFloat(scale, 'f', 1, 64))
	return fmt.Sprintf("WITH numerator AS (%s), denominator AS (%s) SELECT COALESCE(%s, 0.0) AS %s",
		num, den, quotient, p.AggAlias), nil
}

func renderSingle(p *warehouse.QueryPlan, d Dialect, alias string) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")

	switch p.Agg {
	case warehouse.AggCount:
		fmt.Fprintf(&b, "COALESCE(COUNT(%s), 0) AS %s", p.Fact.KeyCol(), alias)
	case warehouse.AggCountDistinct:
		fmt.Fprintf(&b, "COUNT(DISTINCT %s) AS %s", p.AggColumn, alias)
	case warehouse.AggSum:
		fmt.Fprintf(&b, "COALESCE(SUM(%s), 0) AS %s", p.AggColumn, alias)
	case warehouse.AggNone:
		exprs := make([]string, 0, len(p.GroupBy)+len(p.Select))
		for _, g := range p.GroupBy {
			exprs = append(exprs, fmt.Sprintf("%s AS %s", g.Column, g.Alias))
		}
		for _, sel := range p.Select {
			expr, err := renderSelect(p, sel, d)
			if err != nil {
				return "", err
			}
			exprs = append(exprs, expr)
		}
		if len(exprs) == 0 {
			return "", fmt.Errorf("plan %s projects no columns", p.Template)
		}
		b.WriteString(strings.Join(exprs, ", "))
	default:
		return "", fmt.Errorf("plan %s has no renderable aggregate", p.Template)
	}

	fmt.Fprintf(&b, " FROM %s", p.Fact.Table)
	for _, dim := range p.Joins {
		fk, ok := p.Fact.JoinKey(dim)
		if !ok {
			return "", fmt.Errorf("plan %s joins %s without a foreign key", p.Template, dim.Table)
		}
		fmt.Fprintf(&b, " JOIN %s ON %s.%s = %s", dim.Table, p.Fact.Table, fk, dim.KeyCol())
	}

	if len(p.Predicates) > 0 {
		clauses := make([]string, 0, len(p.Predicates))
		for _, pr := range p.Predicates {
			clause, err := renderPredicate(pr, d)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, clause)
		}
		b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	if len(p.GroupBy) > 0 {
		cols := make([]string, 0, len(p.GroupBy))
		for _, g := range p.GroupBy {
			cols = append(cols, g.Column.String())
		}
		b.WriteString(" GROUP BY " + strings.Join(cols, ", "))
	}

	if len(p.Order) > 0 {
		keys := make([]string, 0, len(p.Order))
		for _, o := range p.Order {
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			keys = append(keys, o.Expr+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}

	if p.Pagination != nil {
		fmt.Fprintf(&b, " LIMIT %s OFFSET %s",
			d.Placeholder(p.Pagination.SizeParam), d.Placeholder(p.Pagination.OffsetParam))
	}

	return b.String(), nil
}

func renderSelect(p *warehouse.QueryPlan, sel warehouse.SelectExpr, d Dialect) (string, error) {
	switch sel.Func {
	case warehouse.FuncGroup:
		return fmt.Sprintf("%s AS %s", sel.Column, sel.Alias), nil
	case warehouse.FuncCount:
		return fmt.Sprintf("COUNT(%s) AS %s", p.Fact.KeyCol(), sel.Alias), nil
	case warehouse.FuncSum:
		return fmt.Sprintf("COALESCE(SUM(%s), 0) AS %s", sel.Column, sel.Alias), nil
	case warehouse.FuncAvg:
		return fmt.Sprintf("AVG(%s) AS %s", sel.Column, sel.Alias), nil
	case warehouse.FuncSumFlag:
		return fmt.Sprintf("%s AS %s", flagSum(sel.Column), sel.Alias), nil
	case warehouse.FuncShareFlag:
		share := fmt.Sprintf("%s * 100.0 / NULLIF(COUNT(%s), 0)",
			d.CastFloat(flagSum(sel.Column)), p.Fact.KeyCol())
		return fmt.Sprintf("COALESCE(%s, 0.0) AS %s", share, sel.Alias), nil
	}
	return "", fmt.Errorf("plan %s: unknown select function %d", p.Template, sel.Func)
}

func flagSum(col warehouse.ColumnRef) string {
	return fmt.Sprintf("SUM(CASE WHEN %s = TRUE THEN 1 ELSE 0 END)", col)
}

func renderPredicate(pr warehouse.Predicate, d Dialect) (string, error) {
	switch pr.Op {
	case warehouse.OpEq, warehouse.OpGte, warehouse.OpLte:
		return fmt.Sprintf("%s %s %s", pr.Column, pr.Op, d.Placeholder(pr.ParamIndex)), nil
	case warehouse.OpIsTrue:
		return fmt.Sprintf("%s = TRUE", pr.Column), nil
	case warehouse.OpIsFalse:
		return fmt.Sprintf("%s = FALSE", pr.Column), nil
	case warehouse.OpNotNull:
		return fmt.Sprintf("%s IS NOT NULL", pr.Column), nil
	}
	// IN membership exists only for the REST translation layer.
	return "", fmt.Errorf("operator %q has no SQL rendering", pr.Op)
}
