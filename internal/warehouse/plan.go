package warehouse

import (
	"fmt"
	"time"
)

// Shape says whether a plan produces one scalar or a row set.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeRows
)

// AggKind is the scalar aggregate a plan computes.
type AggKind int

const (
	// AggNone marks row-shaped plans whose aggregates live in Select.
	AggNone AggKind = iota
	AggCount
	AggCountDistinct
	AggSum
	// AggRatio divides two scalar sub-plans and scales the quotient.
	AggRatio
)

// Op is a predicate operator. Flag and null-guard operators bind no
// parameter; everything else binds exactly one.
type Op string

const (
	OpEq      Op = "="
	OpGte     Op = ">="
	OpLte     Op = "<="
	OpIn      Op = "IN"
	OpIsTrue  Op = "IS TRUE"
	OpIsFalse Op = "IS FALSE"
	OpNotNull Op = "IS NOT NULL"
)

// BindsParam reports whether the operator consumes a parameter position.
func (o Op) BindsParam() bool {
	switch o {
	case OpIsTrue, OpIsFalse, OpNotNull:
		return false
	}
	return true
}

// Predicate is one WHERE clause bound to a positional parameter.
// ParamIndex is 0 for operators that bind no parameter.
type Predicate struct {
	Column     ColumnRef
	Op         Op
	ParamIndex int
}

// AggFunc is a select-list aggregate for row-shaped plans.
type AggFunc int

const (
	// FuncGroup projects a grouping column.
	FuncGroup AggFunc = iota
	FuncCount
	FuncSum
	FuncAvg
	// FuncSumFlag counts rows where a boolean column is true.
	FuncSumFlag
	// FuncShareFlag is the percentage of rows where a boolean column is
	// true, 0.0 when the row count is zero.
	FuncShareFlag
)

// SelectExpr is one output column of a row-shaped plan.
type SelectExpr struct {
	Alias  string
	Func   AggFunc
	Column ColumnRef
}

// GroupColumn is a grouping column together with its output alias.
type GroupColumn struct {
	Column ColumnRef
	Alias  string
}

// OrderKey orders output rows by an output alias or qualified column.
type OrderKey struct {
	Expr string
	Desc bool
}

// Pagination carries the bound LIMIT/OFFSET values and their parameter
// positions.
type Pagination struct {
	Size        int
	Offset      int
	SizeParam   int
	OffsetParam int
}

// QueryPlan is the backend-neutral description of one aggregation request,
// produced by Build and consumed exactly once by one executor.
type QueryPlan struct {
	Template   string
	Shape      Shape
	Fact       FactRef
	Joins      []DimensionRef
	Predicates []Predicate
	Agg        AggKind
	AggColumn  ColumnRef
	AggAlias   string
	// Scale multiplies a ratio's quotient (100 for percentages).
	Scale       float64
	Numerator   *QueryPlan
	Denominator *QueryPlan
	Select      []SelectExpr
	GroupBy     []GroupColumn
	Order       []OrderKey
	Pagination  *Pagination
	// Params holds every bound value, shared across ratio sub-plans;
	// Predicates[i].ParamIndex is 1-based into this slice.
	Params []any
}

// HasJoin reports whether dim is already part of the plan's join list.
func (p *QueryPlan) HasJoin(dim DimensionRef) bool {
	for _, j := range p.Joins {
		if j.Table == dim.Table {
			return true
		}
	}
	return false
}

// CheckParams verifies the positional-parameter invariant: indices are
// contiguous from 1 and each appears exactly once across the plan and any
// ratio sub-plans.
func (p *QueryPlan) CheckParams() error {
	seen := make(map[int]bool)
	var walk func(q *QueryPlan) error
	walk = func(q *QueryPlan) error {
		if q == nil {
			return nil
		}
		for _, pr := range q.Predicates {
			if !pr.Op.BindsParam() {
				if pr.ParamIndex != 0 {
					return fmt.Errorf("predicate %s %s carries a parameter", pr.Column, pr.Op)
				}
				continue
			}
			if pr.ParamIndex < 1 || pr.ParamIndex > len(p.Params) {
				return fmt.Errorf("parameter %d out of range 1..%d", pr.ParamIndex, len(p.Params))
			}
			if seen[pr.ParamIndex] {
				return fmt.Errorf("parameter %d bound twice", pr.ParamIndex)
			}
			seen[pr.ParamIndex] = true
		}
		if q.Pagination != nil {
			for _, idx := range []int{q.Pagination.SizeParam, q.Pagination.OffsetParam} {
				if seen[idx] {
					return fmt.Errorf("parameter %d bound twice", idx)
				}
				seen[idx] = true
			}
		}
		if err := walk(q.Numerator); err != nil {
			return err
		}
		return walk(q.Denominator)
	}
	if err := walk(p); err != nil {
		return err
	}
	if len(seen) != len(p.Params) {
		return fmt.Errorf("%d parameters bound, %d values present", len(seen), len(p.Params))
	}
	return nil
}

// DateKeyInt converts a calendar date to the warehouse's integer date key
// (YYYYMMDD), the form fact tables store in their date foreign key.
func DateKeyInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
