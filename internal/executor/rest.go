package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/metrics"
	"github.com/clicklens/analytics-api/internal/tableapi"
	"github.com/clicklens/analytics-api/internal/warehouse"
)

// TableClient is the slice of the table API the emulated executor needs.
type TableClient interface {
	Select(ctx context.Context, req tableapi.SelectRequest) (*tableapi.SelectResult, error)
}

// REST reconstructs plan semantics from single-table primitives: dimension
// filters become key lookups folded into IN filters on the fact's foreign
// key, date bounds become integer date-key comparisons, and sums are
// reduced client-side. Grouped and count-distinct plans have no faithful
// translation and are refused with ErrUnsupportedPlan so the caller can
// route them elsewhere.
type REST struct {
	client  TableClient
	maxRows int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewREST(client TableClient, maxRows int, logger *zap.Logger, m *metrics.Metrics) *REST {
	if maxRows <= 0 {
		maxRows = 10000
	}
	return &REST{client: client, maxRows: maxRows, logger: logger, metrics: m}
}

func (e *REST) Name() string { return "emulated" }

func (e *REST) Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	switch {
	case plan.Agg == warehouse.AggRatio:
		return e.executeRatio(ctx, plan)
	case plan.Agg == warehouse.AggCountDistinct:
		return nil, e.unsupported(plan, "count distinct needs a join the table API cannot express")
	case len(plan.GroupBy) > 0:
		return nil, e.unsupported(plan, "grouped aggregation cannot be reassembled from table primitives")
	case plan.Agg == warehouse.AggCount:
		return e.executeCount(ctx, plan)
	case plan.Agg == warehouse.AggSum:
		return e.executeSum(ctx, plan)
	case plan.Shape == warehouse.ShapeRows:
		return e.executeRows(ctx, plan)
	}
	return nil, e.unsupported(plan, "no table-level translation for this shape")
}

func (e *REST) unsupported(plan *warehouse.QueryPlan, reason string) error {
	if e.metrics != nil {
		e.metrics.UnsupportedPlans.WithLabelValues(plan.Template).Inc()
	}
	return fmt.Errorf("%w: template %s: %s", warehouse.ErrUnsupportedPlan, plan.Template, reason)
}

// executeRatio runs numerator and denominator as independent scalar counts.
// A zero denominator yields 0.0 rather than an error.
func (e *REST) executeRatio(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	num, err := e.Execute(ctx, plan.Numerator)
	if err != nil {
		return nil, err
	}
	den, err := e.Execute(ctx, plan.Denominator)
	if err != nil {
		return nil, err
	}
	scale := plan.Scale
	if scale == 0 {
		scale = 1
	}
	res := &warehouse.ExecutionResult{
		Kind:     warehouse.ScalarResult,
		Degraded: num.Degraded || den.Degraded,
	}
	if den.Scalar != 0 {
		res.Scalar = num.Scalar * scale / den.Scalar
	}
	return res, nil
}

func (e *REST) executeCount(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	filters, outcome, err := e.translatePredicates(ctx, plan)
	if err != nil {
		return nil, err
	}
	if outcome.empty || outcome.degraded {
		return &warehouse.ExecutionResult{Kind: warehouse.ScalarResult, Degraded: outcome.degraded}, nil
	}

	result, err := e.client.Select(ctx, tableapi.SelectRequest{
		Table:   plan.Fact.Table,
		Columns: []string{plan.Fact.Key},
		Filters: filters,
		Count:   true,
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: count %s: %v", warehouse.ErrBackendQuery, plan.Fact.Table, err)
	}
	return &warehouse.ExecutionResult{Kind: warehouse.ScalarResult, Scalar: float64(result.Count)}, nil
}

// executeSum fetches the measure column and reduces it client-side. The
// fetch is capped, which bounds memory at the cost of exactness on facts
// larger than the cap.
func (e *REST) executeSum(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	filters, outcome, err := e.translatePredicates(ctx, plan)
	if err != nil {
		return nil, err
	}
	if outcome.empty || outcome.degraded {
		return &warehouse.ExecutionResult{Kind: warehouse.ScalarResult, Degraded: outcome.degraded}, nil
	}
	if plan.AggColumn.Table != plan.Fact.Table {
		return nil, e.unsupported(plan, "sum over a joined column cannot be fetched from the fact table")
	}

	result, err := e.client.Select(ctx, tableapi.SelectRequest{
		Table:   plan.Fact.Table,
		Columns: []string{plan.AggColumn.Name},
		Filters: filters,
		Limit:   e.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sum %s: %v", warehouse.ErrBackendQuery, plan.Fact.Table, err)
	}
	var total float64
	for _, row := range result.Rows {
		total += warehouse.ToFloat(row[plan.AggColumn.Name], 0)
	}
	return &warehouse.ExecutionResult{Kind: warehouse.ScalarResult, Scalar: total}, nil
}

// executeRows serves ungrouped projections of fact columns with order and
// pagination pushed down to the table API.
func (e *REST) executeRows(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	columns := make([]string, 0, len(plan.Select))
	aliases := make(map[string]string, len(plan.Select))
	for _, sel := range plan.Select {
		if sel.Func != warehouse.FuncGroup || sel.Column.Table != plan.Fact.Table {
			return nil, e.unsupported(plan, "row plan projects beyond the fact table")
		}
		columns = append(columns, sel.Column.Name)
		aliases[sel.Column.Name] = sel.Alias
	}

	filters, outcome, err := e.translatePredicates(ctx, plan)
	if err != nil {
		return nil, err
	}
	if outcome.empty || outcome.degraded {
		return &warehouse.ExecutionResult{Kind: warehouse.RowsResult, Rows: []warehouse.Row{}, Degraded: outcome.degraded}, nil
	}

	req := tableapi.SelectRequest{
		Table:   plan.Fact.Table,
		Columns: columns,
		Filters: filters,
		Limit:   e.maxRows,
	}
	if len(plan.Order) > 0 {
		key := plan.Order[0]
		col, ok := columnForAlias(aliases, key.Expr)
		if !ok {
			return nil, e.unsupported(plan, "order key is not a projected fact column")
		}
		req.Order = &tableapi.Order{Column: col, Desc: key.Desc}
	}
	if plan.Pagination != nil {
		req.Limit = plan.Pagination.Size
		req.Offset = plan.Pagination.Offset
	}

	result, err := e.client.Select(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: rows %s: %v", warehouse.ErrBackendQuery, plan.Fact.Table, err)
	}
	rows := make([]warehouse.Row, 0, len(result.Rows))
	for _, raw := range result.Rows {
		row := make(warehouse.Row, len(raw))
		for col, v := range raw {
			if alias, ok := aliases[col]; ok {
				row[alias] = v
			} else {
				row[col] = v
			}
		}
		rows = append(rows, row)
	}
	return warehouse.NewRowsResult(rows), nil
}

func columnForAlias(aliases map[string]string, expr string) (string, bool) {
	for col, alias := range aliases {
		if alias == expr || col == expr {
			return col, true
		}
	}
	return "", false
}

// lookupOutcome summarizes how dimension lookups resolved. empty means a
// lookup legitimately matched nothing, so the plan's answer is zero rows.
// degraded means a lookup failed and the caller gets a flagged empty
// result instead of an error.
type lookupOutcome struct {
	empty    bool
	degraded bool
}

// translatePredicates rewrites plan predicates into fact-table filters.
// Dimension equality becomes a surrogate-key lookup folded into an IN
// filter on the fact's foreign key; date-dimension bounds become integer
// date-key comparisons on the fact itself.
func (e *REST) translatePredicates(ctx context.Context, plan *warehouse.QueryPlan) ([]tableapi.Filter, lookupOutcome, error) {
	var out lookupOutcome
	filters := []tableapi.Filter{}

	for _, pr := range plan.Predicates {
		value := any(nil)
		if pr.Op.BindsParam() {
			value = plan.Params[pr.ParamIndex-1]
		}

		switch {
		case pr.Column.Table == plan.Fact.Table:
			switch pr.Op {
			case warehouse.OpEq:
				filters = append(filters, tableapi.Eq(pr.Column.Name, value))
			case warehouse.OpGte:
				filters = append(filters, tableapi.Gte(pr.Column.Name, value))
			case warehouse.OpLte:
				filters = append(filters, tableapi.Lte(pr.Column.Name, value))
			case warehouse.OpIsTrue:
				filters = append(filters, tableapi.Is(pr.Column.Name, true))
			case warehouse.OpIsFalse:
				filters = append(filters, tableapi.Is(pr.Column.Name, false))
			default:
				return nil, out, e.unsupported(plan, fmt.Sprintf("operator %s on %s", pr.Op, pr.Column))
			}

		case pr.Column.Table == warehouse.DimDate.Table:
			t, ok := value.(time.Time)
			if !ok {
				return nil, out, fmt.Errorf("%w: date bound on %s is not a date", warehouse.ErrInvalidFilter, pr.Column)
			}
			dateKey := warehouse.DateKeyInt(t)
			switch pr.Op {
			case warehouse.OpGte:
				filters = append(filters, tableapi.Gte(plan.Fact.DateKey, dateKey))
			case warehouse.OpLte:
				filters = append(filters, tableapi.Lte(plan.Fact.DateKey, dateKey))
			case warehouse.OpEq:
				filters = append(filters, tableapi.Eq(plan.Fact.DateKey, dateKey))
			default:
				return nil, out, e.unsupported(plan, fmt.Sprintf("operator %s on %s", pr.Op, pr.Column))
			}

		default:
			if pr.Op == warehouse.OpNotNull {
				continue // join-side null guard, moot without the join
			}
			if pr.Op != warehouse.OpEq {
				return nil, out, e.unsupported(plan, fmt.Sprintf("operator %s on joined column %s", pr.Op, pr.Column))
			}
			dim, ok := warehouse.DimensionByTable(pr.Column.Table)
			if !ok {
				return nil, out, fmt.Errorf("%w: unknown dimension %s", warehouse.ErrInvalidFilter, pr.Column.Table)
			}
			fk, ok := plan.Fact.JoinKey(dim)
			if !ok {
				return nil, out, fmt.Errorf("%w: %s does not join %s", warehouse.ErrInvalidFilter, plan.Fact.Table, dim.Table)
			}

			keys, err := e.lookupKeys(ctx, dim, pr.Column.Name, value)
			if err != nil {
				if e.logger != nil {
					e.logger.Warn("dimension lookup failed, result degraded",
						zap.String("table", dim.Table),
						zap.String("column", pr.Column.Name),
						zap.Error(err))
				}
				if e.metrics != nil {
					e.metrics.DegradedLookups.WithLabelValues(dim.Table).Inc()
				}
				out.degraded = true
				return nil, out, nil
			}
			if len(keys) == 0 {
				out.empty = true
				return nil, out, nil
			}
			filters = append(filters, tableapi.In(fk, keys))
		}
	}

	return filters, out, nil
}

// lookupKeys resolves a dimension filter to the surrogate keys it matches.
func (e *REST) lookupKeys(ctx context.Context, dim warehouse.DimensionRef, column string, value any) ([]any, error) {
	result, err := e.client.Select(ctx, tableapi.SelectRequest{
		Table:   dim.Table,
		Columns: []string{dim.Key},
		Filters: []tableapi.Filter{tableapi.Eq(column, value)},
		Limit:   e.maxRows,
	})
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		if v, ok := row[dim.Key]; ok {
			keys = append(keys, v)
		}
	}
	return keys, nil
}
