package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/warehouse"
)

// Direct runs a plan as one SQL statement against the warehouse. It is the
// preferred path: joins, grouping and ratio arithmetic all push down to the
// database engine.
type Direct struct {
	source func() (Querier, error)
	logger *zap.Logger
}

// NewDirect builds a direct executor over a lazily-connected querier.
// Connection failures surface per request as ErrBackendQuery, so a
// warehouse that was down at startup is retried on the next call.
func NewDirect(source func() (Querier, error), logger *zap.Logger) *Direct {
	return &Direct{source: source, logger: logger}
}

func (e *Direct) Name() string { return "direct" }

func (e *Direct) Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	q, err := e.source()
	if err != nil {
		return nil, fmt.Errorf("%w: warehouse unavailable: %v", warehouse.ErrBackendQuery, err)
	}

	sql, err := renderSQL(plan, q.Dialect())
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", plan.Template, err)
	}

	start := time.Now()
	switch plan.Shape {
	case warehouse.ShapeScalar:
		raw, err := q.QueryScalar(ctx, sql, plan.Params...)
		if err != nil {
			return nil, fmt.Errorf("%w: template %s: %v", warehouse.ErrBackendQuery, plan.Template, err)
		}
		e.logQuery(plan, sql, start)
		return warehouse.NewScalarResult(raw, 0), nil
	case warehouse.ShapeRows:
		rows, err := q.QueryRows(ctx, sql, plan.Params...)
		if err != nil {
			return nil, fmt.Errorf("%w: template %s: %v", warehouse.ErrBackendQuery, plan.Template, err)
		}
		e.logQuery(plan, sql, start)
		return warehouse.NewRowsResult(rows), nil
	}
	return nil, fmt.Errorf("template %s: unknown plan shape %d", plan.Template, plan.Shape)
}

func (e *Direct) logQuery(plan *warehouse.QueryPlan, sql string, start time.Time) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("direct query",
		zap.String("template", plan.Template),
		zap.String("sql", sql),
		zap.Int("params", len(plan.Params)),
		zap.Duration("elapsed", time.Since(start)))
}
