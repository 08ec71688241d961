package executor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/metrics"
	"github.com/clicklens/analytics-api/internal/warehouse"
)

// Executor runs one plan and normalizes the answer. Implementations must
// route every backend failure through warehouse.ErrBackendQuery and every
// untranslatable plan through warehouse.ErrUnsupportedPlan.
type Executor interface {
	Name() string
	Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error)
}

// Selector fronts a preferred executor with an optional fallback. A plan
// the preferred executor refuses (ErrUnsupportedPlan) or cannot reach its
// backend for (ErrBackendQuery) is retried once on the fallback; every
// other error, invalid filters included, is returned as-is.
type Selector struct {
	preferred Executor
	fallback  Executor
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewSelector(preferred, fallback Executor, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Selector {
	return &Selector{
		preferred: preferred,
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
	}
}

func (s *Selector) Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.preferred.Execute(ctx, plan)
	if err == nil {
		s.observe(plan, s.preferred, "ok", start)
		return res, nil
	}

	if s.fallback == nil || !routable(err) {
		s.observe(plan, s.preferred, "error", start)
		return nil, err
	}

	reason := "backend_error"
	if errors.Is(err, warehouse.ErrUnsupportedPlan) {
		reason = "unsupported_plan"
	}
	if s.metrics != nil {
		s.metrics.ExecutorFallback.WithLabelValues(s.preferred.Name(), s.fallback.Name(), reason).Inc()
	}
	if s.logger != nil {
		s.logger.Warn("falling back to secondary executor",
			zap.String("template", plan.Template),
			zap.String("from", s.preferred.Name()),
			zap.String("to", s.fallback.Name()),
			zap.String("reason", reason),
			zap.Error(err))
	}

	res, err = s.fallback.Execute(ctx, plan)
	if err != nil {
		s.observe(plan, s.fallback, "error", start)
		return nil, err
	}
	s.observe(plan, s.fallback, "ok", start)
	return res, nil
}

func routable(err error) bool {
	return errors.Is(err, warehouse.ErrUnsupportedPlan) || errors.Is(err, warehouse.ErrBackendQuery)
}

func (s *Selector) observe(plan *warehouse.QueryPlan, exec Executor, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveQuery(plan.Template, exec.Name(), status, time.Since(start))
	}
}
