package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/warehouse"
)

type stubExecutor struct {
	name        string
	res         *warehouse.ExecutionResult
	err         error
	calls       int
	sawDeadline bool
}

func (s *stubExecutor) Name() string { return s.name }

func (s *stubExecutor) Execute(ctx context.Context, plan *warehouse.QueryPlan) (*warehouse.ExecutionResult, error) {
	s.calls++
	_, s.sawDeadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

func scalarResult(v float64) *warehouse.ExecutionResult {
	return &warehouse.ExecutionResult{Kind: warehouse.ScalarResult, Scalar: v}
}

func countPlan(t *testing.T) *warehouse.QueryPlan {
	t.Helper()
	plan, err := warehouse.Build(countClicksTmpl, &warehouse.FilterSet{})
	require.NoError(t, err)
	return plan
}

func TestSelectorPrefersPrimary(t *testing.T) {
	primary := &stubExecutor{name: "direct", res: scalarResult(42)}
	secondary := &stubExecutor{name: "emulated", res: scalarResult(7)}
	sel := NewSelector(primary, secondary, 0, zap.NewNop(), nil)

	res, err := sel.Execute(context.Background(), countPlan(t))
	require.NoError(t, err)
	require.Equal(t, 42.0, res.Scalar)
	require.Equal(t, 1, primary.calls)
	require.Zero(t, secondary.calls)
}

func TestSelectorFallsBackOnUnsupportedPlan(t *testing.T) {
	primary := &stubExecutor{name: "emulated", err: fmt.Errorf("%w: grouped", warehouse.ErrUnsupportedPlan)}
	secondary := &stubExecutor{name: "direct", res: scalarResult(9)}
	sel := NewSelector(primary, secondary, 0, zap.NewNop(), nil)

	res, err := sel.Execute(context.Background(), countPlan(t))
	require.NoError(t, err)
	require.Equal(t, 9.0, res.Scalar)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls)
}

func TestSelectorFallsBackOnBackendError(t *testing.T) {
	primary := &stubExecutor{name: "direct", err: fmt.Errorf("%w: connection refused", warehouse.ErrBackendQuery)}
	secondary := &stubExecutor{name: "emulated", res: scalarResult(3)}
	sel := NewSelector(primary, secondary, 0, zap.NewNop(), nil)

	res, err := sel.Execute(context.Background(), countPlan(t))
	require.NoError(t, err)
	require.Equal(t, 3.0, res.Scalar)
	require.Equal(t, 1, secondary.calls)
}

func TestSelectorDoesNotRetryOtherErrors(t *testing.T) {
	primary := &stubExecutor{name: "direct", err: fmt.Errorf("%w: bad column", warehouse.ErrInvalidFilter)}
	secondary := &stubExecutor{name: "emulated", res: scalarResult(3)}
	sel := NewSelector(primary, secondary, 0, zap.NewNop(), nil)

	_, err := sel.Execute(context.Background(), countPlan(t))
	require.True(t, errors.Is(err, warehouse.ErrInvalidFilter))
	require.Zero(t, secondary.calls)
}

func TestSelectorWithoutFallbackSurfacesError(t *testing.T) {
	primary := &stubExecutor{name: "emulated", err: fmt.Errorf("%w: grouped", warehouse.ErrUnsupportedPlan)}
	sel := NewSelector(primary, nil, 0, zap.NewNop(), nil)

	_, err := sel.Execute(context.Background(), countPlan(t))
	require.True(t, errors.Is(err, warehouse.ErrUnsupportedPlan))
}

func TestSelectorAppliesTimeout(t *testing.T) {
	primary := &stubExecutor{name: "direct", res: scalarResult(1)}
	sel := NewSelector(primary, nil, time.Second, zap.NewNop(), nil)

	// The deadline is attached per call, not taken from the caller.
	res, err := sel.Execute(context.Background(), countPlan(t))
	require.NoError(t, err)
	require.Equal(t, 1.0, res.Scalar)
	require.True(t, primary.sawDeadline)
}

func TestSelectorFallbackFailureReturnsSecondError(t *testing.T) {
	primary := &stubExecutor{name: "emulated", err: fmt.Errorf("%w: grouped", warehouse.ErrUnsupportedPlan)}
	secondary := &stubExecutor{name: "direct", err: fmt.Errorf("%w: down", warehouse.ErrBackendQuery)}
	sel := NewSelector(primary, secondary, 0, zap.NewNop(), nil)

	_, err := sel.Execute(context.Background(), countPlan(t))
	require.True(t, errors.Is(err, warehouse.ErrBackendQuery))
}
