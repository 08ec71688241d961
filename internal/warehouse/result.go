package warehouse

import (
	"strconv"
	"time"
)

// ResultKind distinguishes scalar results from row sets.
type ResultKind int

const (
	ScalarResult ResultKind = iota
	RowsResult
)

// Row is one output record: column alias to primitive value. Never a
// nested or joined structure.
type Row map[string]any

// ExecutionResult is the backend-agnostic outcome of one plan execution.
// Callers never observe which executor produced it.
type ExecutionResult struct {
	Kind   ResultKind
	Scalar float64
	Rows   []Row
	// Degraded flags results whose emulated sub-lookups failed and were
	// treated as no matches: "possibly wrong", not "definitely zero".
	Degraded bool
}

// NewScalarResult normalizes a raw backend value into a scalar result,
// substituting def when the value is absent or null. Null substitution is
// distinct from error handling: errors never become defaults.
func NewScalarResult(raw any, def float64) *ExecutionResult {
	return &ExecutionResult{Kind: ScalarResult, Scalar: ToFloat(raw, def)}
}

// NewRowsResult wraps rows without reordering them; ordering established
// by the plan must survive normalization.
func NewRowsResult(rows []Row) *ExecutionResult {
	if rows == nil {
		rows = []Row{}
	}
	return &ExecutionResult{Kind: RowsResult, Rows: rows}
}

// ToFloat coerces the numeric types the backends hand back into float64,
// falling back to def for nil or non-numeric values.
func ToFloat(raw any, def float64) float64 {
	switch v := raw.(type) {
	case nil:
		return def
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

// ToInt coerces a raw value to int64 with a default, for count-like fields.
func ToInt(raw any, def int64) int64 {
	switch v := raw.(type) {
	case nil:
		return def
	case int64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		return def
	default:
		return def
	}
}

// ToString coerces a raw value to a string, empty for nil.
func ToString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return ""
	}
}
