package warehouse

import (
	"fmt"
	"time"
)

// DateRange bounds a query by the date dimension. Either side may be nil;
// a one-sided range still produces a bound predicate.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Empty reports whether neither bound is set.
func (r *DateRange) Empty() bool {
	return r == nil || (r.Start == nil && r.End == nil)
}

// EqualityFilter binds a dimension (or fact) column to one value. Order of
// appearance in the FilterSet is significant: it fixes the parameter
// position the value is bound to.
type EqualityFilter struct {
	Dim    *DimensionRef // nil for a fact-table column
	Column string
	Value  any
}

// FlagFilter pins a boolean fact column to a literal value. Flags bind no
// parameter; they render as literals the way the warehouse queries always
// have.
type FlagFilter struct {
	Column string
	Value  bool
}

// PageRequest is a 1-based page selector.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// TotalPages computes the page count for a total row count.
func (p PageRequest) TotalPages(totalItems int64) int {
	if p.Size <= 0 {
		return 0
	}
	pages := totalItems / int64(p.Size)
	if totalItems%int64(p.Size) != 0 {
		pages++
	}
	return int(pages)
}

// FilterSet captures the optional predicates one request supplied. It is
// built per request, read-only once handed to the builder, and discarded
// after the plan exists.
type FilterSet struct {
	DateRange *DateRange
	Equality  []EqualityFilter
	Flags     []FlagFilter
	// GroupBy selects one extra grouping dimension column, on top of any
	// grouping intrinsic to the template.
	GroupBy *ColumnRef
	Page    *PageRequest
}

// WithEquality appends an equality filter and returns the set for chaining.
func (f *FilterSet) WithEquality(dim *DimensionRef, column string, value any) *FilterSet {
	f.Equality = append(f.Equality, EqualityFilter{Dim: dim, Column: column, Value: value})
	return f
}

// WithFlag appends a boolean flag filter.
func (f *FilterSet) WithFlag(column string, value bool) *FilterSet {
	f.Flags = append(f.Flags, FlagFilter{Column: column, Value: value})
	return f
}

// WithDates sets the date range. Nil bounds are allowed on either side.
func (f *FilterSet) WithDates(start, end *time.Time) *FilterSet {
	if start != nil || end != nil {
		f.DateRange = &DateRange{Start: start, End: end}
	}
	return f
}

// WithGroupBy selects the grouping column.
func (f *FilterSet) WithGroupBy(col ColumnRef) *FilterSet {
	f.GroupBy = &col
	return f
}

// WithPage sets pagination bounds.
func (f *FilterSet) WithPage(page, size int) *FilterSet {
	f.Page = &PageRequest{Page: page, Size: size}
	return f
}

// Validate checks the set's internal consistency independent of any
// template. Template-aware validation happens in Build.
func (f *FilterSet) Validate() error {
	if f.DateRange != nil && f.DateRange.Start != nil && f.DateRange.End != nil {
		if f.DateRange.End.Before(*f.DateRange.Start) {
			return fmt.Errorf("%w: end_date before start_date", ErrInvalidFilter)
		}
	}
	for _, eq := range f.Equality {
		if eq.Column == "" {
			return fmt.Errorf("%w: equality filter with empty column", ErrInvalidFilter)
		}
	}
	if f.Page != nil {
		if f.Page.Page < 1 {
			return fmt.Errorf("%w: page must be >= 1", ErrInvalidFilter)
		}
		if f.Page.Size < 1 {
			return fmt.Errorf("%w: size must be >= 1", ErrInvalidFilter)
		}
	}
	return nil
}
