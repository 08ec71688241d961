package warehouse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageRequestOffset(t *testing.T) {
	require.Equal(t, 0, PageRequest{Page: 1, Size: 20}.Offset())
	require.Equal(t, 20, PageRequest{Page: 2, Size: 20}.Offset())
	require.Equal(t, 90, PageRequest{Page: 10, Size: 10}.Offset())
}

func TestPageRequestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{25, 20, 2},
		{40, 20, 2},
		{41, 20, 3},
	}

	for _, tt := range tests {
		got := PageRequest{Page: 1, Size: tt.size}.TotalPages(tt.total)
		require.Equal(t, tt.want, got, "total=%d size=%d", tt.total, tt.size)
	}
}

func TestDateRangeEmpty(t *testing.T) {
	require.True(t, (*DateRange)(nil).Empty())
	require.True(t, (&DateRange{}).Empty())
	require.False(t, (&DateRange{Start: date(2025, 1, 1)}).Empty())
	require.False(t, (&DateRange{End: date(2025, 1, 1)}).Empty())
}

func TestFilterSetValidate(t *testing.T) {
	valid := (&FilterSet{}).
		WithEquality(&DimCampaign, "campaign_natural_key", "cmp-1").
		WithDates(date(2025, 1, 1), date(2025, 1, 31)).
		WithPage(1, 20)
	require.NoError(t, valid.Validate())

	for name, fs := range map[string]*FilterSet{
		"reversed range": (&FilterSet{}).WithDates(date(2025, 2, 1), date(2025, 1, 1)),
		"empty column":   (&FilterSet{}).WithEquality(nil, "", "x"),
		"zero size":      (&FilterSet{}).WithPage(1, 0),
	} {
		t.Run(name, func(t *testing.T) {
			err := fs.Validate()
			require.True(t, errors.Is(err, ErrInvalidFilter))
		})
	}
}

func TestDateKeyInt(t *testing.T) {
	require.Equal(t, 20250301, DateKeyInt(*date(2025, 3, 1)))
	require.Equal(t, 20251231, DateKeyInt(*date(2025, 12, 31)))
}
