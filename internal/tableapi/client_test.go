package tableapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSelectBuildsPostgrestQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"campaignkey":1}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "secret", time.Second, 10000, zap.NewNop())
	res, err := client.Select(context.Background(), SelectRequest{
		Table:   "dimcampaign",
		Columns: []string{"campaignkey"},
		Filters: []Filter{
			Eq("campaign_natural_key", "cmp-a"),
			Gte("datekey", 20250301),
		},
		Order:  &Order{Column: "campaignkey", Desc: true},
		Limit:  50,
		Offset: 100,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	require.Equal(t, "/dimcampaign", got.URL.Path)
	q := got.URL.Query()
	require.Equal(t, "campaignkey", q.Get("select"))
	require.Equal(t, "eq.cmp-a", q.Get("campaign_natural_key"))
	require.Equal(t, "gte.20250301", q.Get("datekey"))
	require.Equal(t, "campaignkey.desc", q.Get("order"))
	require.Equal(t, "50", q.Get("limit"))
	require.Equal(t, "100", q.Get("offset"))

	require.Equal(t, "secret", got.Header.Get("apikey"))
	require.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	require.NotEmpty(t, got.Header.Get("X-Request-ID"))
	require.Empty(t, got.Header.Get("Prefer"))
}

func TestSelectCountUsesContentRange(t *testing.T) {
	var prefer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Range", "0-0/3573")
		w.Write([]byte(`[{"clickfactkey":1}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 10000, zap.NewNop())
	res, err := client.Select(context.Background(), SelectRequest{
		Table: "factlinkclicks",
		Count: true,
		Limit: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "count=exact", prefer)
	require.Equal(t, int64(3573), res.Count)
}

func TestSelectCountFallsBackToRowCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-1/*")
		w.Write([]byte(`[{"k":1},{"k":2}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 10000, zap.NewNop())
	res, err := client.Select(context.Background(), SelectRequest{Table: "t", Count: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Count)
}

func TestSelectErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"relation does not exist"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 10000, zap.NewNop())
	_, err := client.Select(context.Background(), SelectRequest{Table: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
	require.Contains(t, err.Error(), "relation does not exist")
}

func TestSelectCapsLimit(t *testing.T) {
	var limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 500, zap.NewNop())
	_, err := client.Select(context.Background(), SelectRequest{Table: "t", Limit: 9999})
	require.NoError(t, err)
	require.Equal(t, "500", limit)
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"0-24/3573", 3573},
		{"*/120", 120},
		{"0-24/*", -1},
		{"", -1},
		{"garbage", -1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, parseContentRange(tt.header), tt.header)
	}
}

func TestFilterRendering(t *testing.T) {
	day := time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)

	require.Equal(t, Filter{Column: "fulldate", Op: "gte", Value: "2025-03-01"}, Gte("fulldate", day))
	require.Equal(t, Filter{Column: "is_atc_click", Op: "is", Value: "true"}, Is("is_atc_click", true))
	require.Equal(t, "(1,2,3)", In("campaignkey", []any{1, 2, 3}).Value)
	require.Equal(t, `("cmp-a","cmp,b")`, In("name", []any{"cmp-a", "cmp,b"}).Value)
}
