package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/analytics"
	"github.com/clicklens/analytics-api/internal/config"
	"github.com/clicklens/analytics-api/internal/database"
	"github.com/clicklens/analytics-api/internal/executor"
	"github.com/clicklens/analytics-api/internal/geo"
	"github.com/clicklens/analytics-api/internal/metrics"
	"github.com/clicklens/analytics-api/internal/tableapi"
)

// Dependencies holds all external dependencies for the server. Nil
// warehouse handles are allowed; connections are then established lazily
// on first use.
type Dependencies struct {
	DB         *database.PostgresDB
	ClickHouse *database.ClickHouseDB
	Redis      *database.RedisDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps the HTTP handlers around the analytics service.
type Server struct {
	service *analytics.Service
	geo     *geo.Resolver
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs an http.Handler with all routes registered. The
// middleware chain is applied by main, outermost first.
func NewServer(deps *Dependencies) http.Handler {
	cfg := deps.Config

	direct := executor.NewDirect(warehouseSource(deps), deps.Logger)

	var emulated executor.Executor
	if cfg.TableAPI.BaseURL != "" {
		client := tableapi.New(cfg.TableAPI.BaseURL, cfg.TableAPI.APIKey, cfg.TableAPI.Timeout,
			cfg.TableAPI.MaxFetchRows, deps.Logger)
		emulated = executor.NewREST(client, cfg.TableAPI.MaxFetchRows, deps.Logger, deps.Metrics)
	}

	var preferred, fallback executor.Executor
	if cfg.Executor.Prefer == "emulated" && emulated != nil {
		preferred = emulated
		if cfg.Executor.Fallback {
			fallback = direct
		}
	} else {
		preferred = direct
		if cfg.Executor.Fallback {
			fallback = emulated
		}
	}
	selector := executor.NewSelector(preferred, fallback, cfg.Executor.QueryTimeout, deps.Logger, deps.Metrics)

	var geoResolver *geo.Resolver
	if cfg.Geo.Enabled {
		resolver, err := geo.NewResolver(cfg.Geo.DatabasePath)
		if err != nil {
			deps.Logger.Warn("failed to initialize geo resolver, ip filters disabled", zap.Error(err))
		} else {
			geoResolver = resolver
		}
	}

	s := &Server{
		service: analytics.NewService(selector, deps.Logger),
		geo:     geoResolver,
		logger:  deps.Logger,
		config:  cfg,
		metrics: deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// Overview
	mux.HandleFunc("/api/v1/overview/kpis", s.handleOverviewKPIs)
	mux.HandleFunc("/api/v1/overview/charts/click-trends", s.handleOverviewClickTrends)
	mux.HandleFunc("/api/v1/overview/charts/link-type-performance", s.handleLinkTypePerformance)
	mux.HandleFunc("/api/v1/overview/charts/geo-hotspots", s.handleGeoHotspots)

	// Campaigns
	mux.HandleFunc("/api/v1/campaigns/", s.handleCampaign)

	// Links
	mux.HandleFunc("/api/v1/links/kpis", s.handleLinksKPIs)
	mux.HandleFunc("/api/v1/links/charts/click-trends", s.handleLinksClickTrends)
	mux.HandleFunc("/api/v1/links/tables/performance", s.handleLinksTable)
	mux.HandleFunc("/api/v1/links/", s.handleLink)

	// Pages
	mux.HandleFunc("/api/v1/pages/tables/performance", s.handlePagesTable)
	mux.HandleFunc("/api/v1/pages/", s.handlePage)

	// Products
	mux.HandleFunc("/api/v1/products/tables/performance", s.handleProductsTable)
	mux.HandleFunc("/api/v1/products/", s.handleProduct)

	// Retailers
	mux.HandleFunc("/api/v1/retailers/tables/performance", s.handleRetailersTable)
	mux.HandleFunc("/api/v1/retailers/", s.handleRetailer)

	// Audience
	mux.HandleFunc("/api/v1/audience/geo/country", s.handleAudienceGeoCountry)
	mux.HandleFunc("/api/v1/audience/geo/state", s.handleAudienceGeoState)
	mux.HandleFunc("/api/v1/audience/device", s.handleAudienceDevice)
	mux.HandleFunc("/api/v1/audience/browser", s.handleAudienceBrowser)
	mux.HandleFunc("/api/v1/audience/time-of-day", s.handleAudienceTimeOfDay)
	mux.HandleFunc("/api/v1/audience/day-of-week", s.handleAudienceDayOfWeek)

	return mux
}

// warehouseSource wires the configured warehouse driver behind a lazy
// handle, seeding it with an eagerly-opened connection when main managed
// to establish one.
func warehouseSource(deps *Dependencies) func() (executor.Querier, error) {
	cfg := deps.Config.Warehouse

	if cfg.Driver == "clickhouse" {
		lazy := database.NewLazy(func() (*database.ClickHouseDB, error) {
			return database.NewClickHouseDB(cfg)
		})
		if deps.ClickHouse != nil {
			lazy.Set(deps.ClickHouse)
		}
		return func() (executor.Querier, error) {
			db, err := lazy.Get()
			if err != nil {
				return nil, err
			}
			return &executor.ClickHouseQuerier{Conn: db.Conn}, nil
		}
	}

	lazy := database.NewLazy(func() (*database.PostgresDB, error) {
		return database.NewPostgresDB(cfg.DSN(), cfg.MaxConns, cfg.MinConns)
	})
	if deps.DB != nil {
		lazy.Set(deps.DB)
	}
	return func() (executor.Querier, error) {
		db, err := lazy.Get()
		if err != nil {
			return nil, err
		}
		return &executor.PgxQuerier{Pool: db.Pool}, nil
	}
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
