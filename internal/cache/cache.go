package cache

import (
	"bytes"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clicklens/analytics-api/internal/metrics"
)

const keyPrefix = "clicklens:resp:"

// ResponseCache is an HTTP-layer cache for GET responses, keyed by path
// and query string. It sits entirely outside the query path: a miss runs
// the request as if the cache did not exist, and Redis being down only
// costs the hit rate, never correctness.
type ResponseCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewResponseCache(client *redis.Client, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl, logger: logger, metrics: m}
}

type bufferingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (bw *bufferingWriter) WriteHeader(code int) {
	bw.status = code
	bw.ResponseWriter.WriteHeader(code)
}

func (bw *bufferingWriter) Write(b []byte) (int, error) {
	bw.buf.Write(b)
	return bw.ResponseWriter.Write(b)
}

func (c *ResponseCache) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.client == nil || c.ttl <= 0 || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := keyPrefix + r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		if body, err := c.client.Get(r.Context(), key).Bytes(); err == nil {
			c.observe("hit")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.Write(body)
			return
		} else if err != redis.Nil {
			c.logger.Debug("response cache read failed", zap.Error(err))
			c.observe("error")
		} else {
			c.observe("miss")
		}

		bw := &bufferingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(bw, r)

		if bw.status == http.StatusOK && bw.buf.Len() > 0 {
			if err := c.client.Set(r.Context(), key, bw.buf.Bytes(), c.ttl).Err(); err != nil {
				c.logger.Debug("response cache write failed", zap.Error(err))
			}
		}
	})
}

func (c *ResponseCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.ResponseCacheOp.WithLabelValues(result).Inc()
	}
}
