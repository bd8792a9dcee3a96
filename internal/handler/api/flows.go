package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	icache "FlowTrack/internal/service/cache"
	"FlowTrack/internal/service/metrics"
	"FlowTrack/internal/service/ratelimit"
	"FlowTrack/internal/usecase"
	xhttp "FlowTrack/pkg/http"
	applogger "FlowTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FlowsHandler is a plain net/http variant of the flow API with
// per-remote rate limiting and byte-level response caching. Used when
// the service runs without the Echo stack, e.g. embedded deployments.
type FlowsHandler struct {
	q     *usecase.FlowQueries
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewFlowsHandler(q *usecase.FlowQueries) *FlowsHandler {
	metrics.Register()
	return &FlowsHandler{q: q, rl: ratelimit.New()}
}

func (h *FlowsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// RegisterRoutes mounts the handler on the Echo stack, so deployments
// can choose between this cached variant and the validated Echo one.
func (h *FlowsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", echo.WrapHandler(h.Signals()))
	g.GET("/pattern", echo.WrapHandler(h.Pattern()))
	g.GET("/flows", echo.WrapHandler(h.Flows()))
	g.GET("/levels", echo.WrapHandler(h.Levels()))
	g.GET("/stats", echo.WrapHandler(h.Stats()))
}

// SetLogger injects a structured logger.
func (h *FlowsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *FlowsHandler) Signals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "signals"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		limit := xhttp.ParseIntDefault(r.URL.Query().Get("limit"), 50)
		if !h.rl.Allow(r.RemoteAddr+":signals", 5, 2) {
			if h.l != nil {
				h.l.Warn("flows.signals rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "signals:" + symbol + ":" + strconv.Itoa(limit)
		if h.serveCached(w, endpoint, cacheKey) {
			return
		}
		res, err := h.q.RecentSignals(r.Context(), symbol, limit)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("flows.signals error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, res, 5*time.Second)
	}
}

func (h *FlowsHandler) Pattern() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "pattern"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("flows.pattern missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":pattern", 5, 2) {
			if h.l != nil {
				h.l.Warn("flows.pattern rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		pat := h.q.Pattern(symbol)
		if pat == nil {
			http.Error(w, "no pattern detected", http.StatusNotFound)
			return
		}
		h.writeJSON(w, endpoint, "", pat, 0)
	}
}

func (h *FlowsHandler) Flows() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "flows"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("flows.flows missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		days := xhttp.ParseIntDefault(r.URL.Query().Get("days"), 5)
		if !h.rl.Allow(r.RemoteAddr+":flows", 5, 2) {
			if h.l != nil {
				h.l.Warn("flows.flows rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "flows:" + symbol + ":" + strconv.Itoa(days)
		if h.serveCached(w, endpoint, cacheKey) {
			return
		}
		res := h.q.DailyFlows(symbol, days)
		h.writeJSON(w, endpoint, cacheKey, res, 10*time.Second)
	}
}

func (h *FlowsHandler) Levels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "levels"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("flows.levels missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":levels", 3, 1) {
			if h.l != nil {
				h.l.Warn("flows.levels rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "levels:" + symbol
		if h.serveCached(w, endpoint, cacheKey) {
			return
		}
		lv := h.q.Levels(r.Context(), symbol)
		h.writeJSON(w, endpoint, cacheKey, lv, 60*time.Second)
	}
}

func (h *FlowsHandler) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "stats"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()
		h.writeJSON(w, endpoint, "", h.q.Stats(), 0)
	}
}

func (h *FlowsHandler) serveCached(w http.ResponseWriter, endpoint, cacheKey string) bool {
	if h.cache == nil || cacheKey == "" {
		return false
	}
	b, ok, err := h.cache.GetBytes(cacheKey)
	if err != nil {
		if h.l != nil {
			h.l.Warn("flows cache_get_error", applogger.String("endpoint", endpoint), applogger.Error(err))
		}
		return false
	}
	if !ok {
		if h.l != nil {
			h.l.Debug("flows cache_miss", applogger.String("key", cacheKey))
		}
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	if h.l != nil {
		h.l.Debug("flows cache_hit", applogger.String("key", cacheKey))
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("flows write_error", applogger.String("endpoint", endpoint), applogger.Error(err))
	}
	return true
}

func (h *FlowsHandler) writeJSON(w http.ResponseWriter, endpoint, cacheKey string, v interface{}, ttl time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		if h.l != nil {
			h.l.Error("flows marshal_error", applogger.String("endpoint", endpoint), applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil && cacheKey != "" && ttl > 0 {
		if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil && h.l != nil {
			h.l.Warn("flows cache_set_error", applogger.String("key", cacheKey), applogger.Error(err))
		}
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("flows write_error", applogger.String("endpoint", endpoint), applogger.Error(err))
	}
}
