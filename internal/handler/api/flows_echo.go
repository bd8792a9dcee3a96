package api

import (
	"net/http"
	"time"

	models "FlowTrack/internal/domain/models"
	"FlowTrack/internal/usecase"
	xhttp "FlowTrack/pkg/http"
	xlogger "FlowTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FlowsEchoHandler implements Echo-based HTTP handlers over the flow
// query surface.
type FlowsEchoHandler struct {
	logger    *xlogger.Logger
	q         *usecase.FlowQueries
	collector *usecase.TradeCollector
}

func NewFlowsEchoHandler(logger *xlogger.Logger, q *usecase.FlowQueries, collector *usecase.TradeCollector) *FlowsEchoHandler {
	return &FlowsEchoHandler{logger: logger, q: q, collector: collector}
}

func (h *FlowsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/pattern", h.Pattern)
	g.GET("/flows", h.Flows)
	g.GET("/levels", h.Levels)
	g.GET("/stats", h.Stats)
	e.GET("/health", h.Health)
}

func (h *FlowsEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sigs, err := h.q.RecentSignals(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, sigs)
}

func (h *FlowsEchoHandler) Pattern(c echo.Context) error {
	req := &models.PatternRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pat := h.q.Pattern(req.Symbol)
	if pat == nil {
		return xhttp.NotFoundResponse(c, map[string]string{"symbol": req.Symbol, "reason": "no pattern detected"})
	}
	return xhttp.SuccessResponse(c, pat)
}

func (h *FlowsEchoHandler) Flows(c echo.Context) error {
	req := &models.FlowsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	flows := h.q.DailyFlows(req.Symbol, req.Days)
	return xhttp.SuccessResponse(c, flows)
}

func (h *FlowsEchoHandler) Levels(c echo.Context) error {
	req := &models.LevelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	lv := h.q.Levels(c.Request().Context(), req.Symbol)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, lv)
}

func (h *FlowsEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.q.Stats())
}

// Health reports feed connectivity; degraded feeds return 503 so
// orchestrators can restart the pod.
func (h *FlowsEchoHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.collector != nil {
		status["feed_connected"] = h.collector.IsConnected()
		if !h.collector.IsConnected() {
			status["status"] = "degraded"
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}
