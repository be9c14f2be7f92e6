package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"InsightHub/internal/domain/models"
	"InsightHub/internal/usecase"
	xhttp "InsightHub/pkg/http"
	xlogger "InsightHub/pkg/logger"
	"InsightHub/pkg/util"
)

// CycleReporter exposes scheduler cycle status.
type CycleReporter interface {
	Status() []models.CycleStatus
}

// InsightsEchoHandler serves the consumer API of the insight engine.
type InsightsEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.InsightEngine
	scheduler CycleReporter
}

func NewInsightsEchoHandler(logger *xlogger.Logger, engine *usecase.InsightEngine, scheduler CycleReporter) *InsightsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &InsightsEchoHandler{logger: logger.Component("insights_api"), engine: engine, scheduler: scheduler}
}

func (h *InsightsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/insights", h.ActiveInsights)
	g.POST("/insights", h.Ingest)
	g.GET("/synthesis", h.Synthesis)
	g.GET("/metrics", h.Metrics)
	g.GET("/snapshot", h.Snapshot)
	g.GET("/cycles", h.Cycles)
}

func (h *InsightsEchoHandler) ActiveInsights(c echo.Context) error {
	req := &models.ActiveInsightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.engine.GetActiveInsights(*req)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *InsightsEchoHandler) Ingest(c echo.Context) error {
	req := &models.IngestInsightRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	in, err := h.engine.Ingest(c.Request().Context(), req.ToInsight())
	switch {
	case err == nil:
		return xhttp.AcceptedResponse(c, in)
	case errors.Is(err, models.ErrThrottled):
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("source is sending too fast").
			WithParam("source", in.Source).WithError(err))
	case errors.Is(err, models.ErrEvictedOnAdmit):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_STORE_FULL",
			"store is full of higher-weight insights").WithError(err))
	case errors.Is(err, models.ErrMalformedInsight):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	default:
		h.logger.Error("ingest insight failed", xlogger.String("source", in.Source), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to store insight").WithError(err))
	}
}

func (h *InsightsEchoHandler) Synthesis(c echo.Context) error {
	res, ok := h.engine.GetCurrentSynthesis(c.Request().Context())
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no synthesis has been produced yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, res)
}

func (h *InsightsEchoHandler) Metrics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.GetMetrics(c.Request().Context()))
}

// Snapshot writes the bare audit document, without the response envelope.
func (h *InsightsEchoHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if req.Since != "" {
		t, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid since %q", req.Since).WithParam("field", "since"))
		}
		since = t
	}
	return c.JSON(http.StatusOK, h.engine.ExportSnapshot(c.Request().Context(), since))
}

func (h *InsightsEchoHandler) Cycles(c echo.Context) error {
	if h.scheduler == nil {
		return xhttp.SuccessResponse(c, []models.CycleStatus{})
	}
	return xhttp.SuccessResponse(c, h.scheduler.Status())
}
