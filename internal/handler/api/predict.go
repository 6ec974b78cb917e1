package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/service/ratelimit"
	"QuantPredict/internal/services/evaluate"
	"QuantPredict/internal/usecase"
	xhttp "QuantPredict/pkg/http"
	xlogger "QuantPredict/pkg/logger"
	"QuantPredict/pkg/util"
)

// notReadyRetry is advertised in Retry-After when artifacts are missing.
const notReadyRetry = 30 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// PredictHandler serves the forecast API.
type PredictHandler struct {
	logger    *xlogger.Logger
	predictor usecase.Predictor
	limiter   *ratelimit.Limiter
	checks    map[string]HealthCheck
}

var _ xhttp.Handler = (*PredictHandler)(nil)

// NewPredictHandler builds the handler. limiter may be nil.
func NewPredictHandler(logger *xlogger.Logger, p usecase.Predictor, limiter *ratelimit.Limiter) *PredictHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &PredictHandler{logger: logger, predictor: p, limiter: limiter, checks: map[string]HealthCheck{}}
}

// AddHealthCheck registers a named dependency probe for /api/health.
func (h *PredictHandler) AddHealthCheck(name string, fn HealthCheck) {
	h.checks[name] = fn
}

func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.GET("/predict/:symbol", h.PredictQuery)
	g.GET("/health", h.Health)
}

// Predict handles POST /api/predict.
func (h *PredictHandler) Predict(c echo.Context) error {
	if !h.allow(c) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many prediction requests").WithRetryAfter(time.Second))
	}
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.run(c, req)
}

// PredictQuery handles GET /api/predict/:symbol?days=&model= against stored
// history.
func (h *PredictHandler) PredictQuery(c echo.Context) error {
	if !h.allow(c) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many prediction requests").WithRetryAfter(time.Second))
	}
	req := &models.PredictRequest{
		Symbol: c.Param("symbol"),
		Days:   util.ParseIntDefault(c.QueryParam("days"), 0),
		Model:  c.QueryParam("model"),
	}
	if verr := xhttp.ValidateStruct(c.Request().Context(), req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.run(c, req)
}

func (h *PredictHandler) run(c echo.Context, req *models.PredictRequest) error {
	res, err := h.predictor.Predict(c.Request().Context(), usecase.PredictParams{
		Symbol:  req.Symbol,
		Horizon: req.Days,
		Kind:    req.Model,
		Rows:    req.Rows,
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("predict failed",
				xlogger.String("symbol", req.Symbol),
				xlogger.String("model", req.Model),
				xlogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, toResponse(res))
}

// Health handles GET /api/health.
func (h *PredictHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for n := range h.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, n := range names {
		if err := h.checks[n](ctx); err != nil {
			deps[n] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[n] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{
		"status":       strings.ToLower(http.StatusText(status)),
		"dependencies": deps,
	})
}

func (h *PredictHandler) allow(c echo.Context) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(c.RealIP())
}

func toResponse(res *models.ForecastResult) models.PredictResponse {
	m := evaluate.Rounded(res.Metrics, 4)
	out := models.PredictResponse{
		Symbol:          res.Symbol,
		Model:           res.Kind,
		Dates:           util.FormatDates(res.Dates),
		ActualPrices:    res.Actual,
		PredictedPrices: res.Predicted,
		Metrics:         models.RoundedMetrics{RMSE: m.RMSE, MAE: m.MAE, R2: m.R2},
	}
	if res.MetricsError != nil {
		out.MetricsError = &models.MetricsErrorDTO{
			Code:    string(res.MetricsError.Kind),
			Message: res.MetricsError.Message,
		}
	}
	return out
}

// toAppError maps domain error kinds onto transport statuses.
func toAppError(err error) *xhttp.AppError {
	var de *models.Error
	if !errors.As(err, &de) {
		if errors.Is(err, context.DeadlineExceeded) {
			return xhttp.NewAppError("ERR_TIMEOUT", "", "forecast timed out", http.StatusGatewayTimeout).WithError(err)
		}
		return xhttp.InternalError("forecast failed").WithError(err)
	}
	code := "ERR_" + string(de.Kind)
	switch de.Kind {
	case models.KindInvalidArgument:
		return xhttp.NewAppError(code, "", de.Message, http.StatusBadRequest).WithError(err)
	case models.KindNotReady:
		return xhttp.ServiceUnavailableError(code, de.Message).WithError(err).WithRetryAfter(notReadyRetry)
	case models.KindSchema, models.KindInsufficientData, models.KindInsufficientHistory:
		return xhttp.UnprocessableError(code, de.Message).WithError(err)
	default:
		return xhttp.NewAppError(code, "", "forecast failed", http.StatusInternalServerError).WithError(err)
	}
}
