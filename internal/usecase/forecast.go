package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	domsvc "QuantPredict/internal/domain/service"
	"QuantPredict/internal/services/evaluate"
	"QuantPredict/internal/services/features"
	"QuantPredict/internal/services/forecast"
	applogger "QuantPredict/pkg/logger"
	"QuantPredict/pkg/util"
)

// ForecastOptions bounds a forecast request.
type ForecastOptions struct {
	MaxHorizon   int
	HistoryLimit int
	Timeout      time.Duration
}

// PredictParams is one forecast request. Rows, when set, replaces stored
// history and is normalized with a fresh scaler that is never persisted.
type PredictParams struct {
	Symbol  string
	Horizon int
	Kind    string
	Rows    *models.RawTable
}

// Predictor is the forecast entry point shared by the HTTP handler and the
// refresh scheduler.
type Predictor interface {
	Predict(ctx context.Context, p PredictParams) (*models.ForecastResult, error)
}

// ForecastUseCase runs history -> features -> model -> evaluation.
type ForecastUseCase struct {
	history   domrepo.HistoryStore
	scalers   domrepo.ScalerStore
	models    domrepo.ModelStore
	publisher domrepo.ForecastPublisher
	sink      domrepo.ForecastSink
	metrics   domrepo.Metrics
	opts      ForecastOptions
	l         *applogger.Logger
	now       func() time.Time
}

var _ Predictor = (*ForecastUseCase)(nil)

// NewForecastUseCase wires the use case. history, publisher, sink and metrics
// may be nil.
func NewForecastUseCase(history domrepo.HistoryStore, scalers domrepo.ScalerStore, store domrepo.ModelStore, opts ForecastOptions) *ForecastUseCase {
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = 365
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 5000
	}
	return &ForecastUseCase{
		history: history,
		scalers: scalers,
		models:  store,
		metrics: noopMetrics{},
		opts:    opts,
		l:       applogger.NewNop(),
		now:     time.Now,
	}
}

// SetLogger injects a structured logger.
func (uc *ForecastUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// SetMetrics injects a metrics recorder.
func (uc *ForecastUseCase) SetMetrics(m domrepo.Metrics) {
	if m != nil {
		uc.metrics = m
	}
}

// SetOutputs sets where completed forecasts are announced and stored.
func (uc *ForecastUseCase) SetOutputs(p domrepo.ForecastPublisher, s domrepo.ForecastSink) {
	uc.publisher = p
	uc.sink = s
}

func (uc *ForecastUseCase) Predict(ctx context.Context, p PredictParams) (*models.ForecastResult, error) {
	start := uc.now()
	if p.Kind == "" {
		p.Kind = string(domsvc.KindSequence)
	}
	kind, err := domsvc.ParseModelKind(p.Kind)
	if err != nil {
		uc.fail("unknown", err)
		return nil, err
	}
	res, err := uc.predict(ctx, kind, p)
	uc.metrics.RecordForecast(string(kind), resultLabel(err), time.Since(start).Seconds())
	if err != nil {
		uc.fail(string(kind), err)
		return nil, err
	}
	uc.l.Info("forecast complete",
		applogger.String("symbol", res.Symbol),
		applogger.String("kind", res.Kind),
		applogger.Int("horizon", len(res.Predicted)),
		applogger.Bool("fresh_scaler", res.FreshScaler),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

func (uc *ForecastUseCase) predict(ctx context.Context, kind domsvc.ModelKind, p PredictParams) (*models.ForecastResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return nil, models.NewError(models.KindInvalidArgument, "symbol is required")
	}
	if p.Horizon < 1 || p.Horizon > uc.opts.MaxHorizon {
		return nil, models.NewError(models.KindInvalidArgument, "horizon must be between 1 and %d, got %d", uc.opts.MaxHorizon, p.Horizon)
	}
	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	norm, err := uc.normalize(ctx, symbol, p.Rows)
	if err != nil {
		return nil, err
	}
	if norm.Features.Len() < p.Horizon {
		return nil, models.NewError(models.KindInsufficientHistory, "need %d rows to compare against, have %d", p.Horizon, norm.Features.Len())
	}

	f, err := uc.forecaster(ctx, symbol, kind)
	if err != nil {
		return nil, err
	}
	predicted, err := f.Forecast(ctx, norm.Scaled, norm.Scaler, p.Horizon)
	if err != nil {
		return nil, fmt.Errorf("forecast %s/%s: %w", symbol, kind, err)
	}

	closes := norm.Features.Column(features.ColClose)
	actual := append([]float64(nil), closes[len(closes)-p.Horizon:]...)
	res := &models.ForecastResult{
		Symbol:      symbol,
		Kind:        string(kind),
		Dates:       util.NextDays(norm.Features.Times[norm.Features.Len()-1], p.Horizon),
		Predicted:   predicted,
		Actual:      actual,
		FreshScaler: norm.Fitted,
	}
	m, err := evaluate.Evaluate(actual, predicted)
	if err != nil {
		var me *models.Error
		if !errors.As(err, &me) || me.Kind != models.KindUndefinedMetric {
			return nil, err
		}
		res.MetricsError = me
	}
	res.Metrics = m

	uc.metrics.RecordLastPrediction(symbol, predicted[0])
	uc.emit(ctx, res)
	return res, nil
}

// normalize loads the symbol's scaler, fitting and saving one on first use.
// Caller supplied rows always get a throwaway fit.
func (uc *ForecastUseCase) normalize(ctx context.Context, symbol string, rows *models.RawTable) (*features.Normalized, error) {
	if rows != nil {
		return features.Normalize(symbol, *rows, nil)
	}
	if uc.history == nil {
		return nil, models.NewError(models.KindNotReady, "no history source configured")
	}
	raw, err := uc.history.History(ctx, symbol, uc.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", symbol, err)
	}
	existing, err := uc.scalers.Load(ctx, symbol)
	if err != nil && !errors.Is(err, models.ErrScalerNotFound) {
		return nil, fmt.Errorf("load scaler %s: %w", symbol, err)
	}
	norm, err := features.Normalize(symbol, raw, existing)
	if err != nil {
		return nil, err
	}
	if norm.Fitted {
		if err := uc.scalers.Save(ctx, symbol, norm.Scaler); err != nil {
			return nil, fmt.Errorf("save scaler %s: %w", symbol, err)
		}
		uc.metrics.RecordScalerFit(symbol)
		uc.l.Info("scaler fitted", applogger.String("symbol", symbol), applogger.Int("rows", norm.Features.Len()))
	}
	return norm, nil
}

func (uc *ForecastUseCase) forecaster(ctx context.Context, symbol string, kind domsvc.ModelKind) (domsvc.Forecaster, error) {
	switch kind {
	case domsvc.KindSequence:
		m, err := uc.models.Sequence(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &forecast.SequenceForecaster{Model: m}, nil
	default:
		m, err := uc.models.Tabular(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &forecast.TabularForecaster{Model: m}, nil
	}
}

// emit publishes and stores the result. Failures are logged only; the caller
// already has its forecast.
func (uc *ForecastUseCase) emit(ctx context.Context, res *models.ForecastResult) {
	if uc.publisher == nil && uc.sink == nil {
		return
	}
	ev := models.ForecastEvent{
		ID:        uuid.NewString(),
		Symbol:    res.Symbol,
		Kind:      res.Kind,
		Horizon:   len(res.Predicted),
		Dates:     util.FormatDates(res.Dates),
		Predicted: res.Predicted,
		Actual:    res.Actual,
		RMSE:      res.Metrics.RMSE,
		MAE:       res.Metrics.MAE,
		R2:        res.Metrics.R2,
		CreatedAt: uc.now().UTC(),
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishForecast(ctx, ev); err != nil {
			uc.metrics.RecordError("publish")
			uc.l.Warn("publish forecast failed", applogger.String("symbol", ev.Symbol), applogger.Error(err))
		}
	}
	if uc.sink != nil {
		if err := uc.sink.StoreForecast(ctx, ev); err != nil {
			uc.metrics.RecordError("sink")
			uc.l.Warn("store forecast failed", applogger.String("symbol", ev.Symbol), applogger.Error(err))
		}
	}
}

func (uc *ForecastUseCase) fail(kind string, err error) {
	label := string(models.KindOf(err))
	switch {
	case label != "":
	case errors.Is(err, context.DeadlineExceeded):
		label = "TIMEOUT"
	case errors.Is(err, context.Canceled):
		label = "CANCELED"
	default:
		label = "INTERNAL"
	}
	uc.metrics.RecordError(label)
	uc.l.Warn("forecast failed",
		applogger.String("kind", kind),
		applogger.String("error_kind", label),
		applogger.Error(err),
	)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type noopMetrics struct{}

func (noopMetrics) RecordForecast(string, string, float64) {}
func (noopMetrics) RecordScalerFit(string)                 {}
func (noopMetrics) RecordError(string)                     {}
func (noopMetrics) RecordLastPrediction(string, float64)   {}
