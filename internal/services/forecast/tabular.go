package forecast

import (
	"context"
	"math"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/domain/service"
	"QuantPredict/internal/services/features"
)

// ForecastTabular submits the most recent scaled row horizon times. The model
// output is already in Close units so no inverse transform is applied.
func ForecastTabular(ctx context.Context, m service.TabularModel, scaled models.FeatureMatrix, horizon int) ([]float64, error) {
	if horizon < 0 {
		return nil, models.NewError(models.KindInvalidArgument, "horizon must be >= 0, got %d", horizon)
	}
	last, ok := scaled.Last()
	if !ok {
		return nil, models.NewError(models.KindInsufficientHistory, "no rows to predict from")
	}
	if n := m.NumFeatures(); n != models.NumFeatures {
		return nil, models.NewError(models.KindModelInputShape, "model expects %d features, have %d", n, models.NumFeatures)
	}
	out := make([]float64, 0, horizon)
	for step := 0; step < horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := last
		v, err := m.Predict(ctx, in[:])
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, models.NewError(models.KindForecastDiverged, "non-finite prediction at step %d", step)
		}
		out = append(out, v)
	}
	return out, nil
}

// TabularForecaster adapts ForecastTabular to service.Forecaster.
type TabularForecaster struct {
	Model service.TabularModel
}

var _ service.Forecaster = (*TabularForecaster)(nil)

func (f *TabularForecaster) Kind() service.ModelKind { return service.KindTabular }

func (f *TabularForecaster) Forecast(ctx context.Context, history models.FeatureMatrix, _ *features.MinMaxScaler, horizon int) ([]float64, error) {
	return ForecastTabular(ctx, f.Model, history, horizon)
}
