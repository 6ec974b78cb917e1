package forecast

import (
	"context"
	"math"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/domain/service"
	"QuantPredict/internal/services/features"
)

// ForecastSequence runs the autoregressive loop: each step predicts one scaled
// row from the trailing window, then the window slides forward by that
// prediction. All predictions are inverse transformed once at the end and the
// Close column is returned.
func ForecastSequence(ctx context.Context, m service.SequenceModel, scaled models.FeatureMatrix, scaler *features.MinMaxScaler, horizon int) ([]float64, error) {
	if horizon < 0 {
		return nil, models.NewError(models.KindInvalidArgument, "horizon must be >= 0, got %d", horizon)
	}
	w := m.Window()
	if w <= 0 {
		return nil, models.NewError(models.KindModelInputShape, "model window must be positive, got %d", w)
	}
	if scaled.Len() < w {
		return nil, models.NewError(models.KindInsufficientHistory, "need %d rows for the window, have %d", w, scaled.Len())
	}
	if horizon == 0 {
		return []float64{}, nil
	}

	window := make([]models.FeatureRow, w, w+1)
	copy(window, scaled.Tail(w))
	preds := make([]models.FeatureRow, 0, horizon)
	for step := 0; step < horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := m.PredictNext(ctx, window)
		if err != nil {
			return nil, err
		}
		if len(out) != models.NumFeatures {
			return nil, models.NewError(models.KindModelInputShape, "model returned %d columns, want %d", len(out), models.NumFeatures)
		}
		var row models.FeatureRow
		for c, v := range out {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, models.NewError(models.KindForecastDiverged, "non-finite prediction at step %d", step)
			}
			row[c] = v
		}
		preds = append(preds, row)
		window = append(window[1:], row)
	}

	inv := scaler.Inverse(preds)
	closes := make([]float64, len(inv))
	for i, r := range inv {
		closes[i] = r[features.ColClose]
	}
	return closes, nil
}

// SequenceForecaster adapts ForecastSequence to service.Forecaster.
type SequenceForecaster struct {
	Model service.SequenceModel
}

var _ service.Forecaster = (*SequenceForecaster)(nil)

func (f *SequenceForecaster) Kind() service.ModelKind { return service.KindSequence }

func (f *SequenceForecaster) Forecast(ctx context.Context, history models.FeatureMatrix, scaler *features.MinMaxScaler, horizon int) ([]float64, error) {
	return ForecastSequence(ctx, f.Model, history, scaler, horizon)
}
