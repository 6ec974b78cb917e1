package service

import (
	"context"
	"strings"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/services/features"
)

// ModelKind selects the forecasting strategy.
type ModelKind string

const (
	KindSequence ModelKind = "sequence"
	KindTabular  ModelKind = "tabular"
)

// ParseModelKind accepts the canonical names plus the historical aliases
// (lstm for sequence, xgboost/xgb for tabular).
func ParseModelKind(s string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequence", "lstm":
		return KindSequence, nil
	case "tabular", "xgboost", "xgb":
		return KindTabular, nil
	default:
		return "", models.NewError(models.KindInvalidArgument, "unknown model kind %q, choose sequence or tabular", s)
	}
}

// SequenceModel predicts the next full scaled feature row from a window of
// scaled rows.
type SequenceModel interface {
	// Window is the number of rows the model consumes per step.
	Window() int
	PredictNext(ctx context.Context, window []models.FeatureRow) ([]float64, error)
}

// TabularModel predicts the next Close, in original units, from one scaled row.
type TabularModel interface {
	NumFeatures() int
	Predict(ctx context.Context, row []float64) (float64, error)
}

// Forecaster produces horizon Close predictions from scaled history.
type Forecaster interface {
	Kind() ModelKind
	Forecast(ctx context.Context, history models.FeatureMatrix, scaler *features.MinMaxScaler, horizon int) ([]float64, error)
}
