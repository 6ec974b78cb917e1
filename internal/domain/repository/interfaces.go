package repository

import (
	"context"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/services/features"
)

// HistoryStore supplies the stored OHLCV history of a symbol.
type HistoryStore interface {
	// History returns at most limit most recent rows in ascending time order.
	History(ctx context.Context, symbol string, limit int) (models.RawTable, error)
}

// ScalerStore persists one fitted transform per symbol. Load returns
// models.ErrScalerNotFound when nothing was saved; Save replaces atomically.
type ScalerStore interface {
	Load(ctx context.Context, symbol string) (*features.MinMaxScaler, error)
	Save(ctx context.Context, symbol string, s *features.MinMaxScaler) error
}

// ForecastPublisher announces completed forecasts.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, ev models.ForecastEvent) error
	Close() error
}

// ForecastSink stores completed forecasts for later analysis.
type ForecastSink interface {
	StoreForecast(ctx context.Context, ev models.ForecastEvent) error
}

type Metrics interface {
	RecordForecast(kind, result string, seconds float64)
	RecordScalerFit(symbol string)
	RecordError(kind string)
	RecordLastPrediction(symbol string, price float64)
}
