package models

import "time"

// ForecastResult pairs the predicted Close series with the most recent actual
// Close values of the same length.
type ForecastResult struct {
	Symbol    string      `json:"symbol"`
	Kind      string      `json:"kind"`
	Dates     []time.Time `json:"dates"`
	Predicted []float64   `json:"predicted"`
	Actual    []float64   `json:"actual"`
	Metrics   Metrics     `json:"metrics"`
	// MetricsError carries the kind of a metric that could not be computed
	// (for example UNDEFINED_METRIC when actual values have no variance).
	MetricsError *Error `json:"-"`
	// FreshScaler is set when the scaler was fit during this request.
	FreshScaler bool `json:"fresh_scaler"`
}

// Metrics holds regression error metrics. R2 is nil when undefined.
type Metrics struct {
	RMSE float64  `json:"RMSE"`
	MAE  float64  `json:"MAE"`
	R2   *float64 `json:"R2"`
}

// ForecastEvent is published after every successful forecast.
type ForecastEvent struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Horizon   int       `json:"horizon"`
	Dates     []string  `json:"dates"`
	Predicted []float64 `json:"predicted"`
	Actual    []float64 `json:"actual"`
	RMSE      float64   `json:"rmse"`
	MAE       float64   `json:"mae"`
	R2        *float64  `json:"r2,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelReadyEvent announces that training produced a new artifact.
type ModelReadyEvent struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
}
