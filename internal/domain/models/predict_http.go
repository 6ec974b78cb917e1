package models

// Requests/responses for the predict HTTP endpoint.

type PredictRequest struct {
	Symbol string    `json:"symbol" validate:"required,max=32"`
	Days   int       `json:"days" default:"7" validate:"gte=1,lte=365"`
	Model  string    `json:"model" default:"sequence" validate:"oneof=sequence tabular lstm xgboost xgb"`
	Rows   *RawTable `json:"rows,omitempty"`
}

type PredictResponse struct {
	Symbol          string           `json:"symbol"`
	Model           string           `json:"model"`
	Dates           []string         `json:"dates"`
	ActualPrices    []float64        `json:"actualPrices"`
	PredictedPrices []float64        `json:"predictedPrices"`
	Metrics         RoundedMetrics   `json:"metrics"`
	MetricsError    *MetricsErrorDTO `json:"metricsError,omitempty"`
}

type RoundedMetrics struct {
	RMSE float64  `json:"RMSE"`
	MAE  float64  `json:"MAE"`
	R2   *float64 `json:"R2"`
}

type MetricsErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
