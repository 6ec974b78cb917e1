package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	forecasts     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	scalerFits    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPredicted *prometheus.GaugeVec
}

// New registers the forecast metrics on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpredict_forecasts_total",
				Help: "Forecast requests by model kind and result",
			},
			[]string{"kind", "result"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantpredict_forecast_duration_seconds",
				Help:    "End to end forecast duration",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		scalerFits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpredict_scaler_fits_total",
				Help: "Scalers fit because none was stored",
			},
			[]string{"symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantpredict_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		lastPredicted: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantpredict_last_predicted_close",
				Help: "First predicted Close of the latest forecast",
			},
			[]string{"symbol"},
		),
	}
}

// RecordForecast records one forecast outcome and its duration.
func (r *Recorder) RecordForecast(kind, result string, seconds float64) {
	r.forecasts.WithLabelValues(kind, result).Inc()
	r.duration.WithLabelValues(kind).Observe(seconds)
}

func (r *Recorder) RecordScalerFit(symbol string) {
	r.scalerFits.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrediction(symbol string, price float64) {
	r.lastPredicted.WithLabelValues(symbol).Set(price)
}
