package evaluate

import (
	"math"

	"github.com/shopspring/decimal"

	"QuantPredict/internal/domain/models"
)

// Evaluate scores predictions against actual values. When actual has zero
// variance R2 is left nil and an UNDEFINED_METRIC error is returned alongside
// the still valid RMSE and MAE.
//
// Sums are taken over values divided by the largest magnitude seen, so prices
// near the float64 limit do not overflow the squares.
func Evaluate(actual, predicted []float64) (models.Metrics, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return models.Metrics{}, models.NewError(models.KindLengthMismatch, "actual has %d values, predicted %d", len(actual), len(predicted))
	}
	scale := 0.0
	for i, a := range actual {
		scale = math.Max(scale, math.Max(math.Abs(a), math.Abs(predicted[i])))
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return models.Metrics{}, models.NewError(models.KindForecastDiverged, "non-finite value in actual or predicted series")
	}
	if scale == 0 {
		scale = 1
	}

	n := float64(len(actual))
	var sumSq, sumAbs, mean float64
	for i, a := range actual {
		d := (a - predicted[i]) / scale
		sumSq += d * d
		sumAbs += math.Abs(d)
		mean += a / scale
	}
	mean /= n
	var ssTot float64
	for _, a := range actual {
		c := a/scale - mean
		ssTot += c * c
	}

	m := models.Metrics{RMSE: math.Sqrt(sumSq/n) * scale, MAE: sumAbs / n * scale}
	if !finite(m.RMSE) || !finite(m.MAE) {
		return models.Metrics{}, models.NewError(models.KindForecastDiverged, "error metrics exceed float64 range")
	}
	if ssTot == 0 {
		return m, models.NewError(models.KindUndefinedMetric, "R2 undefined: actual values have zero variance")
	}
	r2 := 1 - sumSq/ssTot
	if !finite(r2) {
		return m, models.NewError(models.KindUndefinedMetric, "R2 undefined: not a finite number")
	}
	m.R2 = &r2
	return m, nil
}

// Rounded returns m with every metric rounded half away from zero to places
// decimals, for presentation only. Non-finite values pass through unchanged.
func Rounded(m models.Metrics, places int32) models.Metrics {
	out := models.Metrics{RMSE: round(m.RMSE, places), MAE: round(m.MAE, places)}
	if m.R2 != nil {
		r := round(*m.R2, places)
		out.R2 = &r
	}
	return out
}

func round(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
