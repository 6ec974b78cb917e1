package features

import (
	"encoding/json"
	"time"

	"QuantPredict/internal/domain/models"
)

// MinMaxScaler maps every feature column to [0,1] using the min and max seen
// at fit time. A constant column keeps scale 1 so inversion stays exact.
type MinMaxScaler struct {
	Symbol   string    `json:"symbol"`
	Columns  []string  `json:"columns"`
	Min      []float64 `json:"min"`
	Max      []float64 `json:"max"`
	FittedAt time.Time `json:"fitted_at"`
}

// Fit computes per-column bounds over m.
func Fit(symbol string, m models.FeatureMatrix) (*MinMaxScaler, error) {
	if m.Len() == 0 {
		return nil, models.NewError(models.KindInsufficientData, "cannot fit scaler on empty matrix")
	}
	s := &MinMaxScaler{
		Symbol:   symbol,
		Columns:  append([]string(nil), FeatureColumns...),
		Min:      make([]float64, models.NumFeatures),
		Max:      make([]float64, models.NumFeatures),
		FittedAt: time.Now().UTC(),
	}
	first := m.Rows[0]
	for c := 0; c < models.NumFeatures; c++ {
		s.Min[c], s.Max[c] = first[c], first[c]
	}
	for _, r := range m.Rows[1:] {
		for c, v := range r {
			if v < s.Min[c] {
				s.Min[c] = v
			}
			if v > s.Max[c] {
				s.Max[c] = v
			}
		}
	}
	return s, nil
}

// Validate checks that the scaler was fit against the current feature order.
func (s *MinMaxScaler) Validate() error {
	if len(s.Columns) != len(FeatureColumns) {
		return models.NewError(models.KindSchema, "scaler has %d columns, want %d", len(s.Columns), len(FeatureColumns))
	}
	for i, c := range FeatureColumns {
		if s.Columns[i] != c {
			return models.NewError(models.KindSchema, "scaler column %d is %q, want %q", i, s.Columns[i], c)
		}
	}
	if len(s.Min) != models.NumFeatures || len(s.Max) != models.NumFeatures {
		return models.NewError(models.KindSchema, "scaler bounds have wrong width")
	}
	return nil
}

func (s *MinMaxScaler) scale(c int) float64 {
	d := s.Max[c] - s.Min[c]
	if d == 0 {
		return 1
	}
	return d
}

// TransformRow scales one row.
func (s *MinMaxScaler) TransformRow(r models.FeatureRow) models.FeatureRow {
	var out models.FeatureRow
	for c, v := range r {
		out[c] = (v - s.Min[c]) / s.scale(c)
	}
	return out
}

// Transform scales every row of m into a new matrix sharing m's timestamps.
func (s *MinMaxScaler) Transform(m models.FeatureMatrix) models.FeatureMatrix {
	out := models.FeatureMatrix{Times: m.Times, Rows: make([]models.FeatureRow, len(m.Rows))}
	for i, r := range m.Rows {
		out.Rows[i] = s.TransformRow(r)
	}
	return out
}

// InverseRow maps a scaled row back to original units.
func (s *MinMaxScaler) InverseRow(r models.FeatureRow) models.FeatureRow {
	var out models.FeatureRow
	for c, v := range r {
		out[c] = v*s.scale(c) + s.Min[c]
	}
	return out
}

// Inverse maps a batch of scaled rows back to original units.
func (s *MinMaxScaler) Inverse(rows []models.FeatureRow) []models.FeatureRow {
	out := make([]models.FeatureRow, len(rows))
	for i, r := range rows {
		out[i] = s.InverseRow(r)
	}
	return out
}

// Marshal encodes the scaler as one JSON document.
func (s *MinMaxScaler) Marshal() ([]byte, error) { return json.Marshal(s) }

// UnmarshalScaler decodes and validates a stored scaler document.
func UnmarshalScaler(b []byte) (*MinMaxScaler, error) {
	var s MinMaxScaler
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, models.WrapError(models.KindSchema, err, "decode scaler")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
