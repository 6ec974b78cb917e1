package models

import "time"

// RawTable is tabular market data as received from a data source or a caller:
// a header row and string cells. Cells are parsed by the feature normalizer.
type RawTable struct {
	Header  []string   `json:"header" validate:"required,min=1"`
	Records [][]string `json:"records" validate:"required,min=1"`
}

// Len returns the number of data records.
func (t RawTable) Len() int { return len(t.Records) }

// NumFeatures is the width of a FeatureRow.
const NumFeatures = 6

// FeatureRow is [Open, High, Low, Close, AdjClose, LogVolume].
type FeatureRow [NumFeatures]float64

// FeatureMatrix holds one FeatureRow per timestamp in ascending time order.
type FeatureMatrix struct {
	Times []time.Time
	Rows  []FeatureRow
}

func (m FeatureMatrix) Len() int { return len(m.Rows) }

// Column extracts one feature column.
func (m FeatureMatrix) Column(idx int) []float64 {
	out := make([]float64, len(m.Rows))
	for i, r := range m.Rows {
		out[i] = r[idx]
	}
	return out
}

// Last returns the most recent row.
func (m FeatureMatrix) Last() (FeatureRow, bool) {
	if len(m.Rows) == 0 {
		return FeatureRow{}, false
	}
	return m.Rows[len(m.Rows)-1], true
}

// Tail returns the last n rows (all rows if n exceeds the length).
func (m FeatureMatrix) Tail(n int) []FeatureRow {
	if n >= len(m.Rows) {
		return m.Rows
	}
	return m.Rows[len(m.Rows)-n:]
}
