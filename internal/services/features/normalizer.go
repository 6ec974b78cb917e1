package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"QuantPredict/internal/domain/models"
	"QuantPredict/pkg/util"
)

// Feature column positions inside a models.FeatureRow.
const (
	ColOpen = iota
	ColHigh
	ColLow
	ColClose
	ColAdjClose
	ColLogVolume
)

// FeatureColumns is the fixed feature order. Every fitted scaler records it
// and every model is trained against it.
var FeatureColumns = []string{"Open", "High", "Low", "Close", "AdjClose", "LogVolume"}

// Normalized is the outcome of Normalize.
type Normalized struct {
	// Features holds the unscaled rows, used for actual Close values.
	Features models.FeatureMatrix
	Scaled   models.FeatureMatrix
	Scaler   *MinMaxScaler
	// Fitted reports that Scaler was fit here rather than supplied.
	Fitted bool
}

// Normalize parses raw into the fixed feature matrix and scales it. With a
// non-nil existing scaler the data is only transformed; otherwise a new scaler
// is fit over the presented rows and returned for the caller to persist.
func Normalize(symbol string, raw models.RawTable, existing *MinMaxScaler) (*Normalized, error) {
	if existing != nil {
		if err := existing.Validate(); err != nil {
			return nil, err
		}
	}
	fm, err := BuildMatrix(raw)
	if err != nil {
		return nil, err
	}
	out := &Normalized{Features: fm, Scaler: existing}
	if existing == nil {
		s, err := Fit(symbol, fm)
		if err != nil {
			return nil, err
		}
		out.Scaler = s
		out.Fitted = true
	}
	out.Scaled = out.Scaler.Transform(fm)
	return out, nil
}

// BuildMatrix turns a RawTable into unscaled feature rows sorted by time, with
// duplicate timestamps collapsed to their last occurrence.
func BuildMatrix(raw models.RawTable) (models.FeatureMatrix, error) {
	cols := resolveColumns(raw.Header)
	if cols.date < 0 {
		return models.FeatureMatrix{}, models.NewError(models.KindSchema, "missing Date column")
	}
	for i, idx := range []int{cols.open, cols.high, cols.low, cols.close} {
		if idx < 0 {
			return models.FeatureMatrix{}, models.NewError(models.KindSchema, "missing %s column", FeatureColumns[i])
		}
	}

	type dated struct {
		t   time.Time
		row models.FeatureRow
	}
	rows := make([]dated, 0, len(raw.Records))
	for _, rec := range raw.Records {
		t, good := util.ParseTime(cell(rec, cols.date))
		if !good {
			continue
		}
		var r models.FeatureRow
		ok := true
		for i, idx := range []int{cols.open, cols.high, cols.low, cols.close} {
			v, good := util.ParseFloat(cell(rec, idx))
			if !good {
				ok = false
				break
			}
			r[i] = v
		}
		if !ok {
			continue
		}
		if cols.adjClose < 0 {
			r[ColAdjClose] = r[ColClose]
		} else if v, good := util.ParseFloat(cell(rec, cols.adjClose)); good {
			r[ColAdjClose] = v
		} else {
			continue
		}
		vol := 0.0
		if cols.volume >= 0 {
			vol = util.ParseFloatDefault(cell(rec, cols.volume), 0)
		}
		r[ColLogVolume] = math.Log(vol + 1)
		if !finiteRow(r) {
			continue
		}
		rows = append(rows, dated{t: t.UTC(), row: r})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })
	var fm models.FeatureMatrix
	for _, d := range rows {
		if n := len(fm.Times); n > 0 && fm.Times[n-1].Equal(d.t) {
			fm.Rows[n-1] = d.row
			continue
		}
		fm.Times = append(fm.Times, d.t)
		fm.Rows = append(fm.Rows, d.row)
	}
	if fm.Len() == 0 {
		return fm, models.NewError(models.KindInsufficientData, "no usable rows out of %d", len(raw.Records))
	}
	return fm, nil
}

type columnSet struct {
	date, open, high, low, close, adjClose, volume int
}

func resolveColumns(header []string) columnSet {
	cs := columnSet{-1, -1, -1, -1, -1, -1, -1}
	for i, h := range header {
		switch canonical(h) {
		case "date", "datetime":
			if cs.date < 0 {
				cs.date = i
			}
		case "open":
			cs.open = i
		case "high":
			cs.high = i
		case "low":
			cs.low = i
		case "close":
			cs.close = i
		case "adjclose":
			cs.adjClose = i
		case "volume":
			cs.volume = i
		}
	}
	return cs
}

// canonical lowercases and strips separators so "Adj Close", "AdjClose" and
// "adj_close" compare equal.
func canonical(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func finiteRow(r models.FeatureRow) bool {
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
