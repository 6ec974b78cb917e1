package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/services/features"
)

// constSeq always predicts the same scaled row.
type constSeq struct {
	w     int
	row   []float64
	calls int
}

func (m *constSeq) Window() int { return m.w }

func (m *constSeq) PredictNext(_ context.Context, window []models.FeatureRow) ([]float64, error) {
	m.calls++
	if len(window) != m.w {
		return nil, errors.New("window length drifted")
	}
	return m.row, nil
}

// lastSeq echoes the last row of the window plus a fixed step on Close.
type lastSeq struct{ w int }

func (m lastSeq) Window() int { return m.w }

func (m lastSeq) PredictNext(_ context.Context, window []models.FeatureRow) ([]float64, error) {
	r := window[len(window)-1]
	r[features.ColClose] += 0.1
	return r[:], nil
}

type recordingTab struct {
	n    int
	seen [][]float64
	out  float64
}

func (m *recordingTab) NumFeatures() int { return m.n }

func (m *recordingTab) Predict(_ context.Context, row []float64) (float64, error) {
	m.seen = append(m.seen, append([]float64(nil), row...))
	return m.out, nil
}

func history(n int) (models.FeatureMatrix, *features.MinMaxScaler) {
	fm := models.FeatureMatrix{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		v := float64(100 + i)
		fm.Times = append(fm.Times, base.AddDate(0, 0, i))
		fm.Rows = append(fm.Rows, models.FeatureRow{v, v + 1, v - 1, v, v, math.Log(1001)})
	}
	s, _ := features.Fit("T", fm)
	return s.Transform(fm), s
}

func TestSequenceHorizonZero(t *testing.T) {
	scaled, s := history(5)
	m := &constSeq{w: 3, row: make([]float64, 6)}
	out, err := ForecastSequence(context.Background(), m, scaled, s, 0)
	if err != nil {
		t.Fatalf("ForecastSequence: %v", err)
	}
	if len(out) != 0 || m.calls != 0 {
		t.Fatalf("horizon 0 should not call the model, got %d outputs %d calls", len(out), m.calls)
	}
}

func TestSequenceConstantPrediction(t *testing.T) {
	scaled, s := history(10)
	m := &constSeq{w: 4, row: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
	out, err := ForecastSequence(context.Background(), m, scaled, s, 7)
	if err != nil {
		t.Fatalf("ForecastSequence: %v", err)
	}
	if len(out) != 7 || m.calls != 7 {
		t.Fatalf("len = %d calls = %d, want 7", len(out), m.calls)
	}
	want := 0.5*(s.Max[features.ColClose]-s.Min[features.ColClose]) + s.Min[features.ColClose]
	for i, v := range out {
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestSequenceSlidesWindow(t *testing.T) {
	scaled, s := history(6)
	out, err := ForecastSequence(context.Background(), lastSeq{w: 3}, scaled, s, 3)
	if err != nil {
		t.Fatalf("ForecastSequence: %v", err)
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Fatalf("each step should build on the previous prediction: %v", out)
		}
	}
}

func TestSequenceInsufficientHistory(t *testing.T) {
	scaled, s := history(10)
	_, err := ForecastSequence(context.Background(), &constSeq{w: 60}, scaled, s, 5)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want insufficient history", err)
	}
}

func TestSequenceDiverged(t *testing.T) {
	scaled, s := history(5)
	m := &constSeq{w: 2, row: []float64{0, 0, 0, math.NaN(), 0, 0}}
	if _, err := ForecastSequence(context.Background(), m, scaled, s, 2); !errors.Is(err, models.ErrForecastDiverged) {
		t.Fatalf("err = %v, want diverged", err)
	}
}

func TestSequenceWrongWidth(t *testing.T) {
	scaled, s := history(5)
	m := &constSeq{w: 2, row: []float64{0.1}}
	if _, err := ForecastSequence(context.Background(), m, scaled, s, 2); !errors.Is(err, models.ErrModelInputShape) {
		t.Fatalf("err = %v, want input shape", err)
	}
}

func TestSequenceCancelled(t *testing.T) {
	scaled, s := history(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &constSeq{w: 2, row: make([]float64, 6)}
	if _, err := ForecastSequence(ctx, m, scaled, s, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestTabularIdenticalInputs(t *testing.T) {
	scaled, _ := history(5)
	m := &recordingTab{n: 6, out: 123.4}
	out, err := ForecastTabular(context.Background(), m, scaled, 4)
	if err != nil {
		t.Fatalf("ForecastTabular: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	last, _ := scaled.Last()
	for i, row := range m.seen {
		for c := range row {
			if row[c] != last[c] {
				t.Fatalf("call %d got %v, want last row %v", i, row, last)
			}
		}
		if out[i] != 123.4 {
			t.Fatalf("out[%d] = %v, want raw model output", i, out[i])
		}
	}
}

func TestTabularShapeMismatch(t *testing.T) {
	scaled, _ := history(5)
	if _, err := ForecastTabular(context.Background(), &recordingTab{n: 4}, scaled, 2); !errors.Is(err, models.ErrModelInputShape) {
		t.Fatalf("err = %v, want input shape", err)
	}
}

func TestTabularDiverged(t *testing.T) {
	scaled, _ := history(5)
	m := &recordingTab{n: 6, out: math.Inf(1)}
	if _, err := ForecastTabular(context.Background(), m, scaled, 2); !errors.Is(err, models.ErrForecastDiverged) {
		t.Fatalf("err = %v, want diverged", err)
	}
}

func TestForecasterKinds(t *testing.T) {
	if (&SequenceForecaster{}).Kind() != "sequence" || (&TabularForecaster{}).Kind() != "tabular" {
		t.Fatal("unexpected forecaster kinds")
	}
}
