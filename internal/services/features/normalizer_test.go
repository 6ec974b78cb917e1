package features

import (
	"errors"
	"math"
	"testing"

	"QuantPredict/internal/domain/models"
)

func sampleTable() models.RawTable {
	return models.RawTable{
		Header: []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"},
		Records: [][]string{
			{"2024-01-03", "11", "12", "10", "11.5", "11.4", "200"},
			{"2024-01-02", "10", "11", "9", "10.5", "10.4", "100"},
			{"2024-01-04", "12", "13", "11", "12.5", "12.4", "300"},
		},
	}
}

func TestBuildMatrixFeatureOrder(t *testing.T) {
	fm, err := BuildMatrix(sampleTable())
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	if fm.Len() != 3 {
		t.Fatalf("rows = %d, want 3", fm.Len())
	}
	first := fm.Rows[0]
	want := models.FeatureRow{10, 11, 9, 10.5, 10.4, math.Log(101)}
	if first != want {
		t.Fatalf("row = %v, want %v", first, want)
	}
	for i := 1; i < fm.Len(); i++ {
		if !fm.Times[i].After(fm.Times[i-1]) {
			t.Fatalf("times not ascending at %d", i)
		}
	}
}

func TestBuildMatrixMissingDate(t *testing.T) {
	raw := models.RawTable{
		Header:  []string{"Open", "High", "Low", "Close"},
		Records: [][]string{{"1", "2", "0.5", "1.5"}},
	}
	_, err := BuildMatrix(raw)
	if !errors.Is(err, models.ErrSchema) {
		t.Fatalf("err = %v, want schema error", err)
	}
}

func TestBuildMatrixMissingClose(t *testing.T) {
	raw := models.RawTable{
		Header:  []string{"Date", "Open", "High", "Low"},
		Records: [][]string{{"2024-01-02", "1", "2", "0.5"}},
	}
	if _, err := BuildMatrix(raw); !errors.Is(err, models.ErrSchema) {
		t.Fatalf("err = %v, want schema error", err)
	}
}

func TestBuildMatrixBackfillsAdjCloseAndVolume(t *testing.T) {
	raw := models.RawTable{
		Header:  []string{"date", "open", "high", "low", "close"},
		Records: [][]string{{"2024-01-02", "1", "2", "0.5", "1.5"}},
	}
	fm, err := BuildMatrix(raw)
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	r := fm.Rows[0]
	if r[ColAdjClose] != 1.5 {
		t.Fatalf("adj close = %v, want 1.5", r[ColAdjClose])
	}
	if r[ColLogVolume] != 0 {
		t.Fatalf("log volume = %v, want 0", r[ColLogVolume])
	}
}

func TestBuildMatrixDropsBadRowsAndDuplicates(t *testing.T) {
	raw := sampleTable()
	raw.Records = append(raw.Records,
		[]string{"not-a-date", "1", "1", "1", "1", "1", "1"},
		[]string{"2024-01-05", "1", "", "1", "1", "1", "1"},
		[]string{"2024-01-02", "20", "21", "19", "20.5", "20.4", "abc"},
	)
	fm, err := BuildMatrix(raw)
	if err != nil {
		t.Fatalf("BuildMatrix: %v", err)
	}
	if fm.Len() != 3 {
		t.Fatalf("rows = %d, want 3", fm.Len())
	}
	// the later duplicate of 2024-01-02 wins and its bad volume becomes 0
	if fm.Rows[0][ColOpen] != 20 || fm.Rows[0][ColLogVolume] != 0 {
		t.Fatalf("duplicate row = %v", fm.Rows[0])
	}
}

func TestBuildMatrixEmpty(t *testing.T) {
	raw := models.RawTable{
		Header:  []string{"Date", "Open", "High", "Low", "Close"},
		Records: [][]string{{"2024-01-02", "x", "1", "1", "1"}},
	}
	if _, err := BuildMatrix(raw); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, want insufficient data", err)
	}
}

func TestNormalizeFitsWhenNoScaler(t *testing.T) {
	n, err := Normalize("AAPL", sampleTable(), nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !n.Fitted || n.Scaler.Symbol != "AAPL" {
		t.Fatalf("expected fresh fit for AAPL, got %+v", n.Scaler)
	}
	for _, r := range n.Scaled.Rows {
		for c, v := range r {
			if v < 0 || v > 1 {
				t.Fatalf("scaled col %d = %v out of [0,1]", c, v)
			}
		}
	}
}

func TestNormalizeReusesScaler(t *testing.T) {
	fm, _ := BuildMatrix(sampleTable())
	s, _ := Fit("AAPL", fm)
	wider := sampleTable()
	wider.Records = append(wider.Records, []string{"2024-01-05", "100", "100", "100", "100", "100", "1000"})
	n, err := Normalize("AAPL", wider, s)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.Fitted || n.Scaler != s {
		t.Fatal("existing scaler must be reused, not refit")
	}
	if last, _ := n.Scaled.Last(); last[ColClose] <= 1 {
		t.Fatalf("out-of-range row should scale above 1, got %v", last[ColClose])
	}
}

func TestNormalizeRejectsForeignScaler(t *testing.T) {
	s := &MinMaxScaler{Columns: []string{"Close"}, Min: []float64{0}, Max: []float64{1}}
	if _, err := Normalize("AAPL", sampleTable(), s); !errors.Is(err, models.ErrSchema) {
		t.Fatalf("err = %v, want schema error", err)
	}
}
