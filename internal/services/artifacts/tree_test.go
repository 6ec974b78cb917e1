package artifacts

import (
	"context"
	"errors"
	"math"
	"testing"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/services/features"
)

const dump = `[
  {"nodeid":0,"depth":0,"split":"f3","split_condition":0.5,"yes":1,"no":2,"missing":1,"children":[
    {"nodeid":1,"leaf":10},
    {"nodeid":2,"depth":1,"split":"LogVolume","split_condition":0.2,"yes":3,"no":4,"missing":4,"children":[
      {"nodeid":3,"leaf":20},
      {"nodeid":4,"leaf":30}
    ]}
  ]},
  {"nodeid":0,"leaf":1.5}
]`

func TestTreeEnsemblePredict(t *testing.T) {
	e, err := ParseTreeEnsemble([]byte(dump), 0.5, features.FeatureColumns)
	if err != nil {
		t.Fatalf("ParseTreeEnsemble: %v", err)
	}
	if e.NumFeatures() != 6 {
		t.Fatalf("features = %d", e.NumFeatures())
	}
	cases := []struct {
		row  []float64
		want float64
	}{
		{[]float64{0, 0, 0, 0.1, 0, 0}, 12},
		{[]float64{0, 0, 0, 0.9, 0, 0.1}, 22},
		{[]float64{0, 0, 0, 0.9, 0, 0.9}, 32},
		{[]float64{0, 0, 0, math.NaN(), 0, 0.9}, 12},
	}
	for _, c := range cases {
		got, err := e.Predict(context.Background(), c.row)
		if err != nil {
			t.Fatalf("Predict(%v): %v", c.row, err)
		}
		if got != c.want {
			t.Fatalf("Predict(%v) = %v, want %v", c.row, got, c.want)
		}
	}
}

func TestTreeEnsembleShape(t *testing.T) {
	e, _ := ParseTreeEnsemble([]byte(dump), 0, features.FeatureColumns)
	if _, err := e.Predict(context.Background(), []float64{1, 2}); !errors.Is(err, models.ErrModelInputShape) {
		t.Fatalf("err = %v, want input shape", err)
	}
}

func TestTreeEnsembleUnknownFeature(t *testing.T) {
	bad := `[{"nodeid":0,"split":"f9","split_condition":1,"yes":1,"no":2,"missing":1,"children":[{"nodeid":1,"leaf":1},{"nodeid":2,"leaf":2}]}]`
	if _, err := ParseTreeEnsemble([]byte(bad), 0, features.FeatureColumns); !errors.Is(err, models.ErrModelInputShape) {
		t.Fatalf("err = %v, want input shape", err)
	}
}
