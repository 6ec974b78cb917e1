package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"QuantPredict/internal/domain/models"
)

func TestRemoteSequenceModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sequence/predict" {
			http.NotFound(w, r)
			return
		}
		var req seqReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol != "AAPL" || len(req.Window) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(seqResp{Row: req.Window[1]})
	}))
	defer srv.Close()

	m := NewRemoteSequenceModel(NewHTTPServiceBase(srv.URL, time.Second), "AAPL", 2)
	out, err := m.PredictNext(context.Background(), []models.FeatureRow{{1, 1, 1, 1, 1, 1}, {2, 2, 2, 2, 2, 2}})
	if err != nil {
		t.Fatalf("PredictNext: %v", err)
	}
	if len(out) != 6 || out[3] != 2 {
		t.Fatalf("out = %v", out)
	}
}

func TestRemoteTabularNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewRemoteTabularModel(NewHTTPServiceBase(srv.URL, time.Second), "AAPL", 6)
	if _, err := m.Predict(context.Background(), make([]float64, 6)); !errors.Is(err, models.ErrNotReady) {
		t.Fatalf("err = %v, want not ready", err)
	}
}

func TestRemoteTabularPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tabResp{Prediction: 101.5})
	}))
	defer srv.Close()

	m := NewRemoteTabularModel(NewHTTPServiceBase(srv.URL, time.Second), "AAPL", 6)
	v, err := m.Predict(context.Background(), make([]float64, 6))
	if err != nil || v != 101.5 {
		t.Fatalf("Predict = %v, %v", v, err)
	}
}

func TestUnconfiguredServiceNotReady(t *testing.T) {
	m := NewRemoteTabularModel(NewHTTPServiceBase("", time.Second), "AAPL", 6)
	if _, err := m.Predict(context.Background(), make([]float64, 6)); !errors.Is(err, models.ErrNotReady) {
		t.Fatalf("err = %v, want not ready", err)
	}
}
