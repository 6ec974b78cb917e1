package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"QuantPredict/internal/domain/models"
)

type stubPredictor struct {
	mu    sync.Mutex
	calls []PredictParams
	fail  string
}

func (p *stubPredictor) Predict(_ context.Context, params PredictParams) (*models.ForecastResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, params)
	if params.Symbol == p.fail {
		return nil, errors.New("boom")
	}
	return &models.ForecastResult{Symbol: params.Symbol}, nil
}

func TestRefreshRunOnce(t *testing.T) {
	p := &stubPredictor{fail: "MSFT"}
	s := NewRefreshScheduler(p, "@daily", []string{"AAPL", "MSFT"}, []string{"sequence", "tabular"}, 5, nil)

	if failed := s.RunOnce(context.Background()); failed != 2 {
		t.Fatalf("failed = %d, want 2", failed)
	}
	if len(p.calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(p.calls))
	}
	if p.calls[1].Kind != "tabular" || p.calls[1].Horizon != 5 {
		t.Fatalf("call = %+v", p.calls[1])
	}
}

func TestRefreshRunOnceCanceled(t *testing.T) {
	p := &stubPredictor{}
	s := NewRefreshScheduler(p, "@daily", []string{"AAPL"}, nil, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunOnce(ctx)
	if len(p.calls) != 0 {
		t.Fatalf("canceled run still predicted")
	}
}

func TestRefreshStartStop(t *testing.T) {
	s := NewRefreshScheduler(&stubPredictor{}, "not a schedule", nil, nil, 1, nil)
	if err := s.Start(); err == nil {
		t.Fatalf("invalid schedule accepted")
	}

	s = NewRefreshScheduler(&stubPredictor{}, "@every 1h", []string{"AAPL"}, nil, 1, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
