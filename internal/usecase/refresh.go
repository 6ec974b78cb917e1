package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	applogger "QuantPredict/pkg/logger"
)

// RefreshScheduler re-runs forecasts for a fixed watchlist on a cron
// schedule. Results flow through the predictor's publisher and sink.
type RefreshScheduler struct {
	predictor Predictor
	spec      string
	symbols   []string
	kinds     []string
	horizon   int
	timeout   time.Duration

	cron *cron.Cron
	mu   sync.Mutex
	l    *applogger.Logger
}

func NewRefreshScheduler(p Predictor, spec string, symbols, kinds []string, horizon int, l *applogger.Logger) *RefreshScheduler {
	if l == nil {
		l = applogger.NewNop()
	}
	if len(kinds) == 0 {
		kinds = []string{"sequence"}
	}
	return &RefreshScheduler{
		predictor: p,
		spec:      spec,
		symbols:   symbols,
		kinds:     kinds,
		horizon:   horizon,
		timeout:   2 * time.Minute,
		l:         l,
	}
}

// Start registers the job and starts the cron loop. An overlapping run is
// skipped rather than queued.
func (s *RefreshScheduler) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.l.Info("refresh scheduler started",
		applogger.String("schedule", s.spec),
		applogger.Strings("symbols", s.symbols),
	)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce forecasts every symbol and kind once. It returns how many failed.
func (s *RefreshScheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, sym := range s.symbols {
		for _, kind := range s.kinds {
			if ctx.Err() != nil {
				return failed
			}
			rctx, cancel := context.WithTimeout(ctx, s.timeout)
			_, err := s.predictor.Predict(rctx, PredictParams{Symbol: sym, Horizon: s.horizon, Kind: kind})
			cancel()
			if err != nil {
				failed++
				s.l.Warn("scheduled forecast failed",
					applogger.String("symbol", sym),
					applogger.String("kind", kind),
					applogger.Error(err),
				)
			}
		}
	}
	return failed
}
