package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	"QuantPredict/internal/services/features"
	"QuantPredict/pkg/cache"
)

func scalerWith(symbol string, v float64) *features.MinMaxScaler {
	s := &features.MinMaxScaler{
		Symbol:   symbol,
		Columns:  append([]string(nil), features.FeatureColumns...),
		Min:      make([]float64, models.NumFeatures),
		Max:      make([]float64, models.NumFeatures),
		FittedAt: time.Now().UTC(),
	}
	for i := range s.Min {
		s.Min[i] = v
		s.Max[i] = v + 1
	}
	return s
}

func stores(t *testing.T) map[string]domrepo.ScalerStore {
	t.Helper()
	fs, err := NewFileScalerStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileScalerStore: %v", err)
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { mc.Close() })
	return map[string]domrepo.ScalerStore{
		"memory": NewMemoryScalerStore(),
		"file":   fs,
		"cache":  NewCacheScalerStore(mc, time.Second),
	}
}

func TestScalerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.Load(ctx, "AAPL"); !errors.Is(err, models.ErrScalerNotFound) {
				t.Fatalf("err = %v, want not found", err)
			}
			if err := st.Save(ctx, "AAPL", scalerWith("AAPL", 1)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := st.Save(ctx, "AAPL", scalerWith("AAPL", 2)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := st.Load(ctx, "AAPL")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Min[0] != 2 {
				t.Fatalf("save must overwrite, got min %v", got.Min[0])
			}
			if _, err := st.Load(ctx, "MSFT"); !errors.Is(err, models.ErrScalerNotFound) {
				t.Fatalf("symbols must be isolated, err = %v", err)
			}
		})
	}
}

// Concurrent saves and loads must never observe a transform mixing two saves.
func TestScalerStoreConcurrentAtomic(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Save(ctx, "X", scalerWith("X", 0)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			var wg sync.WaitGroup
			errCh := make(chan error, 64)
			for w := 1; w <= 4; w++ {
				wg.Add(1)
				go func(v float64) {
					defer wg.Done()
					for i := 0; i < 20; i++ {
						if err := st.Save(ctx, "X", scalerWith("X", v)); err != nil {
							errCh <- err
							return
						}
					}
				}(float64(w))
			}
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 40; i++ {
						s, err := st.Load(ctx, "X")
						if err != nil {
							errCh <- err
							return
						}
						for c := range s.Min {
							if s.Min[c] != s.Min[0] || s.Max[c] != s.Min[0]+1 {
								errCh <- errors.New("mixed transform observed")
								return
							}
						}
					}
				}()
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				t.Fatal(err)
			}
		})
	}
}

func TestFileScalerStoreSymbolCase(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileScalerStore(dir)
	if err != nil {
		t.Fatalf("NewFileScalerStore: %v", err)
	}
	if fs.locks.get("AAPL") != fs.locks.get("AAPL") {
		t.Fatalf("lock table is not stable")
	}
	ctx := context.Background()
	if err := fs.Save(ctx, "aapl", scalerWith("AAPL", 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "AAPL_scaler.json")); err != nil {
		t.Fatalf("scaler file not under upper-cased name: %v", err)
	}
	if len(fs.locks.m) != 1 || fs.locks.m["AAPL"] == nil {
		t.Fatalf("lock keys = %v, want only AAPL", fs.locks.m)
	}
	got, err := fs.Load(ctx, "Aapl")
	if err != nil || got.Min[0] != 1 {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if len(fs.locks.m) != 1 {
		t.Fatalf("mixed-case load created a second lock: %v", fs.locks.m)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}
