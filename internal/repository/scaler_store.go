package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	"QuantPredict/internal/services/features"
	"QuantPredict/pkg/cache"
)

func notFound(symbol string) error {
	return models.NewError(models.KindScalerNotFound, "no scaler stored for %s", symbol)
}

// symbolLocks hands out one mutex per symbol.
type symbolLocks struct {
	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

func (s *symbolLocks) get(symbol string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]*sync.RWMutex)
	}
	l, ok := s.m[symbol]
	if !ok {
		l = &sync.RWMutex{}
		s.m[symbol] = l
	}
	return l
}

// MemoryScalerStore keeps encoded scalers in process. Values are stored as
// JSON so callers never share a mutable scaler.
type MemoryScalerStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ domrepo.ScalerStore = (*MemoryScalerStore)(nil)

func NewMemoryScalerStore() *MemoryScalerStore {
	return &MemoryScalerStore{docs: make(map[string][]byte)}
}

func (s *MemoryScalerStore) Load(_ context.Context, symbol string) (*features.MinMaxScaler, error) {
	s.mu.RLock()
	b, ok := s.docs[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(symbol)
	}
	return features.UnmarshalScaler(b)
}

func (s *MemoryScalerStore) Save(_ context.Context, symbol string, sc *features.MinMaxScaler) error {
	b, err := sc.Marshal()
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	s.mu.Lock()
	s.docs[symbol] = b
	s.mu.Unlock()
	return nil
}

// FileScalerStore writes one JSON file per symbol. Saves go to a temp file
// that is renamed over the target, so a reader sees either the old or the new
// document.
type FileScalerStore struct {
	dir   string
	locks symbolLocks
}

var _ domrepo.ScalerStore = (*FileScalerStore)(nil)

func NewFileScalerStore(dir string) (*FileScalerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scaler dir: %w", err)
	}
	return &FileScalerStore{dir: dir}, nil
}

// path expects a symbol already upper-cased, the same key the lock uses.
func (s *FileScalerStore) path(symbol string) string {
	return filepath.Join(s.dir, symbol+"_scaler.json")
}

func (s *FileScalerStore) Load(_ context.Context, symbol string) (*features.MinMaxScaler, error) {
	symbol = strings.ToUpper(symbol)
	l := s.locks.get(symbol)
	l.RLock()
	b, err := os.ReadFile(s.path(symbol))
	l.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(symbol)
		}
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	return features.UnmarshalScaler(b)
}

func (s *FileScalerStore) Save(_ context.Context, symbol string, sc *features.MinMaxScaler) error {
	b, err := sc.Marshal()
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	symbol = strings.ToUpper(symbol)
	l := s.locks.get(symbol)
	l.Lock()
	defer l.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".scaler-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp: %w", err)
	}
	// flush before the rename so a crash cannot publish an empty file
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(symbol)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename scaler: %w", err)
	}
	return nil
}

// CacheScalerStore keeps scalers in a shared cache (Redis in production).
// Each save is a single SET of the whole document, taken under a per-symbol
// lock so concurrent fits from several replicas do not interleave.
type CacheScalerStore struct {
	c       cache.Service
	lockTTL time.Duration
	wait    time.Duration
}

var _ domrepo.ScalerStore = (*CacheScalerStore)(nil)

func NewCacheScalerStore(c cache.Service, lockTTL time.Duration) *CacheScalerStore {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &CacheScalerStore{c: c, lockTTL: lockTTL, wait: 20 * time.Millisecond}
}

func scalerKey(symbol string) string { return cache.Key("scaler", strings.ToUpper(symbol)) }

func (s *CacheScalerStore) Load(ctx context.Context, symbol string) (*features.MinMaxScaler, error) {
	b, err := s.c.GetBytes(ctx, scalerKey(symbol))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, notFound(symbol)
		}
		return nil, fmt.Errorf("get scaler: %w", err)
	}
	return features.UnmarshalScaler(b)
}

func (s *CacheScalerStore) Save(ctx context.Context, symbol string, sc *features.MinMaxScaler) error {
	b, err := sc.Marshal()
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	lockKey := cache.Key("lock", scalerKey(symbol))
	token, err := s.acquire(ctx, lockKey)
	if err != nil {
		return err
	}
	defer s.c.Unlock(context.Background(), lockKey, token)

	if err := s.c.SetBytes(ctx, scalerKey(symbol), b, 0); err != nil {
		return fmt.Errorf("set scaler: %w", err)
	}
	return nil
}

func (s *CacheScalerStore) acquire(ctx context.Context, key string) (string, error) {
	for {
		token, ok, err := s.c.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			return "", fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
