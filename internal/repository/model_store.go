package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	domsvc "QuantPredict/internal/domain/service"
	svccache "QuantPredict/internal/service/cache"
	"QuantPredict/internal/services/artifacts"
	"QuantPredict/internal/services/features"
	applogger "QuantPredict/pkg/logger"
)

// FileModelStore resolves artifacts from YAML manifests named
// <SYMBOL>_<kind>.yaml under dir. Resolved models are cached until ttl or an
// explicit Invalidate.
type FileModelStore struct {
	dir    string
	window int
	remote *artifacts.HTTPServiceBase
	cache  *svccache.TTLCache
	ttl    time.Duration
	l      *applogger.Logger
}

var _ domrepo.ModelStore = (*FileModelStore)(nil)

func NewFileModelStore(dir string, remote *artifacts.HTTPServiceBase, ttl time.Duration, window int) *FileModelStore {
	return &FileModelStore{
		dir:    dir,
		window: window,
		remote: remote,
		cache:  svccache.NewTTLCache(),
		ttl:    ttl,
		l:      applogger.NewNop(),
	}
}

// SetLogger injects a structured logger.
func (s *FileModelStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func modelKey(symbol string, kind domsvc.ModelKind) string {
	return strings.ToUpper(symbol) + ":" + string(kind)
}

func (s *FileModelStore) Sequence(ctx context.Context, symbol string) (domsvc.SequenceModel, error) {
	v, err := s.resolve(ctx, symbol, domsvc.KindSequence)
	if err != nil {
		return nil, err
	}
	m, ok := v.(domsvc.SequenceModel)
	if !ok {
		return nil, models.NewError(models.KindNotReady, "artifact for %s is not a sequence model", symbol)
	}
	return m, nil
}

func (s *FileModelStore) Tabular(ctx context.Context, symbol string) (domsvc.TabularModel, error) {
	v, err := s.resolve(ctx, symbol, domsvc.KindTabular)
	if err != nil {
		return nil, err
	}
	m, ok := v.(domsvc.TabularModel)
	if !ok {
		return nil, models.NewError(models.KindNotReady, "artifact for %s is not a tabular model", symbol)
	}
	return m, nil
}

func (s *FileModelStore) Invalidate(symbol string, kind domsvc.ModelKind) {
	if kind == "" {
		s.cache.DeletePrefix(strings.ToUpper(symbol) + ":")
		return
	}
	s.cache.Delete(modelKey(symbol, kind))
}

func (s *FileModelStore) resolve(ctx context.Context, symbol string, kind domsvc.ModelKind) (any, error) {
	key := modelKey(symbol, kind)
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := s.load(symbol, kind)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, m, s.ttl)
	s.l.Info("model artifact loaded",
		applogger.String("symbol", strings.ToUpper(symbol)),
		applogger.String("kind", string(kind)),
	)
	return m, nil
}

func (s *FileModelStore) load(symbol string, kind domsvc.ModelKind) (any, error) {
	sym := strings.ToUpper(symbol)
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.yaml", sym, kind))
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewError(models.KindNotReady, "no %s model for %s", kind, sym)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	man, err := artifacts.ParseManifest(b)
	if err != nil {
		return nil, err
	}
	if man.Symbol != sym || man.Kind != kind {
		return nil, models.NewError(models.KindNotReady, "manifest %s describes %s/%s", filepath.Base(path), man.Symbol, man.Kind)
	}

	switch man.Format {
	case artifacts.FormatRemote:
		if kind == domsvc.KindSequence {
			w := man.Window
			if w == 0 {
				w = s.window
			}
			return artifacts.NewRemoteSequenceModel(s.remote, sym, w), nil
		}
		return artifacts.NewRemoteTabularModel(s.remote, sym, man.Features), nil
	default:
		file := man.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(s.dir, file)
		}
		dump, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, models.NewError(models.KindNotReady, "artifact file %s missing", filepath.Base(file))
			}
			return nil, fmt.Errorf("read artifact: %w", err)
		}
		return artifacts.ParseTreeEnsemble(dump, *man.BaseScore, features.FeatureColumns)
	}
}
