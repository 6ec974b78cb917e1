package repository

import (
	"context"

	"QuantPredict/internal/domain/service"
)

// ModelStore resolves the trained artifact for (symbol, kind). A missing
// artifact is reported as models.ErrNotReady, never replaced by another
// symbol's model.
type ModelStore interface {
	Sequence(ctx context.Context, symbol string) (service.SequenceModel, error)
	Tabular(ctx context.Context, symbol string) (service.TabularModel, error)
	// Invalidate drops any cached artifact for (symbol, kind).
	Invalidate(symbol string, kind service.ModelKind)
}
