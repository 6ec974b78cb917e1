package usecase

import (
	"context"
	"testing"

	domsvc "QuantPredict/internal/domain/service"
)

type invalidation struct {
	symbol string
	kind   domsvc.ModelKind
}

type recordingModels struct {
	fakeModels
	calls []invalidation
}

func (r *recordingModels) Invalidate(symbol string, kind domsvc.ModelKind) {
	r.calls = append(r.calls, invalidation{symbol, kind})
}

func TestModelReadyHandler(t *testing.T) {
	store := &recordingModels{}
	h := NewModelReadyHandler("models.ready", store, nil)
	if h.Topic() != "models.ready" {
		t.Fatalf("topic = %s", h.Topic())
	}

	msgs := []string{
		`{"symbol":"aapl","kind":"lstm"}`,
		`{"symbol":"MSFT"}`,
		`{"symbol":"","kind":"tabular"}`,
		`{"symbol":"TSLA","kind":"prophet"}`,
	}
	for _, m := range msgs {
		if err := h.Handle(context.Background(), []byte(m)); err != nil {
			t.Fatalf("Handle(%s): %v", m, err)
		}
	}
	want := []invalidation{{"AAPL", domsvc.KindSequence}, {"MSFT", ""}}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", store.calls, want)
		}
	}

	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatalf("malformed payload should fail")
	}
}
