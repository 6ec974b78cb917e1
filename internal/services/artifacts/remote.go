package artifacts

import (
	"context"
	"fmt"

	"QuantPredict/internal/domain/models"
	domsvc "QuantPredict/internal/domain/service"
)

// RemoteSequenceModel delegates window predictions to the model service.
type RemoteSequenceModel struct {
	base   *HTTPServiceBase
	symbol string
	window int
}

func NewRemoteSequenceModel(base *HTTPServiceBase, symbol string, window int) *RemoteSequenceModel {
	return &RemoteSequenceModel{base: base, symbol: symbol, window: window}
}

type seqReq struct {
	Symbol string      `json:"symbol"`
	Window [][]float64 `json:"window"`
}

type seqResp struct {
	Row []float64 `json:"row"`
}

func (m *RemoteSequenceModel) Window() int { return m.window }

func (m *RemoteSequenceModel) PredictNext(ctx context.Context, window []models.FeatureRow) ([]float64, error) {
	req := seqReq{Symbol: m.symbol, Window: make([][]float64, len(window))}
	for i := range window {
		r := window[i]
		req.Window[i] = r[:]
	}
	var resp seqResp
	if err := m.base.PostJSON(ctx, "/sequence/predict", req, &resp); err != nil {
		return nil, fmt.Errorf("sequence predict %s: %w", m.symbol, err)
	}
	return resp.Row, nil
}

var _ domsvc.SequenceModel = (*RemoteSequenceModel)(nil)

// RemoteTabularModel delegates single row predictions to the model service.
type RemoteTabularModel struct {
	base     *HTTPServiceBase
	symbol   string
	features int
}

func NewRemoteTabularModel(base *HTTPServiceBase, symbol string, features int) *RemoteTabularModel {
	return &RemoteTabularModel{base: base, symbol: symbol, features: features}
}

type tabReq struct {
	Symbol   string    `json:"symbol"`
	Features []float64 `json:"features"`
}

type tabResp struct {
	Prediction float64 `json:"prediction"`
}

func (m *RemoteTabularModel) NumFeatures() int { return m.features }

func (m *RemoteTabularModel) Predict(ctx context.Context, row []float64) (float64, error) {
	var resp tabResp
	if err := m.base.PostJSONWithRetry(ctx, "/tabular/predict", tabReq{Symbol: m.symbol, Features: row}, &resp, 2); err != nil {
		return 0, fmt.Errorf("tabular predict %s: %w", m.symbol, err)
	}
	return resp.Prediction, nil
}

var _ domsvc.TabularModel = (*RemoteTabularModel)(nil)
