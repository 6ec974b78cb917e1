package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"QuantPredict/internal/domain/models"
	"QuantPredict/internal/service/ratelimit"
	"QuantPredict/internal/usecase"
)

type stubPredictor struct {
	last usecase.PredictParams
	res  *models.ForecastResult
	err  error
}

func (s *stubPredictor) Predict(_ context.Context, p usecase.PredictParams) (*models.ForecastResult, error) {
	s.last = p
	return s.res, s.err
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *PredictHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func sampleResult() *models.ForecastResult {
	r2 := 0.123456789
	return &models.ForecastResult{
		Symbol:    "AAPL",
		Kind:      "sequence",
		Dates:     []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		Predicted: []float64{101, 102},
		Actual:    []float64{100, 103},
		Metrics:   models.Metrics{RMSE: 1.000049, MAE: 1, R2: &r2},
	}
}

func TestPredictDefaults(t *testing.T) {
	p := &stubPredictor{res: sampleResult()}
	rec, env := serve(t, NewPredictHandler(nil, p, nil), http.MethodPost, "/api/predict", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if p.last.Horizon != 7 || p.last.Kind != "sequence" || p.last.Rows != nil {
		t.Fatalf("params = %+v", p.last)
	}
	var resp models.PredictResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Dates[0] != "2024-03-01" || resp.PredictedPrices[1] != 102 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Metrics.RMSE != 1 || resp.Metrics.R2 == nil || *resp.Metrics.R2 != 0.1235 {
		t.Fatalf("metrics not rounded: %+v", resp.Metrics)
	}
}

func TestPredictCallerRows(t *testing.T) {
	p := &stubPredictor{res: sampleResult()}
	body := `{"symbol":"AAPL","days":2,"model":"xgb","rows":{"header":["Date","Open","High","Low","Close"],"records":[["2024-01-01","1","2","0.5","1.5"]]}}`
	rec, _ := serve(t, NewPredictHandler(nil, p, nil), http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if p.last.Rows == nil || p.last.Rows.Len() != 1 || p.last.Kind != "xgb" || p.last.Horizon != 2 {
		t.Fatalf("params = %+v", p.last)
	}
}

func TestPredictValidation(t *testing.T) {
	cases := []string{
		`{"days":3}`,
		`{"symbol":"AAPL","days":400}`,
		`{"symbol":"AAPL","model":"arima"}`,
		`{"symbol":"AAPL","rows":{"header":[],"records":[]}}`,
		`not json`,
	}
	for _, body := range cases {
		p := &stubPredictor{res: sampleResult()}
		rec, _ := serve(t, NewPredictHandler(nil, p, nil), http.MethodPost, "/api/predict", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
		if p.last.Symbol != "" {
			t.Fatalf("%s: predictor called on invalid input", body)
		}
	}
}

func TestPredictErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.NewError(models.KindNotReady, "no model"), http.StatusServiceUnavailable, "ERR_NOT_READY"},
		{models.NewError(models.KindSchema, "missing Close"), http.StatusUnprocessableEntity, "ERR_SCHEMA"},
		{models.NewError(models.KindInsufficientHistory, "short"), http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_HISTORY"},
		{models.NewError(models.KindInvalidArgument, "bad"), http.StatusBadRequest, "ERR_INVALID_ARGUMENT"},
		{models.NewError(models.KindForecastDiverged, "nan"), http.StatusInternalServerError, "ERR_FORECAST_DIVERGED"},
		{errors.New("plain"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		p := &stubPredictor{err: tc.err}
		rec, env := serve(t, NewPredictHandler(nil, p, nil), http.MethodGet, "/api/predict/AAPL?days=3&model=tabular", "")
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var errs []struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != tc.code {
			t.Fatalf("%v: data = %s", tc.err, env.Data)
		}
		if tc.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "30" {
			t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
		}
	}
}

func TestPredictMetricsError(t *testing.T) {
	res := sampleResult()
	res.Metrics.R2 = nil
	res.MetricsError = models.NewError(models.KindUndefinedMetric, "zero variance")
	rec, env := serve(t, NewPredictHandler(nil, &stubPredictor{res: res}, nil), http.MethodGet, "/api/predict/AAPL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.PredictResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Metrics.R2 != nil || resp.MetricsError == nil || resp.MetricsError.Code != "UNDEFINED_METRIC" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestPredictRateLimited(t *testing.T) {
	h := NewPredictHandler(nil, &stubPredictor{res: sampleResult()}, ratelimit.New(1, 0.0001))
	if rec, _ := serve(t, h, http.MethodPost, "/api/predict", `{"symbol":"AAPL"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec, _ := serve(t, h, http.MethodPost, "/api/predict", `{"symbol":"AAPL"}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second request status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewPredictHandler(nil, &stubPredictor{}, nil)
	h.AddHealthCheck("clickhouse", func(context.Context) error { return nil })
	if rec, _ := serve(t, h, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rec.Code)
	}
	h.AddHealthCheck("redis", func(context.Context) error { return errors.New("dial refused") })
	rec, env := serve(t, h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(string(env.Data), "dial refused") {
		t.Fatalf("unhealthy status = %d data=%s", rec.Code, env.Data)
	}
}
