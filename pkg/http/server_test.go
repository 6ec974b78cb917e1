package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type testHandler struct{}

type echoReq struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" default:"3" validate:"gte=1,lte=5"`
}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		var req echoReq
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/busy", func(c echo.Context) error {
		return AppErrorResponse(c, ServiceUnavailableError("ERR_NOT_READY", "warming up").WithRetryAfter(30*time.Second))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
	e.GET("/panic", func(c echo.Context) error { panic("bad") })
}

func newTestServer() *Server {
	reg := prometheus.NewRegistry()
	return NewServer(testHandler{}, WithMetrics("/metrics", reg, reg))
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestValidationAndDefaults(t *testing.T) {
	s := newTestServer()
	rec := do(s, http.MethodPost, "/echo", `{"name":"a"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":3`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
	rec = do(s, http.MethodPost, "/echo", `{"count":9}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	for _, want := range []string{`"field":"name"`, "ERR_REQUIRED", "ERR_LTE"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("body %s missing %s", rec.Body, want)
		}
	}
}

func TestAppErrorRetryAfter(t *testing.T) {
	rec := do(newTestServer(), http.MethodGet, "/busy", "")
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("got %d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if !strings.Contains(rec.Body.String(), "ERR_NOT_READY") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestPlainErrorIs500(t *testing.T) {
	if rec := do(newTestServer(), http.MethodGet, "/boom", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRecoverAndMetrics(t *testing.T) {
	s := newTestServer()
	if rec := do(s, http.MethodGet, "/panic", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d", rec.Code)
	}
	do(s, http.MethodGet, "/boom", "")
	rec := do(s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body)
	}
}
