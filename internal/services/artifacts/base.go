package artifacts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"QuantPredict/internal/domain/models"
	xhttp "QuantPredict/pkg/http"
)

// HTTPServiceBase is the shared client for models served by the external
// model service.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client for baseURL with the given timeout.
func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
// 404 and 503 from the model service mean the artifact is not loaded yet and
// surface as NOT_READY.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b == nil || b.client == nil || b.baseURL == "" {
		return models.NewError(models.KindNotReady, "model service not configured")
	}
	err := b.client.PostJSON(ctx, b.baseURL+path, payload, dest)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusServiceUnavailable) {
			return models.WrapError(models.KindNotReady, err, "post %s", path)
		}
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON with up to attempts tries. NOT_READY is not
// retried.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || errors.Is(err, models.ErrNotReady) {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
