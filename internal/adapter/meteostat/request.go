package meteostat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
)

const (
	endpointStations = "stations"
	endpointMonthly  = "monthly"
)

// StatusError is returned when Meteostat answers with a non-200 status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("meteostat %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// requester performs GET requests with exponential backoff on network
// errors, 429 and 5xx responses. Other statuses fail immediately.
type requester struct {
	httpClient      *http.Client
	maxRetries      int
	initialInterval time.Duration
	metrics         *observability.Metrics
	logger          *slog.Logger
}

func newRequester(timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *requester {
	return &requester{
		httpClient:      &http.Client{Timeout: timeout},
		maxRetries:      maxRetries,
		initialInterval: 250 * time.Millisecond,
		metrics:         metrics,
		logger:          logger,
	}
}

func (r *requester) get(ctx context.Context, endpoint, fullURL string, header http.Header) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		start := time.Now()
		resp, err := r.httpClient.Do(req)
		r.metrics.MeteostatAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%s request: %w", endpoint, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", endpoint, err)
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
			if statusErr.Temporary() {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		r.metrics.MeteostatRetries.WithLabelValues(endpoint).Inc()
		r.logger.Debug("meteostat request failed, retrying", "endpoint", endpoint, "wait", wait, "error", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initialInterval
	eb.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.maxRetries)), ctx)

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
