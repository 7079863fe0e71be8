// Package callback delivers final processing results to caller-supplied
// webhook endpoints. Delivery is at-most-once with no durability: one POST
// attempt, bounded timeout, no retry, failures logged and never surfaced.
package callback

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ept-cri/cv-scoring-service/internal/adapter/observability"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

// HTTPDispatcher implements domain.Dispatcher over a bounded HTTP client.
type HTTPDispatcher struct {
	hc *http.Client
}

// New constructs a dispatcher whose single delivery attempt is capped at
// timeout.
func New(timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDispatcher{
		hc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Deliver POSTs the result as JSON to url. It runs after the orchestrator has
// already returned to its caller, so every failure path ends in a log line,
// never an error return.
func (d *HTTPDispatcher) Deliver(ctx domain.Context, url string, result domain.ProcessResult) {
	lg := slog.With(slog.String("callback_url", url), slog.Int64("application_id", result.ApplicationID))

	body, err := json.Marshal(result)
	if err != nil {
		observability.CallbackDeliveriesTotal.WithLabelValues("failure").Inc()
		lg.Error("callback payload marshal failed", slog.Any("error", err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		observability.CallbackDeliveriesTotal.WithLabelValues("failure").Inc()
		lg.Error("callback request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.hc.Do(req)
	if err != nil {
		observability.CallbackDeliveriesTotal.WithLabelValues("failure").Inc()
		lg.Error("callback delivery failed", slog.Any("error", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.CallbackDeliveriesTotal.WithLabelValues("failure").Inc()
		lg.Error("callback rejected", slog.Int("status", resp.StatusCode))
		return
	}
	observability.CallbackDeliveriesTotal.WithLabelValues("success").Inc()
	lg.Info("callback delivered", slog.Int("status", resp.StatusCode))
}
