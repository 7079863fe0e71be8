// Package mistral implements domain.Provider against the Mistral HTTP API:
// document annotation via /ocr and structured chat completion via
// /chat/completions.
package mistral

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ept-cri/cv-scoring-service/internal/adapter/observability"
	"github.com/ept-cri/cv-scoring-service/internal/config"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

const providerName = "mistral"

// Client implements domain.Provider. It holds only credentials and model
// identifiers; it is never mutated after construction and safe for
// concurrent use.
type Client struct {
	cfg    config.Config
	ocrHC  *http.Client
	chatHC *http.Client
}

// New constructs a provider client with bounded per-call timeouts and an
// instrumented transport.
func New(cfg config.Config) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	return &Client{
		cfg:    cfg,
		ocrHC:  &http.Client{Timeout: cfg.OCRTimeout, Transport: transport},
		chatHC: &http.Client{Timeout: cfg.ChatTimeout, Transport: transport},
	}
}

// Healthy reports only that the client handle was constructed. It is a
// liveness probe, not a connectivity check; it stays true even when the
// provider is unreachable.
func (c *Client) Healthy() bool {
	return c != nil && c.ocrHC != nil && c.chatHC != nil
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// responseFormat builds the json_schema structured-output contract shared by
// both capabilities.
func responseFormat(schemaName string, schema map[string]any) map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   schemaName,
			"strict": true,
			"schema": schema,
		},
	}
}

// AnnotateDocument submits a document data URL for OCR + extraction,
// constrained to the given schema, and returns the raw annotation JSON.
// An empty annotation is returned as-is; the caller decides whether that is
// a failure.
func (c *Client) AnnotateDocument(ctx domain.Context, documentDataURL, schemaName string, schema map[string]any) (string, error) {
	body := map[string]any{
		"model": c.cfg.OCRModel,
		"document": map[string]any{
			"type":         "document_url",
			"document_url": documentDataURL,
		},
		"document_annotation_format": responseFormat(schemaName, schema),
	}
	var out struct {
		DocumentAnnotation string `json:"document_annotation"`
	}
	if err := c.postJSON(ctx, c.ocrHC, "/ocr", "ocr", body, &out); err != nil {
		return "", err
	}
	return out.DocumentAnnotation, nil
}

// ChatJSON submits a system+user prompt with a forced structured-output
// contract and returns the first choice's message content.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (string, error) {
	body := map[string]any{
		"model":       c.cfg.ChatModel,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"response_format": responseFormat(schemaName, schema),
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, c.chatHC, "/chat/completions", "chat", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		slog.Error("provider returned empty choices", slog.String("provider", providerName), slog.String("model", c.cfg.ChatModel))
		return "", fmt.Errorf("%w: empty choices", domain.ErrProviderUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}

// postJSON performs one provider call with transport-level backoff: 429 and
// 5xx retry within the configured budget, other 4xx are permanent. The stage
// that invoked it still observes exactly one success or failure.
func (c *Client) postJSON(ctx domain.Context, hc *http.Client, path, op string, body map[string]any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", domain.ErrInternal, err)
	}
	endpoint := c.cfg.MistralBaseURL + path
	call := func() error {
		start := time.Now()
		// Recreate the request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.MistralAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues(providerName, op).Inc()
		observability.AIRequestDuration.WithLabelValues(providerName, op).Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("failed to read response body", slog.String("provider", providerName), slog.String("op", op), slog.Any("error", err))
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("provider rate limited", slog.String("provider", providerName), slog.String("op", op), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			slog.Warn("provider 4xx", slog.String("provider", providerName), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("endpoint", endpoint), slog.String("body", snippet(bodyBytes)))
			return backoff.Permanent(fmt.Errorf("%s status %d", op, resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("provider non-2xx", slog.String("provider", providerName), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("endpoint", endpoint), slog.String("body", snippet(bodyBytes)))
			return fmt.Errorf("%s status %d", op, resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			slog.Error("provider decode error", slog.String("provider", providerName), slog.String("op", op), slog.Any("error", err))
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.WithContext(c.getBackoffConfig(), ctx)
	if err := backoff.Retry(call, bo); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, op, err)
	}
	return nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
