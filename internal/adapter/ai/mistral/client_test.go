package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ept-cri/cv-scoring-service/internal/config"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:         "test",
		MistralAPIKey:  "test-key",
		MistralBaseURL: baseURL,
		OCRModel:       "mistral-ocr-latest",
		ChatModel:      "magistral-small-latest",
		OCRTimeout:     5 * time.Second,
		ChatTimeout:    5 * time.Second,
	}
}

func testSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func TestAnnotateDocument_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ocr", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral-ocr-latest", body["model"])
		doc, ok := body["document"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "document_url", doc["type"])
		format, ok := body["document_annotation_format"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "json_schema", format["type"])
		js, ok := format["json_schema"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "resume_data", js["name"])
		assert.Equal(t, true, js["strict"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"document_annotation": "{\"competences\": [\"Go\"]}"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.AnnotateDocument(context.Background(), "data:application/pdf;base64,JVBERg==", "resume_data", testSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"competences": ["Go"]}`, got)
}

func TestChatJSON_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "magistral-small-latest", body["model"])
		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)
		system := msgs[0].(map[string]any)
		assert.Equal(t, "system", system["role"])
		format, ok := body["response_format"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "json_schema", format["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "{\"recommendation\": \"BON\"}"}}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.ChatJSON(context.Background(), "system", "user", "scoring_result", testSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"recommendation": "BON"}`, got)
}

func TestChatJSON_EmptyChoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.ChatJSON(context.Background(), "system", "user", "scoring_result", testSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestPostJSON_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "invalid document"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.AnnotateDocument(context.Background(), "data:application/pdf;base64,x", "resume_data", testSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int64(1), attempts.Load(), "4xx must be permanent")
}

func TestPostJSON_ServerErrorRetriedThenSucceeds(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"document_annotation": "{}"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	got, err := c.AnnotateDocument(context.Background(), "data:application/pdf;base64,x", "resume_data", testSchema())
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
	assert.GreaterOrEqual(t, attempts.Load(), int64(3))
}

func TestPostJSON_RateLimitRetried(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"document_annotation": "{}"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.AnnotateDocument(context.Background(), "data:application/pdf;base64,x", "resume_data", testSchema())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts.Load(), int64(2))
}

func TestPostJSON_MalformedResponseNotRetried(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.AnnotateDocument(context.Background(), "data:application/pdf;base64,x", "resume_data", testSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int64(1), attempts.Load(), "decode failures must be permanent")
}

func TestPostJSON_ContextCancellationStopsRetry(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	c := New(testConfig(srv.URL))
	start := time.Now()
	_, err := c.AnnotateDocument(ctx, "data:application/pdf;base64,x", "resume_data", testSchema())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHealthy(t *testing.T) {
	t.Parallel()
	c := New(testConfig("http://localhost:0"))
	assert.True(t, c.Healthy())

	var nilClient *Client
	assert.False(t, nilClient.Healthy())
}
