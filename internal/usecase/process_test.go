package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

func newPipeline(provider *fakeProvider, d domain.Dispatcher) ProcessService {
	return NewProcessService(
		NewParseService(provider, &fakeStore{}),
		NewScoreService(provider, "magistral-small-latest"),
		d,
	)
}

func TestProcess_Success(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return sampleAnnotation, nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			return sampleScoring, nil
		},
	}
	svc := newPipeline(provider, nil)

	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "")

	require.True(t, res.Success, "error: %s", res.ErrorMessage)
	assert.Equal(t, int64(25), res.ApplicationID)
	require.NotNil(t, res.ScoringResult)
	assert.Equal(t, domain.RecommendationBon, res.ScoringResult.Recommendation)
	assert.Empty(t, res.ErrorMessage)
	assert.GreaterOrEqual(t, res.TotalProcessingTime, 0.0)
	assert.Equal(t, int64(1), provider.annotateCalls.Load())
	assert.Equal(t, int64(1), provider.chatCalls.Load())
}

func TestProcess_ParseFailureShortCircuits(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return "", nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			t.Fatal("scoring must never run after a parse failure")
			return "", nil
		},
	}
	svc := newPipeline(provider, nil)

	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "")

	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "parsing failed: ")
	assert.Nil(t, res.ScoringResult)
	assert.Zero(t, provider.chatCalls.Load())
}

func TestProcess_ScoreFailurePrefixed(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return sampleAnnotation, nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			return "garbage", nil
		},
	}
	svc := newPipeline(provider, nil)

	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "")

	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "scoring failed: ")
	assert.NotContains(t, res.ErrorMessage, "parsing failed")
	assert.Nil(t, res.ScoringResult)
}

func TestProcess_GarbageDocument(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{}
	svc := newPipeline(provider, nil)

	res := svc.Process(context.Background(), 3, "!!not-base64!!", "cv.pdf", javaOffer(), "")

	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "parsing failed: ")
	assert.Nil(t, res.ScoringResult)
}

func TestProcess_TotalTimeCoversStages(t *testing.T) {
	t.Parallel()
	stageDelay := 20 * time.Millisecond
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			time.Sleep(stageDelay)
			return sampleAnnotation, nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			time.Sleep(stageDelay)
			return sampleScoring, nil
		},
	}
	svc := newPipeline(provider, nil)

	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "")

	require.True(t, res.Success)
	assert.GreaterOrEqual(t, res.TotalProcessingTime, (2 * stageDelay).Seconds())
}

func TestProcess_CallbackDeliveredWithoutBlocking(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return sampleAnnotation, nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			return sampleScoring, nil
		},
	}
	dispatcher := newFakeDispatcher()
	dispatcher.delay = func() { time.Sleep(200 * time.Millisecond) }
	svc := newPipeline(provider, dispatcher)

	start := time.Now()
	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "http://backend/api/callback")
	returned := time.Since(start)

	require.True(t, res.Success)
	assert.Less(t, returned, 150*time.Millisecond, "return must not wait on the callback")

	select {
	case got := <-dispatcher.delivered:
		assert.Equal(t, "http://backend/api/callback", got.url)
		assert.Equal(t, res, got.result)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was never delivered")
	}
}

func TestProcess_CallbackCarriesFailureResult(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return "", nil
		},
	}
	dispatcher := newFakeDispatcher()
	svc := newPipeline(provider, dispatcher)

	res := svc.Process(context.Background(), 9, pdfBase64(), "cv.pdf", javaOffer(), "http://backend/api/callback")
	require.False(t, res.Success)

	select {
	case got := <-dispatcher.delivered:
		assert.False(t, got.result.Success)
		assert.Contains(t, got.result.ErrorMessage, "parsing failed: ")
	case <-time.After(2 * time.Second):
		t.Fatal("failure result was never delivered")
	}
}

func TestProcess_NoCallbackURLSkipsDispatch(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			return sampleAnnotation, nil
		},
		chatFn: func(domain.Context, string, string, string, map[string]any) (string, error) {
			return sampleScoring, nil
		},
	}
	dispatcher := newFakeDispatcher()
	svc := newPipeline(provider, dispatcher)

	res := svc.Process(context.Background(), 25, pdfBase64(), "cv.pdf", javaOffer(), "")
	require.True(t, res.Success)

	select {
	case <-dispatcher.delivered:
		t.Fatal("dispatcher must not be invoked without a callback URL")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProcess_RecoversFromStagePanic(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		annotateFn: func(domain.Context, string, string, map[string]any) (string, error) {
			panic("provider client bug")
		},
	}
	dispatcher := newFakeDispatcher()
	svc := newPipeline(provider, dispatcher)

	res := svc.Process(context.Background(), 4, pdfBase64(), "cv.pdf", javaOffer(), "http://backend/api/callback")

	require.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "unexpected error")
	assert.Contains(t, res.ErrorMessage, "provider client bug")

	select {
	case got := <-dispatcher.delivered:
		assert.False(t, got.result.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("recovered failure was never delivered")
	}
}
