package usecase

import (
	"sync"
	"sync/atomic"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

// fakeProvider scripts the two provider capabilities per test case.
type fakeProvider struct {
	annotateFn func(ctx domain.Context, documentDataURL, schemaName string, schema map[string]any) (string, error)
	chatFn     func(ctx domain.Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (string, error)

	annotateCalls atomic.Int64
	chatCalls     atomic.Int64

	mu             sync.Mutex
	lastUserPrompt string
}

func (f *fakeProvider) AnnotateDocument(ctx domain.Context, documentDataURL, schemaName string, schema map[string]any) (string, error) {
	f.annotateCalls.Add(1)
	return f.annotateFn(ctx, documentDataURL, schemaName, schema)
}

func (f *fakeProvider) ChatJSON(ctx domain.Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (string, error) {
	f.chatCalls.Add(1)
	f.mu.Lock()
	f.lastUserPrompt = userPrompt
	f.mu.Unlock()
	return f.chatFn(ctx, systemPrompt, userPrompt, schemaName, schema)
}

func (f *fakeProvider) Healthy() bool { return true }

func (f *fakeProvider) userPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUserPrompt
}

// fakeStore records saves and optionally fails them.
type fakeStore struct {
	err error

	mu    sync.Mutex
	saved []savedFile
}

type savedFile struct {
	filename string
	data     []byte
}

func (f *fakeStore) Save(_ domain.Context, filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.saved = append(f.saved, savedFile{filename: filename, data: data})
	f.mu.Unlock()
	return "save_cvs/" + filename, nil
}

// fakeDispatcher records deliveries on a channel so tests can observe the
// detached goroutine without sleeping.
type fakeDispatcher struct {
	delay     func()
	delivered chan deliveredResult
}

type deliveredResult struct {
	url    string
	result domain.ProcessResult
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{delivered: make(chan deliveredResult, 4)}
}

func (f *fakeDispatcher) Deliver(_ domain.Context, url string, result domain.ProcessResult) {
	if f.delay != nil {
		f.delay()
	}
	f.delivered <- deliveredResult{url: url, result: result}
}
